package store

import (
	"context"
	"fmt"
	"time"

	verrors "github.com/Aman-CERP/visindex/internal/errors"
)

// DefaultDiscoveryJobCode is the cron job that runs entity discovery.
const DefaultDiscoveryJobCode = "klevu_indexing_entity_discovery"

// Schedule is a cron_schedule row.
type Schedule struct {
	ID          int64
	JobCode     string
	Status      string
	CreatedAt   time.Time
	ScheduledAt time.Time
}

// CronScheduleStore queues cron jobs for the external scheduler to run.
type CronScheduleStore struct {
	db      *DB
	jobCode string
	now     func() time.Time
}

// CronSchedules returns a schedule store for jobCode (the discovery job when empty).
func (s *DB) CronSchedules(jobCode string) *CronScheduleStore {
	if jobCode == "" {
		jobCode = DefaultDiscoveryJobCode
	}
	return &CronScheduleStore{db: s, jobCode: jobCode, now: time.Now}
}

// Schedule queues the job to run now unless a pending run already exists.
func (c *CronScheduleStore) Schedule(ctx context.Context) error {
	db, err := c.db.conn()
	if err != nil {
		return verrors.New(verrors.ErrCodeScheduleFailed, "schedule "+c.jobCode, err)
	}

	now := c.now().UTC()
	_, err = db.ExecContext(ctx, `
		INSERT INTO cron_schedule (job_code, status, created_at, scheduled_at)
		SELECT ?, 'pending', ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM cron_schedule WHERE job_code = ? AND status = 'pending'
		)
	`, c.jobCode, now, now, c.jobCode)
	if err != nil {
		return verrors.New(verrors.ErrCodeScheduleFailed, "schedule "+c.jobCode, err)
	}
	return nil
}

// Pending returns the pending runs of the job, oldest first.
func (c *CronScheduleStore) Pending(ctx context.Context) ([]Schedule, error) {
	db, err := c.db.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT schedule_id, job_code, status, created_at, scheduled_at
		FROM cron_schedule WHERE job_code = ? AND status = 'pending'
		ORDER BY schedule_id
	`, c.jobCode)
	if err != nil {
		return nil, fmt.Errorf("query pending schedules: %w", err)
	}
	defer rows.Close()

	var out []Schedule
	for rows.Next() {
		var s Schedule
		if err := rows.Scan(&s.ID, &s.JobCode, &s.Status, &s.CreatedAt, &s.ScheduledAt); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// JobCode returns the job this store schedules.
func (c *CronScheduleStore) JobCode() string {
	return c.jobCode
}
