package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/visindex/internal/action"
	"github.com/Aman-CERP/visindex/internal/catalog"
	verrors "github.com/Aman-CERP/visindex/internal/errors"
	"github.com/Aman-CERP/visindex/internal/output"
)

// CheckResult is the decision for one product (or one variant-parent pair).
type CheckResult struct {
	ProductID  int64  `json:"product_id"`
	ParentID   int64  `json:"parent_id,omitempty"`
	StoreID    int64  `json:"store_id"`
	Subtype    string `json:"subtype,omitempty"`
	Visibility string `json:"visibility,omitempty"`
	Indexable  bool   `json:"indexable"`
	NextAction string `json:"next_action"`
	Error      string `json:"error,omitempty"`
}

type checkOptions struct {
	storeID  int64
	subtype  string
	previous string
	modified bool
	json     bool
}

func newCheckCmd(root *rootOptions) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check <product-id>...",
		Short: "Decide whether products are indexable in a store",
		Long: `Decide whether each product is indexable in a store and which sync
action follows from that decision.

With --subtype configurable_variants each product is treated as a variant
and judged by its configurable parent's visibility, once per parent.`,
		Example: `  # Check two products in store 1
  visindex check 1001 1002

  # Check a variant in store 2, given it is currently in the index
  visindex check 2044 --store 2 --subtype configurable_variants --previous indexable`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, root, opts, args)
		},
	}

	cmd.Flags().Int64Var(&opts.storeID, "store", 1, "Store view id")
	cmd.Flags().StringVar(&opts.subtype, "subtype", "", "Entity subtype (e.g. configurable_variants)")
	cmd.Flags().StringVar(&opts.previous, "previous", "",
		"Previous indexing state: indexable, excluded, or empty for a new record")
	cmd.Flags().BoolVar(&opts.modified, "modified", false, "The product changed since its last sync")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output results as JSON")

	return cmd
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, verrors.ValidationError(fmt.Sprintf("invalid product id %q", a), err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func previousState(previous string) (*action.State, error) {
	switch previous {
	case "":
		return nil, nil
	case "indexable":
		return &action.State{IsIndexable: true}, nil
	case "excluded":
		return &action.State{IsIndexable: false}, nil
	default:
		return nil, verrors.ValidationError(
			fmt.Sprintf("--previous must be 'indexable', 'excluded' or empty, got %q", previous), nil)
	}
}

func runCheck(cmd *cobra.Command, root *rootOptions, opts *checkOptions, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	prev, err := previousState(opts.previous)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := root.openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	st, err := a.db.StoreByID(ctx, opts.storeID)
	if err != nil {
		return err
	}

	results := make([][]CheckResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, id := range ids {
		g.Go(func() error {
			res, err := a.check(gctx, id, st, opts, prev)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var flat []CheckResult
	for _, r := range results {
		flat = append(flat, r...)
	}

	if opts.json {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(flat)
	}
	printResults(output.New(cmd.OutOrStdout()), flat)
	return nil
}

// check evaluates one product id. Unknown ids become result rows; only
// invalid-argument and storage failures abort the run.
func (a *app) check(ctx context.Context, id int64, st catalog.Store, opts *checkOptions, prev *action.State) ([]CheckResult, error) {
	repo := a.db.Products()

	var entities []*catalog.Product
	if catalog.IsVariantSubtype(opts.subtype) {
		variants, err := repo.Variants(ctx, id, st.ID)
		if err != nil {
			return nil, err
		}
		entities = variants
	}
	if len(entities) == 0 {
		p, err := repo.GetByID(ctx, id, false, st.ID)
		if errors.Is(err, catalog.ErrEntityNotFound) {
			return []CheckResult{{ProductID: id, StoreID: st.ID, Subtype: opts.subtype, Error: "not found"}}, nil
		}
		if err != nil {
			return nil, err
		}
		entities = []*catalog.Product{p}
	}

	out := make([]CheckResult, 0, len(entities))
	for _, p := range entities {
		ok, err := a.determiner.Execute(ctx, p, st, opts.subtype)
		if err != nil {
			return nil, err
		}
		next := action.Next(prev, ok, opts.modified)
		out = append(out, CheckResult{
			ProductID:  p.ID,
			ParentID:   p.ParentID,
			StoreID:    st.ID,
			Subtype:    opts.subtype,
			Visibility: p.Visibility.String(),
			Indexable:  ok,
			NextAction: next.NextAction.String(),
		})
	}
	return out, nil
}

func printResults(w *output.Writer, results []CheckResult) {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		parent := "-"
		if r.ParentID != 0 {
			parent = strconv.FormatInt(r.ParentID, 10)
		}
		verdict := w.Verdict(r.Indexable, "yes", "no")
		if r.Error != "" {
			verdict = r.Error
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.ProductID, 10),
			parent,
			strconv.FormatInt(r.StoreID, 10),
			r.Visibility,
			verdict,
			r.NextAction,
		})
	}
	w.Table([]string{"PRODUCT", "PARENT", "STORE", "VISIBILITY", "INDEXABLE", "NEXT ACTION"}, rows)
}
