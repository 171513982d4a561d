// Package watcher keeps the scoped configuration in the catalog database in
// step with the visindex YAML file.
//
// A FileWatcher reports debounced changes to one file, using fsnotify on the
// file's directory and falling back to polling where fsnotify is unavailable.
// A Reloader turns each batch into a reload: it syncs the file's scope values
// into the database, drops cached values and dispatches a ConfigChanged event
// listing the paths whose stored value changed.
//
// Usage:
//
//	lock := watcher.NewInstanceLock(cfg.Database.Path)
//	if err := lock.TryLock(); err != nil {
//	    return err
//	}
//	defer func() { _ = lock.Unlock() }()
//
//	w, err := watcher.NewFileWatcher(configPath, watcher.DefaultOptions(), logger)
//	if err != nil {
//	    return err
//	}
//	go func() { _ = w.Start(ctx) }()
//	defer func() { _ = w.Stop() }()
//
//	return reloader.Run(ctx, w.Events())
package watcher
