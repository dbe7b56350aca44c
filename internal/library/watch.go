package library

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/vlnv"
)

// Change describes one document file that changed on disk.
type Change struct {
	Path string
	// Removed is the identity the path held before the change, if any.
	Removed vlnv.VLNV
	// Added is the identity the path holds now, if any.
	Added vlnv.VLNV
}

// Watch keeps the store in sync with its root directories until ctx is done.
// Every created, written, removed or renamed .xml file is re-indexed and
// reported to onChange, unless the store's filter rejects it. Directories
// created under a root are watched too.
func (s *Store) Watch(ctx context.Context, onChange func(Change)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer w.Close()

	s.mu.RLock()
	roots := append([]string(nil), s.roots...)
	s.mu.RUnlock()

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return fmt.Errorf("watch %s: %w", root, err)
		}
		if !info.IsDir() {
			root = filepath.Dir(root)
		}
		if err := watchTree(w, root); err != nil {
			return err
		}
	}
	s.logger.Info("watching library", slog.Int("roots", len(roots)))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			s.handleEvent(w, ev, onChange)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

func (s *Store) handleEvent(w *fsnotify.Watcher, ev fsnotify.Event, onChange func(Change)) {
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := watchTree(w, ev.Name); err != nil {
				s.logger.Warn("watch directory", slog.String("path", ev.Name), slog.String("error", err.Error()))
			}
			return
		}
	}
	if !isDocumentFile(ev.Name) {
		return
	}
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) &&
		!ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return
	}

	path := filepath.Clean(ev.Name)
	if !s.accepts(path) {
		s.logger.Debug("ignoring change outside the library", slog.String("path", path))
		return
	}
	change := Change{Path: path}
	change.Removed, _ = s.Forget(path)
	if !ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		change.Added, _ = s.Refresh(path)
	}
	s.logger.Debug("document changed",
		slog.String("path", path),
		slog.String("op", ev.Op.String()),
		slog.String("removed", change.Removed.String()),
		slog.String("added", change.Added.String()))
	if onChange != nil {
		onChange(change)
	}
}

func watchTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
