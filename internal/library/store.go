// Package library indexes IP-XACT documents on disk by VLNV and loads their
// models on demand.
package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/ipxact"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/vlnv"
)

// ErrNotFound is returned when a VLNV is not in the library.
var ErrNotFound = errors.New("document not found in library")

// Library is the lookup capability the validators and walkers consume.
// Lookups compare the vendor, library, name and version of the key; the
// document type of the key is ignored.
type Library interface {
	Contains(v vlnv.VLNV) bool
	GetDocumentType(v vlnv.VLNV) vlnv.DocumentType
	GetModel(v vlnv.VLNV) (ipxact.Document, error)
	GetPath(v vlnv.VLNV) string
}

type entry struct {
	id   vlnv.VLNV
	rev  ipxact.Revision
	path string
	doc  ipxact.Document
}

// Store is a Library backed by document files. Identities are read from the
// file headers when the store opens; full models are read on first GetModel.
// A Store is safe for concurrent use.
type Store struct {
	logger   *slog.Logger
	cacheDir string
	timing   string
	parallel int
	accept   func(path string) bool

	mu      sync.RWMutex
	roots   []string
	entries map[vlnv.VLNV]*entry
	byPath  map[string]vlnv.VLNV
	cache   *identityCache
	events  []TimingEvent
}

var _ Library = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for scan diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCache keeps header identities in dir across runs.
func WithCache(dir string) Option {
	return func(s *Store) { s.cacheDir = dir }
}

// WithTiming writes scan timing events as JSON lines to path.
func WithTiming(path string) Option {
	return func(s *Store) { s.timing = path }
}

// WithParallelism bounds the number of files read concurrently. Zero means
// one per CPU.
func WithParallelism(n int) Option {
	return func(s *Store) { s.parallel = n }
}

// WithFilter limits the store to document files accepted by fn, both when
// scanning directory roots and when Watch sees a file change.
func WithFilter(fn func(path string) bool) Option {
	return func(s *Store) { s.accept = fn }
}

// accepts reports whether path may enter the store.
func (s *Store) accepts(path string) bool {
	return s.accept == nil || s.accept(path)
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		logger:  slog.Default(),
		entries: make(map[vlnv.VLNV]*entry),
		byPath:  make(map[string]vlnv.VLNV),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "library"))
	if s.cacheDir != "" {
		s.cache = newIdentityCache(s.cacheDir)
	}
	return s
}

// Open scans roots, each a document file or a directory searched for .xml
// files, and indexes every IP-XACT document found. Files that are not IP-XACT
// are skipped. When two files declare the same VLNV the first path in lexical
// order wins and the other is logged.
func Open(ctx context.Context, roots []string, opts ...Option) (*Store, error) {
	s := New(opts...)
	s.roots = append(s.roots, roots...)

	start := time.Now()
	tr, err := newTimingRecorder(start, s.timing)
	if err != nil {
		return nil, fmt.Errorf("timing log: %w", err)
	}
	defer tr.Close()

	if s.cache != nil {
		if err := s.cache.Load(); err != nil {
			s.logger.Warn("ignoring identity cache", slog.String("error", err.Error()))
		}
	}

	stageStart := time.Now()
	files, err := collectFiles(roots)
	if err != nil {
		tr.Stage("discover", "error", stageStart)
		return nil, err
	}
	if s.accept != nil {
		kept := files[:0]
		for _, f := range files {
			if s.accept(f) {
				kept = append(kept, f)
			}
		}
		files = kept
	}
	tr.Stage("discover", "ok", stageStart)

	stageStart = time.Now()
	idents := make([]*entry, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism())
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fileStart := time.Now()
			e, status := s.identify(path)
			tr.File("identify", path, status, fileStart)
			idents[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		tr.Stage("identify", "canceled", stageStart)
		return nil, err
	}
	tr.Stage("identify", "ok", stageStart)

	for _, e := range idents {
		if e != nil {
			s.insert(e)
		}
	}

	if s.cache != nil {
		if err := s.cache.Save(); err != nil {
			s.logger.Warn("identity cache not saved", slog.String("error", err.Error()))
		}
	}
	s.events = tr.Events()
	s.logger.Debug("library opened",
		slog.Int("files", len(files)),
		slog.Int("documents", len(s.entries)),
		slog.Duration("elapsed", time.Since(start)))
	return s, nil
}

func (s *Store) parallelism() int {
	if s.parallel > 0 {
		return s.parallel
	}
	return runtime.NumCPU()
}

// identify reads the header of one file, through the cache when enabled.
func (s *Store) identify(path string) (*entry, string) {
	hash := ""
	if s.cache != nil {
		h, err := hashFile(path)
		if err != nil {
			s.logger.Warn("unreadable document", slog.String("path", path), slog.String("error", err.Error()))
			return nil, "error"
		}
		hash = h
		if cached, ok := s.cache.Get(path, hash); ok {
			return &entry{id: cached.VLNV, rev: cached.Revision, path: path}, "cached"
		}
	}

	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn("unreadable document", slog.String("path", path), slog.String("error", err.Error()))
		return nil, "error"
	}
	defer f.Close()

	id, rev, err := ipxact.ReadIdentity(f)
	if err != nil {
		if errors.Is(err, ipxact.ErrUnknownDocument) {
			s.logger.Debug("skipping non IP-XACT file", slog.String("path", path))
			return nil, "skipped"
		}
		s.logger.Warn("malformed document", slog.String("path", path), slog.String("error", err.Error()))
		return nil, "error"
	}
	if s.cache != nil {
		s.cache.Put(path, identityEntry{ContentHash: hash, VLNV: id, Revision: rev})
	}
	return &entry{id: id, rev: rev, path: path}, "read"
}

func (s *Store) insert(e *entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(e)
}

func (s *Store) insertLocked(e *entry) bool {
	key := e.id.Key()
	if existing, ok := s.entries[key]; ok {
		s.logger.Warn("duplicate VLNV ignored",
			slog.String("vlnv", e.id.String()),
			slog.String("kept", existing.path),
			slog.String("ignored", e.path))
		return false
	}
	s.entries[key] = e
	if e.path != "" {
		s.byPath[e.path] = key
	}
	return true
}

// Add registers a document that is already in memory. path may be empty.
func (s *Store) Add(path string, doc ipxact.Document) error {
	if doc == nil {
		return errors.New("library: nil document")
	}
	id := doc.Identity()
	if !id.IsValid() {
		return fmt.Errorf("library: %w: %q", vlnv.ErrMalformed, id.String())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.insertLocked(&entry{id: id, rev: doc.StdRevision(), path: path, doc: doc}) {
		return fmt.Errorf("library: duplicate VLNV %s", id)
	}
	return nil
}

func (s *Store) lookup(v vlnv.VLNV) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[v.Key()]
	return e, ok
}

func (s *Store) Contains(v vlnv.VLNV) bool {
	_, ok := s.lookup(v)
	return ok
}

// GetDocumentType reports the type of the stored document, or vlnv.Invalid
// when v is not in the library.
func (s *Store) GetDocumentType(v vlnv.VLNV) vlnv.DocumentType {
	if e, ok := s.lookup(v); ok {
		return e.id.Type
	}
	return vlnv.Invalid
}

// GetModel returns the document for v, reading it from disk the first time.
func (s *Store) GetModel(v vlnv.VLNV) (ipxact.Document, error) {
	e, ok := s.lookup(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, v)
	}

	s.mu.RLock()
	doc := e.doc
	s.mu.RUnlock()
	if doc != nil {
		return doc, nil
	}

	doc, err := ipxact.ReadFile(e.path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", v, err)
	}
	s.mu.Lock()
	if e.doc == nil {
		e.doc = doc
	}
	doc = e.doc
	s.mu.Unlock()
	return doc, nil
}

// GetPath returns the file a document was read from, or "".
func (s *Store) GetPath(v vlnv.VLNV) string {
	if e, ok := s.lookup(v); ok {
		return e.path
	}
	return ""
}

// Revision returns the schema revision of a stored document.
func (s *Store) Revision(v vlnv.VLNV) ipxact.Revision {
	if e, ok := s.lookup(v); ok {
		return e.rev
	}
	return ipxact.RevisionUnknown
}

// AllVLNVs lists every stored document, typed, in vlnv.Compare order.
func (s *Store) AllVLNVs() []vlnv.VLNV {
	s.mu.RLock()
	ids := make([]vlnv.VLNV, 0, len(s.entries))
	for _, e := range s.entries {
		ids = append(ids, e.id)
	}
	s.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return vlnv.Compare(ids[i], ids[j]) < 0 })
	return ids
}

// Latest returns the highest version of vendor:library:name.
func (s *Store) Latest(vendor, library, name string) (vlnv.VLNV, bool) {
	var best vlnv.VLNV
	found := false
	for _, id := range s.AllVLNVs() {
		if id.Vendor != vendor || id.Library != library || id.Name != name {
			continue
		}
		if !found || vlnv.CompareVersions(id.Version, best.Version) > 0 {
			best, found = id, true
		}
	}
	return best, found
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// TimingEvents returns the events recorded while the store opened.
func (s *Store) TimingEvents() []TimingEvent {
	return s.events
}

// Refresh re-reads the header of path after it changed on disk and drops its
// cached model. It returns the identity the path now holds, if any.
func (s *Store) Refresh(path string) (vlnv.VLNV, bool) {
	s.Forget(path)
	if _, err := os.Stat(path); err != nil {
		return vlnv.VLNV{}, false
	}
	e, _ := s.identify(path)
	if e == nil || !s.insert(e) {
		return vlnv.VLNV{}, false
	}
	if s.cache != nil {
		if err := s.cache.Save(); err != nil {
			s.logger.Warn("identity cache not saved", slog.String("error", err.Error()))
		}
	}
	return e.id, true
}

// Forget removes the document read from path. It returns the identity that
// was removed, if any.
func (s *Store) Forget(path string) (vlnv.VLNV, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byPath[path]
	if !ok {
		return vlnv.VLNV{}, false
	}
	e := s.entries[key]
	delete(s.byPath, path)
	delete(s.entries, key)
	if s.cache != nil {
		s.cache.Delete(path)
	}
	return e.id, true
}

// collectFiles expands roots into a sorted, de-duplicated list of .xml files.
func collectFiles(roots []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("library root: %w", err)
		}
		if !info.IsDir() {
			add(filepath.Clean(root))
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if isDocumentFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", root, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

func isDocumentFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}
