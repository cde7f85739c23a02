// Package registry tracks which named heap files are currently open against
// one shared buffer pool and file store, the way db.DBManager tracked open
// relations in the teacher repo, minus any schema, SQL or catalog concept:
// this package only knows names and open handles.
package registry

import (
	"sync"

	"github.com/tmarchal/heapdb/buffer"
	"github.com/tmarchal/heapdb/config"
	"github.com/tmarchal/heapdb/diskstore"
	"github.com/tmarchal/heapdb/heapfile"
	"github.com/tmarchal/heapdb/herrors"
)

// Env is a shared buffer pool and file store plus the set of heap files
// currently open against them.
type Env struct {
	cfg   *config.DBConfig
	store *diskstore.Store
	bm    *buffer.Manager

	mu   sync.Mutex
	open map[string]*heapfile.HeapFile
}

// New builds an Env rooted at cfg.DataDir with one shared buffer pool sized
// per cfg.BufferPoolPages.
func New(cfg *config.DBConfig) (*Env, error) {
	store, err := diskstore.NewStore(cfg)
	if err != nil {
		return nil, err
	}
	return &Env{
		cfg:   cfg,
		store: store,
		bm:    buffer.NewManager(cfg),
		open:  make(map[string]*heapfile.HeapFile),
	}, nil
}

// Create makes a new, empty heap file named name.
func (e *Env) Create(name string) error {
	return heapfile.Create(e.store, e.bm, name)
}

// Open returns the heap file named name, opening it if this is the first
// request for it and reusing the existing handle otherwise.
func (e *Env) Open(name string) (*heapfile.HeapFile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if hf, ok := e.open[name]; ok {
		return hf, nil
	}
	hf, err := heapfile.Open(e.store, e.bm, name)
	if err != nil {
		return nil, err
	}
	e.open[name] = hf
	return hf, nil
}

// Close closes a previously Open'd heap file.
func (e *Env) Close(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	hf, ok := e.open[name]
	if !ok {
		return herrors.ErrNotOpen
	}
	delete(e.open, name)
	return hf.Close()
}

// Destroy removes name's backing storage. It must not currently be open.
func (e *Env) Destroy(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.open[name]; ok {
		return herrors.Wrapf(herrors.ErrFileStore, "heap file %s is still open", name)
	}
	return heapfile.Destroy(e.store, name)
}

// CloseAll closes every currently open heap file, collecting (not stopping
// on) the first error encountered.
func (e *Env) CloseAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var firstErr error
	for name, hf := range e.open {
		if err := hf.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(e.open, name)
	}
	return firstErr
}
