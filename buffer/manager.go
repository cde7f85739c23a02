// Package buffer is the buffer manager collaborator: a fixed pool of pinned
// page frames shared across every open heap file, with LRU or MRU
// replacement.
package buffer

import (
	"container/list"
	"encoding/binary"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"

	"github.com/tmarchal/heapdb/config"
	"github.com/tmarchal/heapdb/diskstore"
	"github.com/tmarchal/heapdb/herrors"
	"github.com/tmarchal/heapdb/logging"
)

// ReplacementPolicy is re-exported from config for callers that only import
// buffer.
type ReplacementPolicy = config.ReplacementPolicy

const (
	PolicyLRU = config.PolicyLRU
	PolicyMRU = config.PolicyMRU
)

// PageRef identifies a page within a named, currently-registered file.
type PageRef struct {
	FileID string
	PageNo int
}

func (r PageRef) key() uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], xxhash.Sum64String(r.FileID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(r.PageNo))
	return xxhash.Sum64(buf[:])
}

// Frame is one pinned page buffer.
type Frame struct {
	Ref      PageRef
	Data     []byte
	PinCount int
	Dirty    bool
}

// Manager is the shared pool. Files must be registered (by a diskstore.File
// already opened by the caller) before their pages can be faulted in.
type Manager struct {
	cfg    *config.DBConfig
	mu     sync.Mutex
	policy ReplacementPolicy
	frames []*Frame
	free   *bitset.BitSet
	repl   *list.List
	lookup map[uint64]*list.Element
	files  map[string]*diskstore.File
}

// NewManager builds a pool of cfg.BufferPoolPages frames.
func NewManager(cfg *config.DBConfig) *Manager {
	n := cfg.BufferPoolPages
	m := &Manager{
		cfg:    cfg,
		policy: cfg.ReplacementPolicy,
		frames: make([]*Frame, n),
		free:   bitset.New(uint(n)),
		repl:   list.New(),
		lookup: make(map[uint64]*list.Element),
		files:  make(map[string]*diskstore.File),
	}
	if m.policy == "" {
		m.policy = PolicyLRU
	}
	for i := 0; i < n; i++ {
		m.frames[i] = &Frame{Data: make([]byte, cfg.PageSize)}
		m.free.Set(uint(i))
	}
	return m
}

// PageSize returns the page size frames in this pool are sized to.
func (m *Manager) PageSize() int {
	return m.cfg.PageSize
}

// RegisterFile makes f's pages reachable under fileID. Callers must
// UnregisterFile before closing f.
func (m *Manager) RegisterFile(fileID string, f *diskstore.File) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[fileID] = f
}

// UnregisterFile drops fileID, after the caller has flushed it.
func (m *Manager) UnregisterFile(fileID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, fileID)
}

func (m *Manager) firstFreeFrame() (int, bool) {
	i, ok := m.free.NextSet(0)
	if !ok {
		return 0, false
	}
	return int(i), true
}

// AllocPage grows fileID by one page and returns it pinned, uninitialized.
func (m *Manager) AllocPage(fileID string) (*Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileID]
	if !ok {
		return nil, herrors.Wrapf(herrors.ErrFileStore, "file %s not registered", fileID)
	}
	pageNo, err := f.AllocatePage()
	if err != nil {
		return nil, herrors.Wrap(err, "allocate page")
	}
	ref := PageRef{FileID: fileID, PageNo: pageNo}
	return m.load(ref, true)
}

// ReadPage pins and returns the page, faulting it in from fileID if it is
// not already cached.
func (m *Manager) ReadPage(fileID string, pageNo int) (*Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := PageRef{FileID: fileID, PageNo: pageNo}
	return m.load(ref, false)
}

// load must be called with m.mu held.
func (m *Manager) load(ref PageRef, blank bool) (*Frame, error) {
	key := ref.key()
	if el, ok := m.lookup[key]; ok {
		fr := el.Value.(*Frame)
		fr.PinCount++
		m.touch(el)
		return fr, nil
	}

	idx, ok := m.firstFreeFrame()
	var fr *Frame
	if ok {
		fr = m.frames[idx]
		m.free.Clear(uint(idx))
	} else {
		victimEl, err := m.evict()
		if err != nil {
			return nil, err
		}
		fr = victimEl.Value.(*Frame)
		delete(m.lookup, fr.Ref.key())
	}

	if blank {
		for i := range fr.Data {
			fr.Data[i] = 0
		}
	} else {
		f, ok := m.files[ref.FileID]
		if !ok {
			return nil, herrors.Wrapf(herrors.ErrFileStore, "file %s not registered", ref.FileID)
		}
		data, err := f.ReadPage(ref.PageNo)
		if err != nil {
			return nil, herrors.Wrap(err, "buffer manager read")
		}
		copy(fr.Data, data)
	}
	fr.Ref = ref
	fr.PinCount = 1
	fr.Dirty = blank

	el := m.repl.PushBack(fr)
	m.lookup[key] = el
	return fr, nil
}

// touch moves el to the most-recently-used end (the back) of the list.
// evict takes victims from the front under LRU and from the back under MRU.
func (m *Manager) touch(el *list.Element) {
	m.repl.MoveToBack(el)
}

// evict must be called with m.mu held. It selects, flushes if dirty, and
// detaches a victim frame with a zero pin count.
func (m *Manager) evict() (*list.Element, error) {
	var el *list.Element
	if m.policy == PolicyMRU {
		el = m.repl.Back()
	} else {
		el = m.repl.Front()
	}
	for el != nil {
		fr := el.Value.(*Frame)
		if fr.PinCount == 0 {
			break
		}
		if m.policy == PolicyMRU {
			el = el.Prev()
		} else {
			el = el.Next()
		}
	}
	if el == nil {
		return nil, herrors.Wrap(herrors.ErrBufMgr, "no unpinned frame available for eviction")
	}
	fr := el.Value.(*Frame)
	if fr.Dirty {
		f, ok := m.files[fr.Ref.FileID]
		if !ok {
			return nil, herrors.Wrapf(herrors.ErrFileStore, "file %s not registered", fr.Ref.FileID)
		}
		if err := f.WritePage(fr.Ref.PageNo, fr.Data); err != nil {
			return nil, herrors.Wrap(err, "evict: write back dirty frame")
		}
		logging.L().Debug().Str("file", fr.Ref.FileID).Int("page", fr.Ref.PageNo).Msg("evicted dirty frame")
	}
	m.repl.Remove(el)
	return el, nil
}

// UnpinPage decrements the pin count. dirty, once set for a frame, is never
// cleared by an unpin that passes false; only a flush clears it.
func (m *Manager) UnpinPage(fileID string, pageNo int, dirty bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := PageRef{FileID: fileID, PageNo: pageNo}
	el, ok := m.lookup[ref.key()]
	if !ok {
		return herrors.ErrPageNotPinned
	}
	fr := el.Value.(*Frame)
	if fr.PinCount == 0 {
		return herrors.ErrPageNotPinned
	}
	fr.PinCount--
	if dirty {
		fr.Dirty = true
	}
	return nil
}

// FlushFile writes back every dirty frame belonging to fileID and clears
// their dirty bits, without unpinning or evicting them.
func (m *Manager) FlushFile(fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileID]
	if !ok {
		return herrors.Wrapf(herrors.ErrFileStore, "file %s not registered", fileID)
	}
	for e := m.repl.Front(); e != nil; e = e.Next() {
		fr := e.Value.(*Frame)
		if fr.Ref.FileID != fileID || !fr.Dirty {
			continue
		}
		if err := f.WritePage(fr.Ref.PageNo, fr.Data); err != nil {
			return herrors.Wrap(err, "flush file")
		}
		fr.Dirty = false
	}
	return f.Sync()
}
