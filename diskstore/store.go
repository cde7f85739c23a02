// Package diskstore is the raw file store collaborator: one OS file per
// heap file, monotonically growing page allocation, no free-space map.
// Pages are never freed during normal operation, so unlike a general
// purpose page allocator this one never needs to track holes.
package diskstore

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/dsnet/golib/memfile"
	"github.com/google/uuid"
	"github.com/ncw/directio"
	"golang.org/x/sys/unix"

	"github.com/tmarchal/heapdb/config"
	"github.com/tmarchal/heapdb/herrors"
	"github.com/tmarchal/heapdb/logging"
)

// pageRW is the narrow surface File needs from its backing storage: a real
// *os.File in production, an in-memory *memfile.File in tests so page-store
// unit tests can run without touching the filesystem.
type pageRW interface {
	io.ReaderAt
	io.WriterAt
	Sync() error
	Close() error
}

type memRW struct {
	*memfile.File
}

func (m memRW) Sync() error { return nil }

// Store resolves heap file names to backing files under one data
// directory, mirroring config.DBConfig.DataDir.
type Store struct {
	cfg *config.DBConfig
}

// NewStore returns a Store rooted at cfg.DataDir, creating the directory if
// it does not already exist.
func NewStore(cfg *config.DBConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, herrors.Wrap(err, "create data dir")
	}
	return &Store{cfg: cfg}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.cfg.DataDir, name+".heap")
}

// CreateFile creates a new, empty backing file for name. Returns
// herrors.ErrFileExists if one already exists.
func (s *Store) CreateFile(name string) error {
	p := s.path(name)
	if _, err := os.Stat(p); err == nil {
		return herrors.ErrFileExists
	} else if !os.IsNotExist(err) {
		return herrors.Wrap(err, "stat backing file")
	}
	f, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return herrors.Wrap(err, "create backing file")
	}
	return f.Close()
}

// DestroyFile removes the backing file for name. The caller must ensure no
// File handle for name is currently open.
func (s *Store) DestroyFile(name string) error {
	p := s.path(name)
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return herrors.Wrap(err, "remove backing file")
	}
	return nil
}

// File is an open handle on one heap file's backing store.
type File struct {
	SessionID uuid.UUID

	mu       sync.Mutex
	rw       pageRW
	pageSize int
	numPages int
	name     string
	directIO bool
}

func (f *File) newPageBuf() []byte {
	if f.directIO {
		return directio.AlignedBlock(f.pageSize)
	}
	return make([]byte, f.pageSize)
}

// OpenFile opens name for page-level I/O, taking an advisory exclusive lock
// so a second OpenFile on the same backing file fails fast while this handle
// is open. DestroyFile does not check the lock.
func (s *Store) OpenFile(name string) (*File, error) {
	p := s.path(name)
	var f *os.File
	var err error
	if s.cfg.DirectIO {
		f, err = directio.OpenFile(p, os.O_RDWR, 0o644)
	} else {
		f, err = os.OpenFile(p, os.O_RDWR, 0o644)
	}
	if err != nil {
		return nil, herrors.Wrap(err, "open backing file")
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, herrors.Wrapf(err, "file %s is already open elsewhere", name)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, herrors.Wrap(err, "stat backing file")
	}
	ps := s.cfg.PageSize
	numPages := int(st.Size() / int64(ps))

	sid := uuid.New()
	logging.For("diskstore", sid.String()).Info().Str("file", name).Int("pages", numPages).Msg("opened heap file")

	return &File{
		SessionID: sid,
		rw:        f,
		pageSize:  ps,
		numPages:  numPages,
		name:      name,
		directIO:  s.cfg.DirectIO,
	}, nil
}

// OpenMemFile opens an in-memory backing store of numPages existing pages,
// for tests that exercise page-store logic without touching the filesystem.
func OpenMemFile(pageSize, numPages int) *File {
	data := make([]byte, pageSize*numPages)
	return &File{
		SessionID: uuid.New(),
		rw:        memRW{memfile.New(data)},
		pageSize:  pageSize,
		numPages:  numPages,
		name:      "mem",
	}
}

// Close releases the file handle and its advisory lock.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rw == nil {
		return nil
	}
	err := f.rw.Close()
	logging.For("diskstore", f.SessionID.String()).Info().Str("file", f.name).Msg("closed heap file")
	f.rw = nil
	return herrors.Wrap(err, "close backing file")
}

// AllocatePage appends one zero-filled page to the file and returns its
// page number. Pages are never reused once allocated.
func (f *File) AllocatePage() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rw == nil {
		return 0, herrors.ErrNotOpen
	}
	pageNo := f.numPages
	off := int64(pageNo) * int64(f.pageSize)
	buf := f.newPageBuf()
	if _, err := f.rw.WriteAt(buf, off); err != nil {
		return 0, herrors.Wrap(err, "allocate page")
	}
	f.numPages++
	return pageNo, nil
}

// ReadPage reads exactly one page's worth of bytes.
func (f *File) ReadPage(pageNo int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rw == nil {
		return nil, herrors.ErrNotOpen
	}
	if pageNo < 0 || pageNo >= f.numPages {
		return nil, herrors.Wrapf(herrors.ErrFileEOF, "page %d out of range", pageNo)
	}
	buf := f.newPageBuf()
	off := int64(pageNo) * int64(f.pageSize)
	if _, err := f.rw.ReadAt(buf, off); err != nil {
		return nil, herrors.Wrap(err, "read page")
	}
	return buf, nil
}

// WritePage writes exactly one page's worth of bytes at pageNo.
func (f *File) WritePage(pageNo int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rw == nil {
		return herrors.ErrNotOpen
	}
	if pageNo < 0 || pageNo >= f.numPages {
		return herrors.Wrapf(herrors.ErrFileEOF, "page %d out of range", pageNo)
	}
	if len(data) != f.pageSize {
		return herrors.Wrapf(herrors.ErrInvalidRecLen, "page write length %d != page size %d", len(data), f.pageSize)
	}
	off := int64(pageNo) * int64(f.pageSize)
	if _, err := f.rw.WriteAt(data, off); err != nil {
		return herrors.Wrap(err, "write page")
	}
	return nil
}

// Sync flushes the backing file to stable storage.
func (f *File) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rw == nil {
		return herrors.ErrNotOpen
	}
	return herrors.Wrap(f.rw.Sync(), "sync backing file")
}

// GetFirstPage returns the page number of the file's first page (its header
// page, by heapfile convention), or herrors.ErrFileEOF if the file is empty.
func (f *File) GetFirstPage() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rw == nil {
		return 0, herrors.ErrNotOpen
	}
	if f.numPages == 0 {
		return 0, herrors.ErrFileEOF
	}
	return 0, nil
}

// NumPages returns the current page count of the file.
func (f *File) NumPages() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.numPages
}

// PageSize returns the store's configured page size.
func (s *Store) PageSize() int {
	return s.cfg.PageSize
}
