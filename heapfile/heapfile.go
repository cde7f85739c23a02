package heapfile

import (
	"github.com/tmarchal/heapdb/buffer"
	"github.com/tmarchal/heapdb/diskstore"
	"github.com/tmarchal/heapdb/herrors"
	"github.com/tmarchal/heapdb/logging"
	"github.com/tmarchal/heapdb/page"
)

// RID addresses a record by the page it lives on and its slot within that
// page's slot directory.
type RID = page.RID

// HeapFile is an open handle on one heap file. Its header page is pinned
// for the handle's entire lifetime, mirroring the original Minibase design:
// every header field read goes through memory, not a fresh disk read, and
// mutations are flushed exactly once, at Close.
type HeapFile struct {
	name string
	bm   *buffer.Manager
	file *diskstore.File

	headerFrame *buffer.Frame
	header      *page.Header
	headerDirty bool
}

// Open pins the header page of an existing heap file and returns a handle
// to it, registering the file's pages with bm.
func Open(store *diskstore.Store, bm *buffer.Manager, name string) (*HeapFile, error) {
	f, err := store.OpenFile(name)
	if err != nil {
		return nil, herrors.Wrap(err, "open heap file")
	}
	bm.RegisterFile(name, f)

	frame, err := bm.ReadPage(name, 0)
	if err != nil {
		bm.UnregisterFile(name)
		f.Close()
		return nil, herrors.Wrap(err, "open heap file: pin header page")
	}

	hf := &HeapFile{
		name:        name,
		bm:          bm,
		file:        f,
		headerFrame: frame,
		header:      page.NewHeader(frame.Data),
	}
	logging.For("heapfile", f.SessionID.String()).Info().Str("file", name).Msg("opened heap file")
	return hf, nil
}

// touchHeader marks the header page dirty; callers call this whenever they
// mutate a header field in place.
func (hf *HeapFile) touchHeader() {
	hf.headerDirty = true
}

// Close unpins the header page, flushes every dirty page belonging to this
// file, and releases the underlying backing file. Individual unpin/flush
// failures are logged and do not prevent the remaining teardown steps from
// running, matching the original HeapFile destructor's tolerance for a
// failed cleanup step.
func (hf *HeapFile) Close() error {
	log := logging.For("heapfile", hf.file.SessionID.String())
	log.Info().Str("file", hf.name).Msg("closing heap file")

	var firstErr error
	if err := hf.bm.UnpinPage(hf.name, hf.headerFrame.Ref.PageNo, hf.headerDirty); err != nil {
		log.Warn().Err(err).Msg("unpin header page failed during close")
		if firstErr == nil {
			firstErr = err
		}
	}
	if err := hf.bm.FlushFile(hf.name); err != nil {
		log.Warn().Err(err).Msg("flush failed during close")
		if firstErr == nil {
			firstErr = err
		}
	}
	hf.bm.UnregisterFile(hf.name)
	if err := hf.file.Close(); err != nil {
		log.Warn().Err(err).Msg("close backing file failed")
		if firstErr == nil {
			firstErr = err
		}
	}
	return herrors.Wrap(firstErr, "close heap file")
}

// Name returns the heap file's name.
func (hf *HeapFile) Name() string { return hf.name }

// RecordCount returns the number of live records across the whole file.
func (hf *HeapFile) RecordCount() int {
	return hf.header.RecordCount()
}

// GetRecord returns the bytes stored at rid. herrors.ErrInvalidRecLen is
// returned if rid names a deleted or out-of-range slot.
func (hf *HeapFile) GetRecord(rid RID) ([]byte, error) {
	frame, err := hf.bm.ReadPage(hf.name, rid.PageNo)
	if err != nil {
		return nil, herrors.Wrap(err, "get record: pin page")
	}
	defer hf.bm.UnpinPage(hf.name, rid.PageNo, false)

	d := page.NewData(frame.Data)
	rec, err := d.GetRecord(rid.Slot)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
