// Package heapfile implements the heap file layer proper: file lifecycle,
// the HeapFile handle, insertion, scanning and the single-attribute
// predicate evaluator, all built on diskstore, buffer and page.
package heapfile

import (
	"github.com/tmarchal/heapdb/buffer"
	"github.com/tmarchal/heapdb/diskstore"
	"github.com/tmarchal/heapdb/herrors"
	"github.com/tmarchal/heapdb/logging"
	"github.com/tmarchal/heapdb/page"
)

// Create allocates a new, empty heap file named name: a backing file
// holding a freshly formatted header page plus its first data page, linked
// as both the head and tail of the chain. Returns herrors.ErrFileExists if
// name is already in use.
func Create(store *diskstore.Store, bm *buffer.Manager, name string) error {
	if err := store.CreateFile(name); err != nil {
		return err
	}
	f, err := store.OpenFile(name)
	if err != nil {
		return herrors.Wrap(err, "create heap file: reopen for header init")
	}
	bm.RegisterFile(name, f)
	defer bm.UnregisterFile(name)
	defer f.Close()

	hdrFrame, err := bm.AllocPage(name)
	if err != nil {
		return herrors.Wrap(err, "create heap file: allocate header page")
	}
	header := page.InitHeader(hdrFrame.Data, name)

	dataFrame, err := bm.AllocPage(name)
	if err != nil {
		return herrors.Wrap(err, "create heap file: allocate first data page")
	}
	page.Init(dataFrame.Data)

	header.SetFirstPage(dataFrame.Ref.PageNo)
	header.SetLastPage(dataFrame.Ref.PageNo)
	header.AddPage()

	if err := bm.UnpinPage(name, dataFrame.Ref.PageNo, true); err != nil {
		return herrors.Wrap(err, "create heap file: unpin first data page")
	}
	if err := bm.UnpinPage(name, hdrFrame.Ref.PageNo, true); err != nil {
		return herrors.Wrap(err, "create heap file: unpin header page")
	}
	if err := bm.FlushFile(name); err != nil {
		return herrors.Wrap(err, "create heap file: flush new file")
	}
	logging.L().Info().Str("file", name).Msg("created heap file")
	return nil
}

// Destroy removes a heap file's backing storage. The caller must ensure no
// HeapFile handle for name is currently open.
func Destroy(store *diskstore.Store, name string) error {
	if err := store.DestroyFile(name); err != nil {
		return err
	}
	logging.L().Info().Str("file", name).Msg("destroyed heap file")
	return nil
}
