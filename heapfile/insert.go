package heapfile

import (
	"github.com/tmarchal/heapdb/herrors"
	"github.com/tmarchal/heapdb/page"
)

// Insert is the insertion engine for one HeapFile: it keeps the tail data
// page pinned across any number of InsertRecord calls, extending the chain
// only when the current tail page runs out of space, and only then.
type Insert struct {
	hf *HeapFile

	tailFrame *pinnedFrame
	tailData  *page.Data

	maxRecLen int
}

// pinnedFrame pairs a buffer frame with the dirty flag this package
// accumulates for it, released in one place regardless of exit path.
type pinnedFrame struct {
	hf    *HeapFile
	pageNo int
	dirty bool
}

func (p *pinnedFrame) markDirty() { p.dirty = true }

func (p *pinnedFrame) release() error {
	return p.hf.bm.UnpinPage(p.hf.name, p.pageNo, p.dirty)
}

// NewInsert begins an insertion session against hf. If hf has no data pages
// yet, one is allocated and linked as both the first and last page of the
// chain.
func NewInsert(hf *HeapFile) (*Insert, error) {
	ins := &Insert{
		hf:        hf,
		maxRecLen: hf.bm.PageSize() - page.DPFixed - page.SlotEntrySize,
	}

	if hf.header.LastPage() == page.NoNextPage {
		if err := ins.appendPage(); err != nil {
			return nil, err
		}
		hf.header.SetFirstPage(ins.tailFrame.pageNo)
		hf.header.SetLastPage(ins.tailFrame.pageNo)
		hf.header.AddPage()
		hf.touchHeader()
		return ins, nil
	}

	frame, err := hf.bm.ReadPage(hf.name, hf.header.LastPage())
	if err != nil {
		return nil, herrors.Wrap(err, "insert: pin tail page")
	}
	ins.tailFrame = &pinnedFrame{hf: hf, pageNo: frame.Ref.PageNo}
	ins.tailData = page.NewData(frame.Data)
	return ins, nil
}

func (ins *Insert) appendPage() error {
	frame, err := ins.hf.bm.AllocPage(ins.hf.name)
	if err != nil {
		return herrors.Wrap(err, "insert: allocate data page")
	}
	page.Init(frame.Data)
	ins.tailFrame = &pinnedFrame{hf: ins.hf, pageNo: frame.Ref.PageNo}
	ins.tailData = page.NewData(frame.Data)
	return nil
}

// InsertRecord appends rec to the file's tail page, extending the chain
// with a new tail page if the current one has no room. Returns
// herrors.ErrInvalidRecLen if rec could never fit on any page regardless of
// free space.
func (ins *Insert) InsertRecord(rec []byte) (RID, error) {
	if len(rec) <= 0 || len(rec) > ins.maxRecLen {
		return RID{}, herrors.Wrapf(herrors.ErrInvalidRecLen, "record length %d exceeds page capacity %d", len(rec), ins.maxRecLen)
	}

	slot, err := ins.tailData.InsertRecord(rec)
	if err == nil {
		ins.tailFrame.markDirty()
		ins.hf.header.AddRecord(1)
		ins.hf.touchHeader()
		return RID{PageNo: ins.tailFrame.pageNo, Slot: slot}, nil
	}
	if !herrors.Is(err, herrors.ErrNoSpace) {
		return RID{}, err
	}

	oldPageNo := ins.tailFrame.pageNo
	if relErr := ins.tailFrame.release(); relErr != nil {
		return RID{}, herrors.Wrap(relErr, "insert: unpin full tail page")
	}
	if err := ins.appendPage(); err != nil {
		return RID{}, err
	}

	// re-pin the page we just released to chain it to the new tail; if the
	// allocation above evicted it, ReadPage faults it back in from disk.
	prevFrame, err := ins.hf.bm.ReadPage(ins.hf.name, oldPageNo)
	if err != nil {
		return RID{}, herrors.Wrap(err, "insert: re-pin previous tail page")
	}
	page.NewData(prevFrame.Data).SetNextPage(ins.tailFrame.pageNo)
	if err := ins.hf.bm.UnpinPage(ins.hf.name, oldPageNo, true); err != nil {
		return RID{}, herrors.Wrap(err, "insert: unpin chained page")
	}

	ins.hf.header.SetLastPage(ins.tailFrame.pageNo)
	ins.hf.header.AddPage()
	ins.hf.touchHeader()

	slot, err = ins.tailData.InsertRecord(rec)
	if err != nil {
		return RID{}, err
	}
	ins.tailFrame.markDirty()
	ins.hf.header.AddRecord(1)
	ins.hf.touchHeader()
	return RID{PageNo: ins.tailFrame.pageNo, Slot: slot}, nil
}

// Close unpins the current tail page. It must be called exactly once when
// the caller is done inserting.
func (ins *Insert) Close() error {
	if ins.tailFrame == nil {
		return nil
	}
	return ins.tailFrame.release()
}
