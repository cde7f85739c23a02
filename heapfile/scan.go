package heapfile

import (
	"github.com/tmarchal/heapdb/herrors"
	"github.com/tmarchal/heapdb/page"
)

// Scan is a forward-only iterator over every record in a heap file, with an
// optional single-attribute predicate and mark/reset checkpoints. At most
// one data page is pinned at a time: the page the cursor currently sits on.
type Scan struct {
	hf   *HeapFile
	pred *Predicate

	curPageNo int
	curSlot   int
	curDirty  bool
	started   bool

	markPageNo int
	markSlot   int
	markSet    bool
}

// StartScan begins a new scan over hf. A nil pred matches every record.
// A non-nil pred is validated eagerly: herrors.ErrBadScanParam is returned
// if its window or operator is ill-formed, before any page is touched.
func StartScan(hf *HeapFile, pred *Predicate) (*Scan, error) {
	if pred != nil {
		if err := pred.validate(); err != nil {
			return nil, err
		}
	}
	return &Scan{hf: hf, pred: pred, curPageNo: page.NoNextPage, curSlot: -1}, nil
}

// EndScan releases the currently pinned page, if any. Safe to call more
// than once.
func (s *Scan) EndScan() error {
	if s.curPageNo == page.NoNextPage {
		return nil
	}
	err := s.hf.bm.UnpinPage(s.hf.name, s.curPageNo, s.curDirty)
	s.curPageNo = page.NoNextPage
	s.curDirty = false
	s.started = false
	return err
}

// ScanNext advances to the next record matching the predicate and returns
// its RID. Returns herrors.ErrFileEOF once the chain is exhausted, and on
// every later call until a ResetScan moves the cursor back.
func (s *Scan) ScanNext() (RID, error) {
	// exhausted is stored in curSlot when the end of the chain is reached.
	const exhausted = -2
	for {
		if s.curPageNo == page.NoNextPage {
			if s.curSlot == exhausted {
				return RID{}, herrors.ErrFileEOF
			}
			first := s.hf.header.FirstPage()
			if first == page.NoNextPage {
				return RID{}, herrors.ErrFileEOF
			}
			if err := s.pinPage(first); err != nil {
				return RID{}, err
			}
			s.curSlot = -1
		}

		d, err := s.currentData()
		if err != nil {
			return RID{}, err
		}

		var slot int
		if s.curSlot < 0 {
			slot, err = d.FirstRecord()
		} else {
			slot, err = d.NextRecord(s.curSlot)
		}
		if err != nil {
			if !herrors.Is(err, herrors.ErrNoRecords) {
				return RID{}, err
			}
			next := d.NextPage()
			if unpinErr := s.hf.bm.UnpinPage(s.hf.name, s.curPageNo, s.curDirty); unpinErr != nil {
				return RID{}, herrors.Wrap(unpinErr, "scan: unpin exhausted page")
			}
			s.curPageNo = page.NoNextPage
			s.curDirty = false
			if next == page.NoNextPage {
				s.curSlot = exhausted
				return RID{}, herrors.ErrFileEOF
			}
			if err := s.pinPage(next); err != nil {
				return RID{}, err
			}
			s.curSlot = -1
			continue
		}

		s.curSlot = slot
		s.started = true
		rec, err := d.GetRecord(slot)
		if err != nil {
			return RID{}, err
		}
		if s.pred != nil {
			ok, err := s.pred.Matches(rec)
			if err != nil {
				return RID{}, err
			}
			if !ok {
				continue
			}
		}
		return RID{PageNo: s.curPageNo, Slot: slot}, nil
	}
}

func (s *Scan) pinPage(pageNo int) error {
	_, err := s.hf.bm.ReadPage(s.hf.name, pageNo)
	if err != nil {
		return herrors.Wrap(err, "scan: pin page")
	}
	s.curPageNo = pageNo
	s.curDirty = false
	return nil
}

func (s *Scan) currentData() (*page.Data, error) {
	frame, err := s.hf.bm.ReadPage(s.hf.name, s.curPageNo)
	if err != nil {
		return nil, herrors.Wrap(err, "scan: re-derive current page")
	}
	if unpinErr := s.hf.bm.UnpinPage(s.hf.name, s.curPageNo, false); unpinErr != nil {
		return nil, herrors.Wrap(unpinErr, "scan: rebalance pin count")
	}
	return page.NewData(frame.Data), nil
}

// GetCurrent returns the record the cursor currently sits on.
func (s *Scan) GetCurrent() ([]byte, error) {
	if !s.started {
		return nil, herrors.ErrBadScanParam
	}
	d, err := s.currentData()
	if err != nil {
		return nil, err
	}
	return d.GetRecord(s.curSlot)
}

// MarkDirty flags the page the cursor currently sits on as modified, so it
// is written back when it is eventually unpinned.
func (s *Scan) MarkDirty() error {
	if !s.started {
		return herrors.ErrBadScanParam
	}
	s.curDirty = true
	return nil
}

// DeleteCurrent tombstones the record the cursor currently sits on.
func (s *Scan) DeleteCurrent() error {
	if !s.started {
		return herrors.ErrBadScanParam
	}
	d, err := s.currentData()
	if err != nil {
		return err
	}
	if err := d.DeleteRecord(s.curSlot); err != nil {
		return err
	}
	s.curDirty = true
	s.hf.header.AddRecord(-1)
	s.hf.touchHeader()
	return nil
}

// MarkScan checkpoints the cursor's current position for a later ResetScan.
func (s *Scan) MarkScan() error {
	if !s.started {
		return herrors.ErrBadScanParam
	}
	s.markPageNo = s.curPageNo
	s.markSlot = s.curSlot
	s.markSet = true
	return nil
}

// ResetScan rewinds the cursor to the last MarkScan checkpoint.
func (s *Scan) ResetScan() error {
	if !s.markSet {
		return herrors.ErrBadScanParam
	}
	if s.curPageNo != s.markPageNo {
		if s.curPageNo != page.NoNextPage {
			if err := s.hf.bm.UnpinPage(s.hf.name, s.curPageNo, s.curDirty); err != nil {
				return herrors.Wrap(err, "reset scan: unpin current page")
			}
		}
		if err := s.pinPage(s.markPageNo); err != nil {
			return err
		}
	}
	s.curSlot = s.markSlot
	s.started = true
	return nil
}
