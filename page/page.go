// Package page implements the on-disk page layout: a slotted data page
// holding variable-length records plus a distinguished header page format
// describing the heap file's page chain.
package page

import (
	"encoding/binary"

	"github.com/tmarchal/heapdb/herrors"
)

// SlotEntrySize is the slot directory entry size in bytes: offset (int32)
// plus length (int32).
const SlotEntrySize = 8
const slotEntrySize = SlotEntrySize

// DPFixed is the fixed portion of a data page before its slot directory:
// next_page, slot_count, free_start, free_end, each an int32.
const DPFixed = 16
const dpFixed = DPFixed

// RID addresses one record by its page and slot.
type RID struct {
	PageNo int
	Slot   int
}

// NoNextPage is the next_page sentinel for the tail page of a chain.
const NoNextPage = -1

// Data is a slotted data page backed by a single page-sized byte slice. All
// methods mutate buf in place; callers are responsible for marking the
// owning buffer frame dirty.
type Data struct {
	buf []byte
}

// NewData wraps an existing page-sized buffer without resetting it.
func NewData(buf []byte) *Data {
	return &Data{buf: buf}
}

// Init formats buf as a brand-new, empty data page.
func Init(buf []byte) *Data {
	d := &Data{buf: buf}
	d.setInt32(0, NoNextPage)
	d.setInt32(4, 0)
	d.setInt32(8, dpFixed)
	d.setInt32(12, int32(len(buf)))
	return d
}

func (d *Data) getInt32(off int) int32 {
	return int32(binary.LittleEndian.Uint32(d.buf[off : off+4]))
}

func (d *Data) setInt32(off int, v int32) {
	binary.LittleEndian.PutUint32(d.buf[off:off+4], uint32(v))
}

// NextPage returns the chain successor, or NoNextPage at the tail.
func (d *Data) NextPage() int {
	return int(d.getInt32(0))
}

// SetNextPage links this page to next.
func (d *Data) SetNextPage(next int) {
	d.setInt32(0, int32(next))
}

func (d *Data) slotCount() int   { return int(d.getInt32(4)) }
func (d *Data) freeStart() int   { return int(d.getInt32(8)) }
func (d *Data) freeEnd() int     { return int(d.getInt32(12)) }
func (d *Data) setSlotCount(n int)  { d.setInt32(4, int32(n)) }
func (d *Data) setFreeStart(v int)  { d.setInt32(8, int32(v)) }
func (d *Data) setFreeEnd(v int)    { d.setInt32(12, int32(v)) }

func (d *Data) slotOffset(slot int) int {
	return dpFixed + slot*slotEntrySize
}

func (d *Data) slotEntry(slot int) (offset, length int) {
	o := d.slotOffset(slot)
	return int(d.getInt32(o)), int(d.getInt32(o + 4))
}

func (d *Data) setSlotEntry(slot, offset, length int) {
	o := d.slotOffset(slot)
	d.setInt32(o, int32(offset))
	d.setInt32(o+4, int32(length))
}

// FreeSpace returns the number of contiguous bytes available between the
// slot directory and the record data area.
func (d *Data) FreeSpace() int {
	return d.freeEnd() - d.freeStart()
}

// InsertRecord appends rec to the page's record area and a new slot
// pointing at it, returning the new slot number. Returns
// herrors.ErrNoSpace if rec plus a new slot entry would not fit.
func (d *Data) InsertRecord(rec []byte) (int, error) {
	need := len(rec) + slotEntrySize
	if need > d.FreeSpace() {
		return 0, herrors.ErrNoSpace
	}
	newFreeEnd := d.freeEnd() - len(rec)
	copy(d.buf[newFreeEnd:newFreeEnd+len(rec)], rec)
	slot := d.slotCount()
	d.setSlotEntry(slot, newFreeEnd, len(rec))
	d.setSlotCount(slot + 1)
	d.setFreeStart(d.freeStart() + slotEntrySize)
	d.setFreeEnd(newFreeEnd)
	return slot, nil
}

// GetRecord returns the bytes stored at slot. Returns herrors.ErrInvalidRecLen
// if slot is out of range or has been deleted.
func (d *Data) GetRecord(slot int) ([]byte, error) {
	if slot < 0 || slot >= d.slotCount() {
		return nil, herrors.Wrapf(herrors.ErrInvalidRecLen, "slot %d out of range", slot)
	}
	offset, length := d.slotEntry(slot)
	if length == 0 {
		return nil, herrors.Wrapf(herrors.ErrInvalidRecLen, "slot %d was deleted", slot)
	}
	out := make([]byte, length)
	copy(out, d.buf[offset:offset+length])
	return out, nil
}

// DeleteRecord tombstones slot. Per this layer's design, space is never
// reclaimed: the slot's length becomes zero and future inserts always take
// a fresh slot.
func (d *Data) DeleteRecord(slot int) error {
	if slot < 0 || slot >= d.slotCount() {
		return herrors.Wrapf(herrors.ErrInvalidRecLen, "slot %d out of range", slot)
	}
	offset, length := d.slotEntry(slot)
	if length == 0 {
		return herrors.Wrapf(herrors.ErrInvalidRecLen, "slot %d already deleted", slot)
	}
	d.setSlotEntry(slot, offset, 0)
	return nil
}

// FirstRecord returns the slot of the first live record on the page, or
// herrors.ErrNoRecords if the page has none.
func (d *Data) FirstRecord() (int, error) {
	for s := 0; s < d.slotCount(); s++ {
		if _, length := d.slotEntry(s); length > 0 {
			return s, nil
		}
	}
	return 0, herrors.ErrNoRecords
}

// NextRecord returns the slot after cur that holds a live record, or
// herrors.ErrNoRecords if there is none.
func (d *Data) NextRecord(cur int) (int, error) {
	for s := cur + 1; s < d.slotCount(); s++ {
		if _, length := d.slotEntry(s); length > 0 {
			return s, nil
		}
	}
	return 0, herrors.ErrNoRecords
}

// RecordCount returns the number of live (non-tombstoned) slots on the page.
func (d *Data) RecordCount() int {
	n := 0
	for s := 0; s < d.slotCount(); s++ {
		if _, length := d.slotEntry(s); length > 0 {
			n++
		}
	}
	return n
}
