package page

import "encoding/binary"

const (
	hdrNameLen   = 64
	hdrFirstPage = hdrNameLen
	hdrLastPage  = hdrNameLen + 4
	hdrPageCnt   = hdrNameLen + 8
	hdrRecCnt    = hdrNameLen + 12
)

// Header is the distinguished first page of every heap file: its name, the
// head and tail of the data page chain, and running page/record counts.
type Header struct {
	buf []byte
}

// NewHeader wraps an existing header-page buffer without resetting it.
func NewHeader(buf []byte) *Header {
	return &Header{buf: buf}
}

// InitHeader formats buf as a fresh header page for a newly created, empty
// file. FirstPage/LastPage are NoNextPage until the caller links the first
// data page with SetFirstPage/SetLastPage.
func InitHeader(buf []byte, fileName string) *Header {
	h := &Header{buf: buf}
	h.SetFileName(fileName)
	h.setInt32(hdrFirstPage, NoNextPage)
	h.setInt32(hdrLastPage, NoNextPage)
	h.setInt32(hdrPageCnt, 0)
	h.setInt32(hdrRecCnt, 0)
	return h
}

func (h *Header) getInt32(off int) int32 {
	return int32(binary.LittleEndian.Uint32(h.buf[off : off+4]))
}

func (h *Header) setInt32(off int, v int32) {
	binary.LittleEndian.PutUint32(h.buf[off:off+4], uint32(v))
}

// FileName returns the file's name as stored at page creation time.
func (h *Header) FileName() string {
	raw := h.buf[0:hdrNameLen]
	n := 0
	for n < len(raw) && raw[n] != 0 {
		n++
	}
	return string(raw[:n])
}

// SetFileName stores name, truncated to fit the fixed-width field.
func (h *Header) SetFileName(name string) {
	field := h.buf[0:hdrNameLen]
	for i := range field {
		field[i] = 0
	}
	copy(field, name[:min(len(name), hdrNameLen-1)])
}

func (h *Header) FirstPage() int  { return int(h.getInt32(hdrFirstPage)) }
func (h *Header) LastPage() int   { return int(h.getInt32(hdrLastPage)) }
func (h *Header) PageCount() int  { return int(h.getInt32(hdrPageCnt)) }
func (h *Header) RecordCount() int { return int(h.getInt32(hdrRecCnt)) }

func (h *Header) SetFirstPage(p int) { h.setInt32(hdrFirstPage, int32(p)) }
func (h *Header) SetLastPage(p int)  { h.setInt32(hdrLastPage, int32(p)) }

func (h *Header) AddPage() { h.setInt32(hdrPageCnt, int32(h.PageCount()+1)) }

func (h *Header) AddRecord(delta int) {
	h.setInt32(hdrRecCnt, int32(h.RecordCount()+delta))
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
