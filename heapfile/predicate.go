package heapfile

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/tmarchal/heapdb/herrors"
)

// AttrType names how the bytes in a predicate's window are interpreted.
type AttrType int

const (
	TypeString AttrType = iota
	TypeInteger
	TypeFloat
)

// CompareOp names a single-attribute comparison operator.
type CompareOp int

const (
	OpLT CompareOp = iota
	OpLTE
	OpEQ
	OpGTE
	OpGT
	OpNE
)

// Predicate evaluates one fixed (offset, length, type) window of a record
// against a literal value with a single comparison operator. It never
// reinterprets the window in place: every comparison copies the window into
// a fresh, correctly aligned buffer first, since a raw cast over an
// arbitrary byte offset is not safe in general.
type Predicate struct {
	Offset int
	Length int
	Type   AttrType
	Op     CompareOp

	StringValue  string
	IntegerValue int32
	FloatValue   float32
}

// validate checks the predicate's window and operator are well-formed,
// independent of any particular record. Called by StartScan so malformed
// scan parameters fail before any page is touched.
func (p *Predicate) validate() error {
	if p.Offset < 0 {
		return herrors.Wrapf(herrors.ErrBadScanParam, "predicate offset %d is negative", p.Offset)
	}
	if p.Length < 1 {
		return herrors.Wrapf(herrors.ErrBadScanParam, "predicate length %d must be at least 1", p.Length)
	}
	switch p.Type {
	case TypeString:
	case TypeInteger:
		if p.Length != 4 {
			return herrors.Wrapf(herrors.ErrBadScanParam, "integer predicate window must be 4 bytes, got %d", p.Length)
		}
	case TypeFloat:
		if p.Length != 4 {
			return herrors.Wrapf(herrors.ErrBadScanParam, "float predicate window must be 4 bytes, got %d", p.Length)
		}
	default:
		return herrors.Wrapf(herrors.ErrBadScanParam, "unknown predicate type %d", p.Type)
	}
	switch p.Op {
	case OpLT, OpLTE, OpEQ, OpGTE, OpGT, OpNE:
	default:
		return herrors.Wrapf(herrors.ErrBadScanParam, "unknown predicate operator %d", p.Op)
	}
	return nil
}

// Matches reports whether rec satisfies the predicate. A record shorter than
// the predicate's window is not a malformed-predicate error: it simply does
// not match, mirroring the original evaluator's bounds check.
func (p *Predicate) Matches(rec []byte) (bool, error) {
	if p.Offset < 0 || p.Length <= 0 {
		return false, herrors.Wrapf(herrors.ErrBadScanParam, "predicate window [%d:+%d] is malformed", p.Offset, p.Length)
	}
	if p.Offset+p.Length > len(rec) {
		return false, nil
	}
	window := make([]byte, p.Length)
	copy(window, rec[p.Offset:p.Offset+p.Length])

	var cmp int
	switch p.Type {
	case TypeString:
		filter := make([]byte, p.Length)
		copy(filter, p.StringValue)
		cmp = bytes.Compare(window, filter)
	case TypeInteger:
		if p.Length != 4 {
			return false, herrors.Wrapf(herrors.ErrBadScanParam, "integer predicate window must be 4 bytes, got %d", p.Length)
		}
		v := int32(binary.LittleEndian.Uint32(window))
		cmp = compareInt32(v, p.IntegerValue)
	case TypeFloat:
		if p.Length != 4 {
			return false, herrors.Wrapf(herrors.ErrBadScanParam, "float predicate window must be 4 bytes, got %d", p.Length)
		}
		v := math.Float32frombits(binary.LittleEndian.Uint32(window))
		cmp = compareFloat32(v, p.FloatValue)
	default:
		return false, herrors.Wrapf(herrors.ErrBadScanParam, "unknown predicate type %d", p.Type)
	}

	switch p.Op {
	case OpLT:
		return cmp < 0, nil
	case OpLTE:
		return cmp <= 0, nil
	case OpEQ:
		return cmp == 0, nil
	case OpGTE:
		return cmp >= 0, nil
	case OpGT:
		return cmp > 0, nil
	case OpNE:
		return cmp != 0, nil
	default:
		return false, herrors.Wrapf(herrors.ErrBadScanParam, "unknown predicate operator %d", p.Op)
	}
}

func compareInt32(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat32(a, b float32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
