package heapfile_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tmarchal/heapdb/heapfile"
	"github.com/tmarchal/heapdb/herrors"
)

func TestPredicateStringComparison(t *testing.T) {
	rec := []byte("alice     ")
	p := &heapfile.Predicate{Offset: 0, Length: 10, Type: heapfile.TypeString, Op: heapfile.OpEQ, StringValue: "alice     "}
	ok, err := p.Matches(rec)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPredicateIntegerComparison(t *testing.T) {
	rec := make([]byte, 4)
	binary.LittleEndian.PutUint32(rec, 42)
	p := &heapfile.Predicate{Offset: 0, Length: 4, Type: heapfile.TypeInteger, Op: heapfile.OpGT, IntegerValue: 10}
	ok, err := p.Matches(rec)
	require.NoError(t, err)
	require.True(t, ok)

	p.Op = heapfile.OpLT
	ok, err = p.Matches(rec)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPredicateFloatComparison(t *testing.T) {
	rec := make([]byte, 4)
	binary.LittleEndian.PutUint32(rec, math.Float32bits(3.14))
	p := &heapfile.Predicate{Offset: 0, Length: 4, Type: heapfile.TypeFloat, Op: heapfile.OpNE, FloatValue: 2.71}
	ok, err := p.Matches(rec)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPredicateWindowOutOfBounds(t *testing.T) {
	// a record shorter than the predicate's window simply does not match;
	// it is not a malformed-predicate error.
	p := &heapfile.Predicate{Offset: 5, Length: 10, Type: heapfile.TypeString, Op: heapfile.OpEQ, StringValue: "x"}
	ok, err := p.Matches([]byte("short"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPredicateMalformedWindowIsBadScanParam(t *testing.T) {
	p := &heapfile.Predicate{Offset: -1, Length: 4, Type: heapfile.TypeInteger, Op: heapfile.OpEQ}
	_, err := p.Matches(make([]byte, 8))
	require.ErrorIs(t, err, herrors.ErrBadScanParam)
}

func TestPredicateStringComparisonTruncatesToLength(t *testing.T) {
	rec := []byte("alice     ")
	p := &heapfile.Predicate{Offset: 0, Length: 5, Type: heapfile.TypeString, Op: heapfile.OpEQ, StringValue: "alice and friends"}
	ok, err := p.Matches(rec)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPredicateAtNonAlignedOffsetStillReadsCorrectly(t *testing.T) {
	// the window starts at a byte offset that would misalign a direct cast
	// to *int32; Matches must copy before decoding.
	rec := make([]byte, 9)
	binary.LittleEndian.PutUint32(rec[3:], 99)
	p := &heapfile.Predicate{Offset: 3, Length: 4, Type: heapfile.TypeInteger, Op: heapfile.OpEQ, IntegerValue: 99}
	ok, err := p.Matches(rec)
	require.NoError(t, err)
	require.True(t, ok)
}
