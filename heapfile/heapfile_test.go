package heapfile_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tmarchal/heapdb/buffer"
	"github.com/tmarchal/heapdb/config"
	"github.com/tmarchal/heapdb/diskstore"
	"github.com/tmarchal/heapdb/heapfile"
	"github.com/tmarchal/heapdb/herrors"
)

func newEnv(t *testing.T, pageSize, poolPages int) (*diskstore.Store, *buffer.Manager) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.NewDBConfigWithParams(dir, pageSize, poolPages)
	store, err := diskstore.NewStore(cfg)
	require.NoError(t, err)
	bm := buffer.NewManager(cfg)
	return store, bm
}

func TestCreateOpenDestroy(t *testing.T) {
	store, bm := newEnv(t, 256, 8)

	require.NoError(t, heapfile.Create(store, bm, "orders"))
	require.ErrorIs(t, heapfile.Create(store, bm, "orders"), herrors.ErrFileExists)

	hf, err := heapfile.Open(store, bm, "orders")
	require.NoError(t, err)
	require.Equal(t, 0, hf.RecordCount())
	require.NoError(t, hf.Close())

	require.NoError(t, heapfile.Destroy(store, "orders"))
}

func TestInsertAndGetRecord(t *testing.T) {
	store, bm := newEnv(t, 256, 8)
	require.NoError(t, heapfile.Create(store, bm, "orders"))
	hf, err := heapfile.Open(store, bm, "orders")
	require.NoError(t, err)
	defer hf.Close()

	ins, err := heapfile.NewInsert(hf)
	require.NoError(t, err)

	rid, err := ins.InsertRecord([]byte("first record"))
	require.NoError(t, err)
	require.NoError(t, ins.Close())

	rec, err := hf.GetRecord(rid)
	require.NoError(t, err)
	require.Equal(t, "first record", string(rec))
	require.Equal(t, 1, hf.RecordCount())
}

func TestInsertExtendsChainAcrossSmallPages(t *testing.T) {
	// a small page fits only 4 records of this size, so inserting 6 forces
	// the tail chain to grow.
	store, bm := newEnv(t, 96, 16)
	require.NoError(t, heapfile.Create(store, bm, "orders"))
	hf, err := heapfile.Open(store, bm, "orders")
	require.NoError(t, err)
	defer hf.Close()

	ins, err := heapfile.NewInsert(hf)
	require.NoError(t, err)

	var rids []heapfile.RID
	for i := 0; i < 6; i++ {
		rid, err := ins.InsertRecord([]byte("recordXYZ"))
		require.NoError(t, err)
		rids = append(rids, rid)
	}
	require.NoError(t, ins.Close())

	distinctPages := map[int]bool{}
	for _, rid := range rids {
		distinctPages[rid.PageNo] = true
		rec, err := hf.GetRecord(rid)
		require.NoError(t, err)
		require.Equal(t, "recordXYZ", string(rec))
	}
	require.Greater(t, len(distinctPages), 1)
	require.Equal(t, 6, hf.RecordCount())
}

func TestInsertRecordTooLargeForAnyPage(t *testing.T) {
	store, bm := newEnv(t, 96, 8)
	require.NoError(t, heapfile.Create(store, bm, "orders"))
	hf, err := heapfile.Open(store, bm, "orders")
	require.NoError(t, err)
	defer hf.Close()

	ins, err := heapfile.NewInsert(hf)
	require.NoError(t, err)
	defer ins.Close()

	_, err = ins.InsertRecord(make([]byte, 1000))
	require.ErrorIs(t, err, herrors.ErrInvalidRecLen)
}

func TestGetRecordOnDeletedSlotFails(t *testing.T) {
	store, bm := newEnv(t, 256, 8)
	require.NoError(t, heapfile.Create(store, bm, "orders"))
	hf, err := heapfile.Open(store, bm, "orders")
	require.NoError(t, err)
	defer hf.Close()

	ins, err := heapfile.NewInsert(hf)
	require.NoError(t, err)
	rid, err := ins.InsertRecord([]byte("gone soon"))
	require.NoError(t, err)
	require.NoError(t, ins.Close())

	scan, err := heapfile.StartScan(hf, nil)
	require.NoError(t, err)
	got, err := scan.ScanNext()
	require.NoError(t, err)
	require.Equal(t, rid, got)
	require.NoError(t, scan.DeleteCurrent())
	require.NoError(t, scan.EndScan())

	_, err = hf.GetRecord(rid)
	require.ErrorIs(t, err, herrors.ErrInvalidRecLen)
	require.Equal(t, 0, hf.RecordCount())
}

func TestCloseFlushesRecordCountAcrossReopen(t *testing.T) {
	store, bm := newEnv(t, 256, 8)
	require.NoError(t, heapfile.Create(store, bm, "orders"))

	hf, err := heapfile.Open(store, bm, "orders")
	require.NoError(t, err)
	ins, err := heapfile.NewInsert(hf)
	require.NoError(t, err)
	_, err = ins.InsertRecord([]byte("a"))
	require.NoError(t, err)
	_, err = ins.InsertRecord([]byte("b"))
	require.NoError(t, err)
	require.NoError(t, ins.Close())
	require.NoError(t, hf.Close())

	hf2, err := heapfile.Open(store, bm, "orders")
	require.NoError(t, err)
	defer hf2.Close()
	require.Equal(t, 2, hf2.RecordCount())
}
