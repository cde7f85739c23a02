package diskstore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tmarchal/heapdb/config"
	"github.com/tmarchal/heapdb/diskstore"
	"github.com/tmarchal/heapdb/herrors"
)

func TestCreateOpenDestroyLifecycle(t *testing.T) {
	dir := t.TempDir()
	cfg := config.NewDBConfigWithParams(dir, 512, 4)
	store, err := diskstore.NewStore(cfg)
	require.NoError(t, err)

	require.NoError(t, store.CreateFile("orders"))
	require.ErrorIs(t, store.CreateFile("orders"), herrors.ErrFileExists)

	f, err := store.OpenFile("orders")
	require.NoError(t, err)

	pageNo, err := f.AllocatePage()
	require.NoError(t, err)
	require.Equal(t, 0, pageNo)

	payload := make([]byte, 512)
	copy(payload, []byte("hello"))
	require.NoError(t, f.WritePage(pageNo, payload))

	got, err := f.ReadPage(pageNo)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	require.NoError(t, f.Close())
	require.NoError(t, store.DestroyFile("orders"))
}

func TestOpenFileAdvisoryLock(t *testing.T) {
	dir := t.TempDir()
	cfg := config.NewDBConfigWithParams(dir, 512, 4)
	store, err := diskstore.NewStore(cfg)
	require.NoError(t, err)
	require.NoError(t, store.CreateFile("orders"))

	f1, err := store.OpenFile("orders")
	require.NoError(t, err)
	defer f1.Close()

	_, err = store.OpenFile("orders")
	require.Error(t, err)
}

func TestReadPageOutOfRange(t *testing.T) {
	f := diskstore.OpenMemFile(256, 1)
	_, err := f.ReadPage(5)
	require.ErrorIs(t, err, herrors.ErrFileEOF)
}

func TestMemBackedFileAllocateAndRead(t *testing.T) {
	f := diskstore.OpenMemFile(256, 0)
	pageNo, err := f.AllocatePage()
	require.NoError(t, err)
	require.Equal(t, 0, pageNo)

	buf := make([]byte, 256)
	copy(buf, []byte("memfile"))
	require.NoError(t, f.WritePage(pageNo, buf))

	got, err := f.ReadPage(pageNo)
	require.NoError(t, err)
	require.Equal(t, buf, got)
}
