package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tmarchal/heapdb/config"
)

func TestNewDBConfig(t *testing.T) {
	c := config.NewDBConfig("/tmp/DB")
	require.Equal(t, "/tmp/DB", c.DataDir)
	require.Equal(t, 4096, c.PageSize)
	require.Equal(t, config.PolicyLRU, c.ReplacementPolicy)
}

func TestLoadDBConfigYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	content := "data_dir: ../DB\npage_size: 8192\nbuffer_pool_pages: 16\nreplacement_policy: MRU\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := config.LoadDBConfig(path)
	require.NoError(t, err)
	require.Equal(t, "../DB", c.DataDir)
	require.Equal(t, 8192, c.PageSize)
	require.Equal(t, 16, c.BufferPoolPages)
	require.Equal(t, config.PolicyMRU, c.ReplacementPolicy)
}

func TestLoadDBConfigLegacyKeyValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.txt")
	content := "data_dir = '../DB'\npage_size = 8192\nbuffer_pool_pages = 4\nreplacement_policy = MRU\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := config.LoadDBConfig(path)
	require.NoError(t, err)
	require.Equal(t, "../DB", c.DataDir)
	require.Equal(t, 8192, c.PageSize)
	require.Equal(t, 4, c.BufferPoolPages)
	require.Equal(t, config.PolicyMRU, c.ReplacementPolicy)
}

func TestLoadDBConfigMissingFile(t *testing.T) {
	_, err := config.LoadDBConfig("does-not-exist.cfg")
	require.Error(t, err)
}

func TestLoadDBConfigEmptyFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "empty.cfg")
	require.NoError(t, os.WriteFile(p, []byte(""), 0o644))

	_, err := config.LoadDBConfig(p)
	require.Error(t, err)
}

func TestLoadDBConfigNoDataDir(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "nodir.cfg")
	require.NoError(t, os.WriteFile(p, []byte("other=1\n"), 0o644))

	_, err := config.LoadDBConfig(p)
	require.Error(t, err)
}
