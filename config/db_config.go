// Package config holds the typed configuration shared by diskstore, buffer
// and heapfile: page geometry, buffer pool sizing, replacement policy and
// the ambient knobs (direct I/O, log level).
package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ReplacementPolicy names a buffer pool eviction strategy.
type ReplacementPolicy string

const (
	PolicyLRU ReplacementPolicy = "LRU"
	PolicyMRU ReplacementPolicy = "MRU"
)

// DBConfig holds configuration for the heap file layer.
type DBConfig struct {
	DataDir           string            `yaml:"data_dir"`
	PageSize          int               `yaml:"page_size"`
	BufferPoolPages   int               `yaml:"buffer_pool_pages"`
	ReplacementPolicy ReplacementPolicy `yaml:"replacement_policy"`
	DirectIO          bool              `yaml:"direct_io"`
	LogLevel          string            `yaml:"log_level"`
}

// NewDBConfig returns a config rooted at dataDir with sane defaults.
func NewDBConfig(dataDir string) *DBConfig {
	return &DBConfig{
		DataDir:           dataDir,
		PageSize:          4096,
		BufferPoolPages:   64,
		ReplacementPolicy: PolicyLRU,
		DirectIO:          false,
		LogLevel:          "info",
	}
}

// NewDBConfigWithParams returns a config with explicit page size and buffer
// pool sizing, defaults for everything else.
func NewDBConfigWithParams(dataDir string, pageSize int, bufferPoolPages int) *DBConfig {
	c := NewDBConfig(dataDir)
	c.PageSize = pageSize
	c.BufferPoolPages = bufferPoolPages
	return c
}

func (c *DBConfig) applyDefaults() {
	if c.PageSize == 0 {
		c.PageSize = 4096
	}
	if c.BufferPoolPages == 0 {
		c.BufferPoolPages = 64
	}
	if c.ReplacementPolicy == "" {
		c.ReplacementPolicy = PolicyLRU
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// LoadDBConfig loads configuration from a file. YAML is tried first; a
// legacy key=value / key: value line format is accepted as a fallback for
// plain config files that aren't YAML documents.
func LoadDBConfig(filePath string) (*DBConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}
	if len(data) == 0 {
		return nil, errors.New("empty config file")
	}

	var c DBConfig
	if err := yaml.Unmarshal(data, &c); err == nil && c.DataDir != "" {
		c.applyDefaults()
		return &c, nil
	}

	if err := parseLegacy(data, &c); err != nil {
		return nil, err
	}
	if c.DataDir == "" {
		return nil, errors.New("data_dir not found in config")
	}
	c.applyDefaults()
	return &c, nil
}

func parseLegacy(data []byte, c *DBConfig) error {
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sep := "="
		if !strings.Contains(line, "=") && strings.Contains(line, ":") {
			sep = ":"
		}
		parts := strings.SplitN(line, sep, 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		val := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		switch key {
		case "data_dir", "dbpath":
			c.DataDir = val
		case "page_size", "pagesize":
			if v, err := strconv.Atoi(val); err == nil {
				c.PageSize = v
			}
		case "buffer_pool_pages", "bm_buffercount":
			if v, err := strconv.Atoi(val); err == nil {
				c.BufferPoolPages = v
			}
		case "replacement_policy", "bm_policy":
			c.ReplacementPolicy = ReplacementPolicy(strings.ToUpper(val))
		case "direct_io":
			if v, err := strconv.ParseBool(val); err == nil {
				c.DirectIO = v
			}
		case "log_level":
			c.LogLevel = val
		}
	}
	return nil
}
