// Package config loads the settings of the kfs command from a KEY=VALUE file.
package config

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	KeyDiskImage   = "KFS_DISK_IMAGE"
	KeyDiskBlocks  = "KFS_DISK_BLOCKS"
	KeyInodeBlocks = "KFS_INODE_BLOCKS"
	KeyBackend     = "KFS_BACKEND"
	KeyDebug       = "KFS_DEBUG"
	KeyFormat      = "KFS_FORMAT"

	BackendFile  = "file"
	BackendMem   = "mem"
	BackendGoose = "goose"
)

type genericConfigProvider interface {
	Read(filenames ...string) (envMap map[string]string, err error)
}

type Config struct {
	DiskImage   string
	DiskBlocks  uint64
	InodeBlocks uint64
	Backend     string
	Debug       uint64
	Format      bool // format the disk before mounting it
}

func Default() Config {
	return Config{
		DiskImage:   "kfs.img",
		DiskBlocks:  1024,
		InodeBlocks: 32,
		Backend:     BackendFile,
		Debug:       0,
		Format:      false,
	}
}

type Handler struct {
	GenericHandler genericConfigProvider
}

func NewHandler(genericHandler genericConfigProvider) *Handler {
	return &Handler{
		GenericHandler: genericHandler,
	}
}

func (c *Handler) MapKeyToString(envMap map[string]string, key string) string {
	if value, exists := envMap[key]; exists {
		return strings.TrimSpace(value)
	}

	return ""
}

func (c *Handler) mapKeyToUInt64(envMap map[string]string, key string, def uint64) (uint64, error) {
	value := c.MapKeyToString(envMap, key)
	if value == "" {
		return def, nil
	}
	intValue, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w", key, value, ErrInvalidValue)
	}

	return intValue, nil
}

func (c *Handler) mapKeyToBool(envMap map[string]string, key string, def bool) (bool, error) {
	value := c.MapKeyToString(envMap, key)
	if value == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s=%q: %w", key, value, ErrInvalidValue)
	}

	return b, nil
}

// Parse applies the settings in envMap over the defaults.
func (c *Handler) Parse(envMap map[string]string) (Config, error) {
	var err error
	cfg := Default()

	if v := c.MapKeyToString(envMap, KeyDiskImage); v != "" {
		cfg.DiskImage = v
	}
	if cfg.DiskBlocks, err = c.mapKeyToUInt64(envMap, KeyDiskBlocks, cfg.DiskBlocks); err != nil {
		return cfg, err
	}
	if cfg.InodeBlocks, err = c.mapKeyToUInt64(envMap, KeyInodeBlocks, cfg.InodeBlocks); err != nil {
		return cfg, err
	}
	if cfg.Debug, err = c.mapKeyToUInt64(envMap, KeyDebug, cfg.Debug); err != nil {
		return cfg, err
	}
	if cfg.Format, err = c.mapKeyToBool(envMap, KeyFormat, cfg.Format); err != nil {
		return cfg, err
	}

	if v := c.MapKeyToString(envMap, KeyBackend); v != "" {
		cfg.Backend = strings.ToLower(v)
	}
	switch cfg.Backend {
	case BackendFile, BackendMem, BackendGoose:
	default:
		return cfg, fmt.Errorf("%s=%q: %w", KeyBackend, cfg.Backend, ErrInvalidBackend)
	}

	return cfg, nil
}

// Load reads the given files and parses them. Without files it returns the
// defaults.
func (c *Handler) Load(filenames ...string) (Config, error) {
	if len(filenames) == 0 {
		return Default(), nil
	}
	envMap, err := c.GenericHandler.Read(filenames...)
	if err != nil {
		return Config{}, err
	}

	return c.Parse(envMap)
}
