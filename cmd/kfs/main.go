package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/config"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/fs"
	"github.com/mit-pdos/go-kfs/util"
)

const kfsDev common.Dev = 0

//nolint:gochecknoglobals
var (
	ExitCode = 0

	configFile = flag.String("config", "", "read settings from this KEY=VALUE file")
	async      = flag.Bool("async", false, "run device requests on a background queue")
)

func setupLogging(debug uint64) {
	level := slog.LevelInfo
	if debug > 0 {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}),
	))
	util.SetDebug(debug)
}

func loadConfig() (config.Config, error) {
	h := config.NewHandler(&config.GodotenvProvider{})
	if *configFile == "" {
		return h.Load()
	}
	return h.Load(*configFile)
}

func openDisk(cfg config.Config) (disk.Disk, error) {
	switch cfg.Backend {
	case config.BackendMem:
		return disk.NewMemDisk(cfg.DiskBlocks), nil
	case config.BackendGoose:
		return disk.NewGooseMemDisk(cfg.DiskBlocks), nil
	case config.BackendFile:
		d, err := disk.NewFileDisk(cfg.DiskImage, cfg.DiskBlocks)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("%q: %w", cfg.Backend, config.ErrInvalidBackend)
}

// mountOrFormat mounts d, formatting it first when asked to, when it is
// in-memory, or when it holds no filesystem yet.
func mountOrFormat(d disk.Disk, cfg config.Config) (*fs.FileSys, error) {
	if cfg.Format || cfg.Backend != config.BackendFile {
		return fs.Mkfs(d, kfsDev, cfg.InodeBlocks)
	}
	fsys, err := fs.Mount(d, kfsDev)
	if errors.Is(err, common.ErrBadSuperblock) {
		slog.Info("No filesystem found, formatting.", "image", cfg.DiskImage)
		return fs.Mkfs(d, kfsDev, cfg.InodeBlocks)
	}
	return fsys, err
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogging(cfg.Debug)

	d, err := openDisk(cfg)
	if err != nil {
		return fmt.Errorf("failed to open disk: %w", err)
	}
	if *async {
		d = disk.MkQueue(d, 64)
	}
	defer d.Close()

	fsys, err := mountOrFormat(d, cfg)
	if err != nil {
		return fmt.Errorf("failed to mount: %w", err)
	}
	slog.Debug("Mounted.", "backend", cfg.Backend, "blocks", cfg.DiskBlocks)

	sh := newShell(fsys, os.Stdout)
	sh.run(os.Stdin, true)

	if err := fsys.Sync(); err != nil {
		return fmt.Errorf("failed to sync: %w", err)
	}
	return nil
}

func main() {
	defer func() {
		os.Exit(ExitCode)
	}()

	flag.Parse()
	setupLogging(0)

	if err := run(); err != nil {
		slog.Error("kfs failed.", "err", err)
		ExitCode = 1
	}
}
