package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	natomic "github.com/natefinch/atomic"

	"github.com/kvblock/blockfs/internal/blockdev"
	"github.com/kvblock/blockfs/internal/config"
	"github.com/kvblock/blockfs/pkg/blockfs"
)

func cmdInit(cfg config.Config) error {
	if _, err := os.Stat(cfg.ImagePath); err == nil {
		return fmt.Errorf("image already exists: %s", cfg.ImagePath)
	}

	dev, err := blockdev.CreateFile(cfg.ImagePath, cfg.BlockSize, cfg.BlockCount)
	if err != nil {
		return err
	}
	defer dev.Close()

	if _, err := blockfs.Mount(blockfs.Config{BlockSize: cfg.BlockSize, BlockCount: cfg.BlockCount, Device: dev}); err != nil {
		return fmt.Errorf("mount new image: %w", err)
	}

	slog.Info("created image", "path", cfg.ImagePath, "block_size", cfg.BlockSize, "block_count", cfg.BlockCount)
	fmt.Printf("created %s (block_size=%d block_count=%d)\n", cfg.ImagePath, cfg.BlockSize, cfg.BlockCount)
	return nil
}

func openImage(cfg config.Config) (*blockfs.FS, *blockdev.File, error) {
	dev, err := blockdev.OpenFile(cfg.ImagePath, cfg.BlockSize, cfg.BlockCount)
	if err != nil {
		return nil, nil, err
	}
	synced := blockdev.NewFileSynced(dev)
	fsys, err := blockfs.Mount(blockfs.Config{BlockSize: cfg.BlockSize, BlockCount: cfg.BlockCount, Device: synced})
	if err != nil {
		dev.Close()
		return nil, nil, fmt.Errorf("mount %s: %w", cfg.ImagePath, err)
	}
	return fsys, dev, nil
}

func cmdLs(cfg config.Config) error {
	fsys, dev, err := openImage(cfg)
	if err != nil {
		return err
	}
	defer dev.Close()

	return fsys.List(func(name string) {
		fmt.Println(name)
	})
}

func cmdCount(cfg config.Config) error {
	fsys, dev, err := openImage(cfg)
	if err != nil {
		return err
	}
	defer dev.Close()

	n, err := fsys.Count()
	if err != nil {
		return err
	}
	fmt.Println(n)
	return nil
}

func cmdCat(cfg config.Config, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: blockfsctl cat <name>")
	}
	fsys, dev, err := openImage(cfg)
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := fsys.Open(args[0], blockfs.Read); err != nil {
		return err
	}
	defer fsys.Close()

	buf := make([]byte, 4096)
	for {
		n, err := fsys.Read(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if _, werr := os.Stdout.Write(buf[:n]); werr != nil {
			return werr
		}
	}
}

func cmdPut(cfg config.Config, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: blockfsctl put <name> <host-path>")
	}
	name, hostPath := args[0], args[1]

	data, err := os.ReadFile(hostPath)
	if err != nil {
		return err
	}

	fsys, dev, err := openImage(cfg)
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := fsys.Open(name, blockfs.Write); err != nil {
		return err
	}
	if _, err := fsys.Write(data); err != nil {
		return err
	}
	if err := fsys.Close(); err != nil {
		return err
	}
	slog.Info("stored file", "name", name, "bytes", len(data), "image", cfg.ImagePath)
	return nil
}

func cmdRm(cfg config.Config, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: blockfsctl rm <name>")
	}
	fsys, dev, err := openImage(cfg)
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := fsys.Delete(args[0]); err != nil {
		return err
	}
	slog.Info("deleted file", "name", args[0], "image", cfg.ImagePath)
	return nil
}

// cmdExport snapshots the raw image bytes to a host file using an
// atomic rename so a reader never observes a half-written snapshot, the
// same guarantee [natefinch/atomic] gives the teacher's config writer.
// This is a host-filesystem-level atomicity guarantee, distinct from and
// layered on top of blockfs's own block-level replace protocol.
func cmdExport(cfg config.Config, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: blockfsctl export <host-path>")
	}

	src, err := os.Open(cfg.ImagePath)
	if err != nil {
		return err
	}
	defer src.Close()

	return natomic.WriteFile(args[0], src)
}
