// blockfsctl is a command-line client for blockfs images.
//
// Usage:
//
//	blockfsctl init [opts]                 Create a new image file
//	blockfsctl shell [opts]                 Open an image and start an interactive shell
//	blockfsctl ls [opts]                    List files in an image
//	blockfsctl cat [opts] <name>            Print a file's contents to stdout
//	blockfsctl put [opts] <name> <path>     Store a host file into the image
//	blockfsctl rm [opts] <name>             Delete a file
//	blockfsctl count [opts]                 Print the number of files
//	blockfsctl export [opts] <path>         Snapshot the raw image to a host file
//	blockfsctl config [opts]                Print the resolved configuration
//
// Options:
//
//	-c, --config string        Path to a JSONC config file
//	-i, --image string         Path to the image file
//	    --block-size int       Block size in bytes (must match the image)
//	    --block-count int      Block count (must match the image)
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/kvblock/blockfs/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		printUsage()
		return errors.New("missing command")
	}

	cmd := args[0]
	rest := args[1:]

	fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "path to a JSONC config file")
	imagePath := fs.StringP("image", "i", "", "path to the image file")
	blockSize := fs.Int("block-size", 0, "block size in bytes (must match the image)")
	blockCount := fs.Int("block-count", 0, "block count (must match the image)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: blockfsctl %s [options] [args]\n\n", cmd)
		fs.PrintDefaults()
	}

	if err := fs.Parse(rest); err != nil {
		return err
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getwd: %w", err)
	}

	overrides := config.Config{ImagePath: *imagePath, BlockSize: *blockSize, BlockCount: *blockCount}
	overrideSet := map[string]bool{
		"image_path":  fs.Changed("image"),
		"block_size":  fs.Changed("block-size"),
		"block_count": fs.Changed("block-count"),
	}

	cfg, _, err := config.Load(workDir, *configPath, overrides, overrideSet, os.Environ())
	if err != nil {
		return err
	}

	switch cmd {
	case "init":
		return cmdInit(cfg)
	case "shell":
		return cmdShell(cfg)
	case "ls":
		return cmdLs(cfg)
	case "cat":
		return cmdCat(cfg, fs.Args())
	case "put":
		return cmdPut(cfg, fs.Args())
	case "rm":
		return cmdRm(cfg, fs.Args())
	case "count":
		return cmdCount(cfg)
	case "export":
		return cmdExport(cfg, fs.Args())
	case "config":
		out, err := config.Format(cfg)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  blockfsctl init [opts]                 Create a new image file\n")
	fmt.Fprintf(os.Stderr, "  blockfsctl shell [opts]                Open an image and start an interactive shell\n")
	fmt.Fprintf(os.Stderr, "  blockfsctl ls [opts]                   List files in an image\n")
	fmt.Fprintf(os.Stderr, "  blockfsctl cat [opts] <name>           Print a file's contents to stdout\n")
	fmt.Fprintf(os.Stderr, "  blockfsctl put [opts] <name> <path>    Store a host file into the image\n")
	fmt.Fprintf(os.Stderr, "  blockfsctl rm [opts] <name>            Delete a file\n")
	fmt.Fprintf(os.Stderr, "  blockfsctl count [opts]                Print the number of files\n")
	fmt.Fprintf(os.Stderr, "  blockfsctl export [opts] <path>        Snapshot the raw image to a host file\n")
	fmt.Fprintf(os.Stderr, "  blockfsctl config [opts]                Print the resolved configuration\n")
}
