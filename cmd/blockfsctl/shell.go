package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/kvblock/blockfs/internal/blockdev"
	"github.com/kvblock/blockfs/internal/config"
	"github.com/kvblock/blockfs/pkg/blockfs"
)

// shell is an interactive REPL over a mounted image, modeled on the
// teacher's sloty REPL: a liner.State for readline-style editing and
// history, a command table dispatched from a switch, and small cmdXxx
// methods that print directly to stdout rather than returning strings.
type shell struct {
	fsys  *blockfs.FS
	dev   *blockdev.File
	path  string
	liner *liner.State
}

func cmdShell(cfg config.Config) error {
	fsys, dev, err := openImage(cfg)
	if err != nil {
		return err
	}
	defer dev.Close()

	sh := &shell{fsys: fsys, dev: dev, path: cfg.ImagePath}
	return sh.run()
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".blockfsctl_history")
}

func (sh *shell) run() error {
	sh.liner = liner.NewLiner()
	defer sh.liner.Close()

	sh.liner.SetCtrlCAborts(true)
	sh.liner.SetCompleter(sh.completer)

	if f, err := os.Open(historyFile()); err == nil {
		sh.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("blockfsctl - %s\n", sh.path)
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := sh.liner.Prompt("blockfs> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		sh.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			sh.saveHistory()
			return nil
		case "help", "?":
			sh.printHelp()
		case "ls", "list":
			sh.cmdLs()
		case "count":
			sh.cmdCount()
		case "cat":
			sh.cmdCat(args)
		case "put":
			sh.cmdPut(args)
		case "rm", "del", "delete":
			sh.cmdRm(args)
		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	sh.saveHistory()
	return nil
}

func (sh *shell) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			sh.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (sh *shell) completer(line string) []string {
	commands := []string{"ls", "count", "cat", "put", "rm", "help", "exit"}
	var matches []string
	for _, c := range commands {
		if strings.HasPrefix(c, line) {
			matches = append(matches, c)
		}
	}
	sort.Strings(matches)
	return matches
}

func (sh *shell) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  ls                       list files")
	fmt.Println("  count                    print file count")
	fmt.Println("  cat <name>               print a file's contents")
	fmt.Println("  put <name> <host-path>   store a host file into the image")
	fmt.Println("  rm <name>                delete a file")
	fmt.Println("  help                     show this help")
	fmt.Println("  exit / quit / q          exit")
}

func (sh *shell) cmdLs() {
	var names []string
	if err := sh.fsys.List(func(name string) { names = append(names, name) }); err != nil {
		fmt.Println("error:", err)
		return
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Println(n)
	}
}

func (sh *shell) cmdCount() {
	n, err := sh.fsys.Count()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(n)
}

func (sh *shell) cmdCat(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: cat <name>")
		return
	}
	if err := sh.fsys.Open(args[0], blockfs.Read); err != nil {
		fmt.Println("error:", err)
		return
	}
	defer sh.fsys.Close()

	buf := make([]byte, 4096)
	for {
		n, err := sh.fsys.Read(buf)
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		if n == 0 {
			fmt.Println()
			return
		}
		os.Stdout.Write(buf[:n])
	}
}

func (sh *shell) cmdPut(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: put <name> <host-path>")
		return
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if err := sh.fsys.Open(args[0], blockfs.Write); err != nil {
		fmt.Println("error:", err)
		return
	}
	if _, err := sh.fsys.Write(data); err != nil {
		fmt.Println("error:", err)
		return
	}
	if err := sh.fsys.Close(); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("stored %s (%d bytes)\n", args[0], len(data))
}

func (sh *shell) cmdRm(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: rm <name>")
		return
	}
	if err := sh.fsys.Delete(args[0]); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("deleted", args[0])
}
