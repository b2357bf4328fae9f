package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/zeebo/blake3"

	"github.com/mit-pdos/go-kfs/file"
	"github.com/mit-pdos/go-kfs/fs"
	"github.com/mit-pdos/go-kfs/inode"
)

//nolint:gochecknoglobals
var (
	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	dirStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5FAFFF"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

var (
	errUsage   = errors.New("usage")
	errUnknown = errors.New("unknown command")
	errExit    = errors.New("exit")
)

type command struct {
	usage string
	nargs int // minimum
	fn    func(sh *shell, args []string) error
}

//nolint:gochecknoglobals
var commands map[string]command

func init() {
	commands = map[string]command{
		"ls":     {"ls [dir]", 0, (*shell).ls},
		"cd":     {"cd <dir>", 1, (*shell).cd},
		"pwd":    {"pwd", 0, (*shell).pwd},
		"mkdir":  {"mkdir <name>", 1, (*shell).mkdir},
		"create": {"create <path>", 1, (*shell).create},
		"open":   {"open <path>", 1, (*shell).open},
		"read":   {"read <fd> <n>", 2, (*shell).read},
		"write":  {"write <fd> <text>", 2, (*shell).write},
		"close":  {"close <fd>", 1, (*shell).close},
		"cat":    {"cat <path>", 1, (*shell).cat},
		"rm":     {"rm <path>", 1, (*shell).rm},
		"stat":   {"stat <path>", 1, (*shell).stat},
		"sum":    {"sum <path>", 1, (*shell).sum},
		"df":     {"df", 0, (*shell).df},
		"help":   {"help", 0, (*shell).help},
		"exit":   {"exit", 0, func(*shell, []string) error { return errExit }},
	}
}

type shell struct {
	fs  *fs.FileSys
	out io.Writer
}

func newShell(fsys *fs.FileSys, out io.Writer) *shell {
	return &shell{fs: fsys, out: out}
}

// exec runs one command line.
func (sh *shell) exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, ok := commands[fields[0]]
	if !ok {
		return fmt.Errorf("%q: %w", fields[0], errUnknown)
	}
	if len(fields)-1 < cmd.nargs {
		return fmt.Errorf("%w: %s", errUsage, cmd.usage)
	}
	return cmd.fn(sh, fields[1:])
}

// run reads commands from in until EOF or exit.
func (sh *shell) run(in io.Reader, interactive bool) {
	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(sh.out, promptStyle.Render(sh.fs.Cwd()+" $")+" ")
		}
		if !scanner.Scan() {
			break
		}
		err := sh.exec(scanner.Text())
		if errors.Is(err, errExit) {
			break
		}
		if err != nil {
			slog.Debug("Command failed.", "line", scanner.Text(), "err", err)
			fmt.Fprintln(sh.out, errStyle.Render("error: "+err.Error()))
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Error("Failed to read input.", "err", err)
	}
}

func parseFd(s string) (file.Fd, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("fd %q: %w", s, errUsage)
	}
	return file.Fd(n), nil
}

func (sh *shell) ls(args []string) error {
	path := sh.fs.Cwd()
	if len(args) > 0 {
		path = args[0]
	}
	ents, err := sh.fs.ReadDir(path)
	if err != nil {
		return err
	}
	for _, e := range ents {
		if e.Stat.Type == inode.I_DIR {
			fmt.Fprintln(sh.out, dirStyle.Render(e.Name+"/"))
		} else {
			fmt.Fprintln(sh.out, e.Name)
		}
	}
	return nil
}

func (sh *shell) cd(args []string) error {
	return sh.fs.ChangeDirectory(args[0])
}

func (sh *shell) pwd(args []string) error {
	fmt.Fprintln(sh.out, sh.fs.Cwd())
	return nil
}

func (sh *shell) mkdir(args []string) error {
	return sh.fs.MakeDirectory(args[0])
}

func (sh *shell) create(args []string) error {
	fd, err := sh.fs.Create(args[0], inode.M_READ|inode.M_WRITE)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "fd %d\n", fd)
	return nil
}

func (sh *shell) open(args []string) error {
	fd, err := sh.fs.Open(args[0], inode.M_READ|inode.M_WRITE)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "fd %d\n", fd)
	return nil
}

func (sh *shell) read(args []string) error {
	fd, err := parseFd(args[0])
	if err != nil {
		return err
	}
	n, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return fmt.Errorf("count %q: %w", args[1], errUsage)
	}
	p := make([]byte, n)
	if _, err := sh.fs.Read(fd, p); err != nil {
		return err
	}
	fmt.Fprintln(sh.out, string(p))
	return nil
}

func (sh *shell) write(args []string) error {
	fd, err := parseFd(args[0])
	if err != nil {
		return err
	}
	n, err := sh.fs.Write(fd, []byte(strings.Join(args[1:], " ")))
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "wrote %d bytes\n", n)
	return nil
}

func (sh *shell) close(args []string) error {
	fd, err := parseFd(args[0])
	if err != nil {
		return err
	}
	return sh.fs.Close(fd)
}

func (sh *shell) cat(args []string) error {
	data, err := sh.fs.Cat(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.out, string(data))
	return nil
}

func (sh *shell) rm(args []string) error {
	return sh.fs.Remove(args[0])
}

func (sh *shell) stat(args []string) error {
	st, err := sh.fs.Stat(args[0])
	if err != nil {
		return err
	}
	row := func(label string, v any) {
		fmt.Fprintf(sh.out, "%s %v\n", labelStyle.Render(fmt.Sprintf("%-7s", label)), v)
	}
	row("inode", st.Inum)
	row("type", st.Type)
	row("size", fmt.Sprintf("%s (%d bytes)", humanize.IBytes(st.Size), st.Size))
	row("blocks", st.Nblock)
	row("links", st.Nlink)
	row("mode", fmt.Sprintf("%#o", st.Mode))
	row("mtime", humanize.Time(time.Unix(int64(st.Mtime), 0)))
	return nil
}

func (sh *shell) sum(args []string) error {
	data, err := sh.fs.Cat(args[0])
	if err != nil {
		return err
	}
	h := blake3.New()
	h.Write(data)
	fmt.Fprintf(sh.out, "%x  %s\n", h.Sum(nil), args[0])
	return nil
}

func (sh *shell) df(args []string) error {
	st, err := sh.fs.Statfs()
	if err != nil {
		return err
	}
	used := (st.DataBlocks - st.FreeData) * st.BlockSize
	fmt.Fprintf(sh.out, "%s %s of %s used, %s free\n",
		labelStyle.Render("data  "),
		humanize.IBytes(used),
		humanize.IBytes(st.DataBlocks*st.BlockSize),
		humanize.IBytes(st.FreeData*st.BlockSize))
	fmt.Fprintf(sh.out, "%s %s of %s free\n",
		labelStyle.Render("inodes"),
		humanize.Comma(int64(st.FreeInodes)),
		humanize.Comma(int64(st.Inodes)))
	fmt.Fprintf(sh.out, "%s %d free buffers, %d free inode slots, %d open files\n",
		labelStyle.Render("cache "),
		st.FreeBufs, st.FreeIcache, st.OpenFiles)
	return nil
}

func (sh *shell) help(args []string) error {
	for _, name := range []string{"ls", "cd", "pwd", "mkdir", "create", "open", "read",
		"write", "close", "cat", "rm", "stat", "sum", "df", "exit"} {
		fmt.Fprintln(sh.out, commands[name].usage)
	}
	return nil
}
