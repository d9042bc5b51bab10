// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package monitor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/ezrec/rvmon/disk"
	"github.com/ezrec/rvmon/machine"
)

const (
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiCyan  = "\x1b[36m"
	ansiReset = "\x1b[0m"
)

const lineMax = 32 // Input line buffer, including the terminator slot.

// Shell codes for failures at the monitor boundary.
const (
	CODE_NOT_FOUND    = 127 // Token matched nothing in the table.
	CODE_NOT_RUNNABLE = 126 // Program could not be loaded or started.
)

// Monitor is the shell and process loader. Console carries the byte-level
// terminal session; Runner is the injected privilege-transfer capability.
type Monitor struct {
	Verbose bool // Set to enable verbose logging.

	Console io.ReadWriter
	Image   *disk.Image
	Window  *machine.Window
	Runner  machine.Runner

	// Halt, when set, is invoked by the exit built-in before the shell
	// loop returns; it stands in for the termination call.
	Halt func(status int)

	lastCode int
	reader   *bufio.Reader
}

// NewMonitor creates a monitor for a disk image, with a fresh execution
// window.
func NewMonitor(console io.ReadWriter, image *disk.Image, runner machine.Runner) (mon *Monitor) {
	mon = &Monitor{
		Console: console,
		Image:   image,
		Window:  machine.NewWindow(),
		Runner:  runner,
	}

	return
}

func (mon *Monitor) print(text string) {
	io.WriteString(mon.Console, text)
}

func (mon *Monitor) banner() {
	mon.print("\n")
	mon.print(ansiCyan + "RISC-V MicroKernel v2.0.0" + ansiReset + "\n")
	mon.print("CPUs: 1 | RAM: 128MB | Arch: rv64im\n\n")

	mon.print("[ " + ansiGreen + "OK" + ansiReset + " ] Initializing UART...\n")
	mon.print("[ " + ansiGreen + "OK" + ansiReset + " ] Mounting Virtual Disk...\n")
	mon.print("[ " + ansiGreen + "OK" + ansiReset + " ] Clearing User Memory...\n")
	mon.print("[ " + ansiGreen + "OK" + ansiReset + " ] System Ready.\n\n")
}

func (mon *Monitor) prompt() {
	mon.print(ansiGreen + "root@riscv" + ansiReset + ":" + ansiCyan + "~" + ansiReset)

	// The prior code shows once, then resets.
	if mon.lastCode != 0 {
		mon.print(fmt.Sprintf(ansiRed+" (%d)"+ansiReset, mon.lastCode))
		mon.lastCode = 0
	}

	mon.print("# ")
}

// readLine blocks for one newline- or carriage-return-terminated line with
// destructive backspace editing, echoing as it goes. The line is capped at
// lineMax-1 characters; NUL bytes are skipped.
func (mon *Monitor) readLine() (line string, err error) {
	buf := make([]byte, 0, lineMax)

	for len(buf) < lineMax-1 {
		var c byte
		c, err = mon.reader.ReadByte()
		if err != nil {
			return
		}

		if c == 0 {
			continue
		}

		if c == 0x7f || c == '\b' {
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
				mon.print("\b \b")
			}
			continue
		}

		if c == '\n' || c == '\r' {
			break
		}

		buf = append(buf, c)
		mon.print(string(c))
	}

	mon.print("\n")
	line = string(buf)

	return
}

// Run boots the monitor and serves the shell until the exit built-in or
// end of console input.
func (mon *Monitor) Run() (err error) {
	mon.reader = bufio.NewReader(mon.Console)

	mon.banner()

	for {
		mon.prompt()

		var line string
		line, err = mon.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			return
		}

		if line == "" {
			continue
		}

		switch line {
		case "ls":
			mon.listPrograms()
		case "help":
			mon.print("Built-ins: ls, help, clear, exit\n")
		case "clear":
			mon.print("\x1b[2J\x1b[H")
		case "exit":
			mon.print("[" + ansiGreen + " OK " + ansiReset + "] System halting.\n")
			if mon.Halt != nil {
				mon.Halt(0)
			}
			return
		default:
			mon.lastCode = mon.exec(line)
		}
	}
}

// listPrograms prints the program table in the ls format: a permission
// string, the size right-justified in a 4-character field, and the name.
func (mon *Monitor) listPrograms() {
	mon.print("PERM   SIZE    NAME\n")
	mon.print("----   ----    ----\n")
	for _, entry := range mon.Image.Table.Entries {
		mon.print(fmt.Sprintf("-r-x   %4d    %v\n", entry.Size, entry.Name))
	}
}

// exec is the loader: look the name up, rebuild the execution window,
// transfer control, classify the returned word. Every failure is
// recoverable here; only the shell-visible code escapes.
func (mon *Monitor) exec(name string) (code int) {
	index, ok := mon.Image.Table.Lookup(name)
	if !ok {
		mon.print("sh: command not found: " + name + "\n")
		return CODE_NOT_FOUND
	}
	entry := mon.Image.Table.Entries[index]

	body, err := mon.Image.Program(entry)
	if err != nil {
		mon.print("sh: " + name + ": " + err.Error() + "\n")
		return CODE_NOT_RUNNABLE
	}

	proc, err := machine.NewProcess(mon.Window, body)
	if err != nil {
		mon.print("sh: " + name + ": " + err.Error() + "\n")
		return CODE_NOT_RUNNABLE
	}

	if mon.Verbose {
		log.Printf("monitor: run %v (%v bytes at 0x%x)", name, proc.Size, proc.Entry)
	}

	word, err := mon.Runner.Run(proc)
	if err != nil {
		mon.print("sh: " + name + ": " + err.Error() + "\n")
		return CODE_NOT_RUNNABLE
	}

	result := machine.Classify(word)
	if result.Trapped {
		mon.print(fmt.Sprintf("\n"+ansiRed+"[FATAL] Trap Cause: 0x%016x"+ansiReset+"\n", result.Cause))
	}

	if mon.Verbose {
		log.Printf("monitor: %v returned 0x%x, code %v", name, word, result.ShellCode())
	}

	return result.ShellCode()
}
