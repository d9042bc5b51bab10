package monitor

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/rvmon/disk"
	"github.com/ezrec/rvmon/machine"
)

type testConsole struct {
	in  *strings.Reader
	out bytes.Buffer
}

func newTestConsole(input string) *testConsole {
	return &testConsole{in: strings.NewReader(input)}
}

func (tc *testConsole) Read(p []byte) (n int, err error) {
	return tc.in.Read(p)
}

func (tc *testConsole) Write(p []byte) (n int, err error) {
	return tc.out.Write(p)
}

func (tc *testConsole) String() string {
	return tc.out.String()
}

// word builds a stub program whose run result is the given word.
func word(value uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, value)
}

func testImage(t *testing.T) (img *disk.Image) {
	require := require.New(t)

	builder := &disk.Builder{}
	require.NoError(builder.Add("hello", word(0)))
	require.NoError(builder.Add("fail", word(2)))
	require.NoError(builder.Add("crash", word(0xdeadbeef)))

	img, err := disk.Open(bytes.NewReader(builder.Image()))
	require.NoError(err)

	return
}

func runSession(t *testing.T, input string) (output string, err error) {
	console := newTestConsole(input)
	mon := NewMonitor(console, testImage(t), &machine.StubRunner{})
	err = mon.Run()
	output = console.String()

	return
}

func TestMonitor_Banner(t *testing.T) {
	assert := assert.New(t)

	output, err := runSession(t, "")
	assert.NoError(err)

	assert.Contains(output, "RISC-V MicroKernel v2.0.0")
	assert.Contains(output, "System Ready.")
	assert.Contains(output, "root@riscv")
}

func TestMonitor_Ls(t *testing.T) {
	assert := assert.New(t)

	output, err := runSession(t, "ls\n")
	assert.NoError(err)

	assert.Contains(output, "PERM   SIZE    NAME\n")
	assert.Contains(output, "----   ----    ----\n")
	assert.Contains(output, "-r-x      8    hello\n")
	assert.Contains(output, "-r-x      8    fail\n")
	assert.Contains(output, "-r-x      8    crash\n")
}

func TestMonitor_Help(t *testing.T) {
	assert := assert.New(t)

	output, err := runSession(t, "help\n")
	assert.NoError(err)
	assert.Contains(output, "Built-ins: ls, help, clear, exit")
}

func TestMonitor_Clear(t *testing.T) {
	assert := assert.New(t)

	output, err := runSession(t, "clear\n")
	assert.NoError(err)
	assert.Contains(output, "\x1b[2J\x1b[H")
}

func TestMonitor_Exit(t *testing.T) {
	assert := assert.New(t)

	console := newTestConsole("exit\nls\n")
	mon := NewMonitor(console, testImage(t), &machine.StubRunner{})

	halted := -1
	mon.Halt = func(status int) { halted = status }

	assert.NoError(mon.Run())
	assert.Equal(0, halted)

	output := console.String()
	assert.Contains(output, "System halting.")
	// The loop ends at exit; nothing after it runs.
	assert.NotContains(output, "PERM")
}

func TestMonitor_RunProgram(t *testing.T) {
	assert := assert.New(t)

	output, err := runSession(t, "hello\n")
	assert.NoError(err)

	assert.NotContains(output, "command not found")
	assert.NotContains(output, "FATAL")
	// Exit code 0 never shows on the prompt.
	assert.NotContains(output, "(0)")
}

func TestMonitor_ExitCodePrompt(t *testing.T) {
	assert := assert.New(t)

	output, err := runSession(t, "fail\n\n\n")
	assert.NoError(err)

	// The code shows once, then resets.
	assert.Equal(1, strings.Count(output, "(2)"))
}

func TestMonitor_NotFound(t *testing.T) {
	assert := assert.New(t)

	output, err := runSession(t, "nope\n\n")
	assert.NoError(err)

	assert.Contains(output, "sh: command not found: nope\n")
	assert.Equal(1, strings.Count(output, "(127)"))
}

func TestMonitor_Trap(t *testing.T) {
	assert := assert.New(t)

	output, err := runSession(t, "crash\n\n")
	assert.NoError(err)

	assert.Contains(output, "[FATAL] Trap Cause: 0x00000000deadbeef")
	assert.Equal(1, strings.Count(output, "(139)"))
}

func TestMonitor_Backspace(t *testing.T) {
	assert := assert.New(t)

	// Destructive editing: "helly" corrected to "hello".
	output, err := runSession(t, "helly\x7fo\n")
	assert.NoError(err)

	assert.Contains(output, "\b \b")
	assert.NotContains(output, "command not found")

	// Backspace on an empty line is a no-op.
	output, err = runSession(t, "\x7fhello\n")
	assert.NoError(err)
	assert.NotContains(output, "command not found")
}

func TestMonitor_CarriageReturn(t *testing.T) {
	assert := assert.New(t)

	output, err := runSession(t, "hello\r")
	assert.NoError(err)
	assert.NotContains(output, "command not found")
}

func TestMonitor_EmptyLine(t *testing.T) {
	assert := assert.New(t)

	output, err := runSession(t, "\n\n")
	assert.NoError(err)

	// Two empty lines, three prompts, no complaints.
	assert.Equal(3, strings.Count(output, "root@riscv"))
	assert.NotContains(output, "command not found")
}

func TestMonitor_NulSkipped(t *testing.T) {
	assert := assert.New(t)

	output, err := runSession(t, "he\x00llo\n")
	assert.NoError(err)
	assert.NotContains(output, "command not found")
}

func TestMonitor_TableUnchanged(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	img := testImage(t)
	before := append([]disk.Entry(nil), img.Table.Entries...)

	console := newTestConsole("nope\nls\n")
	mon := NewMonitor(console, img, &machine.StubRunner{})
	require.NoError(mon.Run())

	assert.Equal(before, img.Table.Entries)
}

func TestMonitor_WindowZeroed(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	img := testImage(t)
	console := newTestConsole("hello\n")

	var seen []byte
	runner := machine.RunnerFunc(func(proc *machine.Process) (word uint64, err error) {
		seen = append([]byte(nil), proc.Window.Data[:16]...)
		return 0, nil
	})

	mon := NewMonitor(console, img, runner)
	// Dirty the window before the first load.
	for n := range mon.Window.Data {
		mon.Window.Data[n] = 0xff
	}

	require.NoError(mon.Run())
	require.Len(seen, 16)
	assert.Equal(word(0), seen[:8])
	assert.Equal(make([]byte, 8), seen[8:])
}

func TestMonitor_RunnerError(t *testing.T) {
	assert := assert.New(t)

	img := testImage(t)
	console := newTestConsole("hello\n\n")

	runner := machine.RunnerFunc(func(proc *machine.Process) (word uint64, err error) {
		return 0, machine.ErrImageTruncated
	})

	mon := NewMonitor(console, img, runner)
	assert.NoError(mon.Run())

	output := console.String()
	assert.Contains(output, "sh: hello: ")
	assert.Equal(1, strings.Count(output, "(126)"))
}
