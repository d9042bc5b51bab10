package machine

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_Load(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	window := NewWindow()
	assert.Equal(WINDOW_BASE, window.Base)
	assert.Equal(int(WINDOW_SIZE), len(window.Data))

	require.NoError(window.Load(bytes.Repeat([]byte{0xff}, 1000)))
	assert.Equal(byte(0xff), window.Data[999])

	// A shorter load leaves no residue from the prior resident.
	require.NoError(window.Load(bytes.Repeat([]byte{0xee}, 10)))
	assert.Equal(byte(0xee), window.Data[9])
	for _, b := range window.Data[10:1000] {
		if b != 0 {
			t.Fatal("residue visible after reload")
		}
	}
}

func TestWindow_LoadTooBig(t *testing.T) {
	assert := assert.New(t)

	window := NewWindow()
	err := window.Load(make([]byte, WINDOW_SIZE+1))
	assert.ErrorIs(err, ErrImageTooBig)
}

func TestClassify(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		word    uint64
		trapped bool
		code    int
	}){
		{0, false, 0},
		{1, false, 1},
		{255, false, 255},
		{256, true, 139},
		{0xdeadbeef, true, 139},
		{0xffffffffffffffff, true, 139},
	}

	for _, entry := range table {
		result := Classify(entry.word)
		assert.Equal(entry.trapped, result.Trapped, "0x%x", entry.word)
		assert.Equal(entry.code, result.ShellCode(), "0x%x", entry.word)
		if entry.trapped {
			assert.Equal(entry.word, result.Cause)
		} else {
			assert.Equal(uint8(entry.word), result.Code)
		}
	}
}

func TestNewProcess(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	window := NewWindow()
	image := bytes.Repeat([]byte{0x55}, 100)

	proc, err := NewProcess(window, image)
	require.NoError(err)

	assert.Equal(WINDOW_BASE, proc.Entry)
	assert.Equal(uint64(100), proc.Size)

	// The process owns a fresh heap above its static image.
	addr := proc.Heap.Allocate(64)
	assert.True(addr >= WINDOW_BASE+100)
	assert.True(addr+64 <= WINDOW_BASE+WINDOW_SIZE)

	// A reload replaces the occupant and its heap context.
	proc2, err := NewProcess(window, image)
	require.NoError(err)
	assert.Equal(addr, proc2.Heap.Allocate(64))
}

func TestStubRunner(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	window := NewWindow()
	stub := &StubRunner{}

	image := binary.LittleEndian.AppendUint64(nil, 42)
	proc, err := NewProcess(window, image)
	require.NoError(err)

	word, err := stub.Run(proc)
	require.NoError(err)
	assert.Equal(uint64(42), word)

	proc, err = NewProcess(window, []byte{1, 2, 3})
	require.NoError(err)
	_, err = stub.Run(proc)
	assert.ErrorIs(err, ErrImageTruncated)
}
