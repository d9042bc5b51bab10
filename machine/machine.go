// Package machine models the host machine surface the monitor drives: the
// fixed execution window, the loaded process, and the privilege-transfer
// capability that runs it.
package machine

import (
	"fmt"
	"iter"
	"maps"

	"github.com/ezrec/rvmon/heap"
)

const (
	WINDOW_BASE = uint64(0x80200000) // Fixed physical address of the execution window.
	WINDOW_SIZE = uint64(1 << 20)    // Fixed execution window size.
)

var _machine_defines = map[string]string{
	"WINDOW_BASE": fmt.Sprintf("0x%x", WINDOW_BASE),
	"WINDOW_SIZE": fmt.Sprintf("0x%x", WINDOW_SIZE),
}

// Defines for the machine layout.
func Defines() iter.Seq2[string, string] {
	return maps.All(_machine_defines)
}

// Window is the execution window: a fixed-address, fixed-size memory region
// holding at most one resident program. Loaded programs are position
// dependent, linked to Base.
type Window struct {
	Base uint64
	Data []byte
}

// NewWindow creates the execution window at the fixed physical address.
func NewWindow() (window *Window) {
	window = &Window{
		Base: WINDOW_BASE,
		Data: make([]byte, WINDOW_SIZE),
	}

	return
}

// Load zero-fills the entire window and copies the program image to its
// base. No residue from a prior resident is ever visible. An image larger
// than the window is refused.
func (window *Window) Load(image []byte) (err error) {
	if uint64(len(image)) > uint64(len(window.Data)) {
		err = ErrImageTooBig
		return
	}

	clear(window.Data)
	copy(window.Data, image)

	return
}

// Process is one loaded program instance: the window it occupies, its entry
// point, and its own heap arena. The arena is created fresh on every load
// and discarded with the process.
type Process struct {
	Window *Window
	Entry  uint64 // Entry address; the window base.
	Size   uint64 // Static image size in bytes.
	Heap   *heap.Arena
}

// NewProcess loads an image into the window and prepares the process
// context for it.
func NewProcess(window *Window, image []byte) (proc *Process, err error) {
	err = window.Load(image)
	if err != nil {
		return
	}

	size := uint64(len(image))
	proc = &Process{
		Window: window,
		Entry:  window.Base,
		Size:   size,
		Heap:   heap.NewArena(window.Data, window.Base, window.Base+size),
	}

	return
}
