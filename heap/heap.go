// Package heap implements the first-fit linear heap used by programs
// loaded into the execution window.
//
// Blocks carry a 16-byte header {size u64, next u64} embedded at the head
// of their byte range, little-endian, addressed in machine address space.
// Released blocks are pushed on a singly linked free list and reused by
// first-fit with splitting; adjacent free blocks are never coalesced, so
// long allocate/release cycles fragment by design.
package heap

import (
	"encoding/binary"
	"fmt"
	"iter"
	"maps"
)

const (
	ALIGN_SIZE  = 8                // Allocation alignment, a power of 2.
	HEADER_SIZE = 16               // Block header: size u64, next u64.
	HEAP_LIMIT  = uint64(16 << 20) // Heap ceiling relative to the arena base.
)

var _heap_defines = map[string]string{
	"HEAP_ALIGN":  fmt.Sprintf("%v", ALIGN_SIZE),
	"HEAP_HEADER": fmt.Sprintf("%v", HEADER_SIZE),
	"HEAP_LIMIT":  fmt.Sprintf("0x%x", HEAP_LIMIT),
}

// Defines for the heap layout.
func Defines() iter.Seq2[string, string] {
	return maps.All(_heap_defines)
}

// Arena is one program's heap context: the free-list head and the monotonic
// top pointer. It lives for the duration of one program's execution and is
// discarded when the execution window is next reset. An Arena is owned by a
// single program and is not safe for concurrent or recursive use.
type Arena struct {
	mem   []byte // Window-backed memory, mem[0] is at address base.
	base  uint64 // Machine address of mem[0].
	end   uint64 // End of the program's static image.
	limit uint64 // Growth ceiling, exclusive.

	top  uint64 // Monotonic heap top; 0 until the first growth.
	free uint64 // Free-list head address; 0 is the empty list.
}

// NewArena creates the heap context for a program whose static image ends
// at address end, backed by mem starting at address base. The growth
// ceiling is base+HEAP_LIMIT, clamped to the backing memory.
func NewArena(mem []byte, base uint64, end uint64) (arena *Arena) {
	limit := base + HEAP_LIMIT
	if max := base + uint64(len(mem)); limit > max {
		limit = max
	}

	arena = &Arena{
		mem:   mem,
		base:  base,
		end:   end,
		limit: limit,
	}

	return
}

func alignUp(value uint64) uint64 {
	return (value + (ALIGN_SIZE - 1)) & ^uint64(ALIGN_SIZE-1)
}

func (arena *Arena) blockSize(addr uint64) uint64 {
	return binary.LittleEndian.Uint64(arena.mem[addr-arena.base:])
}

func (arena *Arena) blockNext(addr uint64) uint64 {
	return binary.LittleEndian.Uint64(arena.mem[addr-arena.base+8:])
}

func (arena *Arena) setBlockSize(addr uint64, size uint64) {
	binary.LittleEndian.PutUint64(arena.mem[addr-arena.base:], size)
}

func (arena *Arena) setBlockNext(addr uint64, next uint64) {
	binary.LittleEndian.PutUint64(arena.mem[addr-arena.base+8:], next)
}

// sbrk grows the heap by increment bytes, refusing growth once the new top
// would reach the ceiling. Returns the prior top, or 0 on failure.
func (arena *Arena) sbrk(increment uint64) (addr uint64) {
	if arena.top == 0 {
		arena.top = alignUp(arena.end)
	}

	if arena.top+increment >= arena.limit {
		return 0
	}

	addr = arena.top
	arena.top += increment

	return
}

// Allocate returns the address of a usable range of at least size bytes,
// or 0 on failure. A zero size fails without mutating the arena.
// Out-of-memory is a recoverable result: the arena stays consistent for a
// smaller subsequent request.
func (arena *Arena) Allocate(size uint64) (addr uint64) {
	if size == 0 {
		return 0
	}

	total := alignUp(size + HEADER_SIZE)

	var prev uint64
	curr := arena.free
	for curr != 0 {
		if arena.blockSize(curr) >= total {
			if arena.blockSize(curr) >= total+HEADER_SIZE+ALIGN_SIZE {
				// Split: shrink the match, splice the remainder
				// into its former list slot.
				remaining := curr + total
				arena.setBlockSize(remaining, arena.blockSize(curr)-total)
				arena.setBlockNext(remaining, arena.blockNext(curr))

				arena.setBlockSize(curr, total)

				if prev != 0 {
					arena.setBlockNext(prev, remaining)
				} else {
					arena.free = remaining
				}
			} else {
				// Consume the whole node rather than leave an
				// unusable sliver.
				if prev != 0 {
					arena.setBlockNext(prev, arena.blockNext(curr))
				} else {
					arena.free = arena.blockNext(curr)
				}
			}

			return curr + HEADER_SIZE
		}
		prev = curr
		curr = arena.blockNext(curr)
	}

	block := arena.sbrk(total)
	if block == 0 {
		return 0
	}

	arena.setBlockSize(block, total)

	return block + HEADER_SIZE
}

// Release returns an allocation to the free list. The block is pushed on
// the list head and never merged with its neighbors. A zero address is a
// no-op.
func (arena *Arena) Release(addr uint64) {
	if addr == 0 {
		return
	}

	block := addr - HEADER_SIZE

	arena.setBlockNext(block, arena.free)
	arena.free = block
}

// Top returns the current heap top, or the aligned image end before the
// first growth.
func (arena *Arena) Top() (top uint64) {
	top = arena.top
	if top == 0 {
		top = alignUp(arena.end)
	}

	return
}
