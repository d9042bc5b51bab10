package disk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"iter"
	"maps"
)

const (
	KERNEL_SIZE = 16384 // Reserved kernel region at the start of the image.
	NAME_SIZE   = 32    // Fixed record name field, NUL terminated.
	ENTRY_SIZE  = NAME_SIZE + 4 + 4
)

var _disk_defines = map[string]string{
	"KERNEL_SIZE": fmt.Sprintf("%v", KERNEL_SIZE),
	"NAME_SIZE":   fmt.Sprintf("%v", NAME_SIZE),
}

// Defines for the disk layout.
func Defines() iter.Seq2[string, string] {
	return maps.All(_disk_defines)
}

// Entry is one program table record, immutable once read.
type Entry struct {
	Name   string // Program name, at most NAME_SIZE-1 characters.
	Offset uint32 // Byte offset of the program body from the image base.
	Size   uint32 // Program body length in bytes.
}

// Table is the program table, read once at boot and ordered as stored.
type Table struct {
	Entries []Entry
}

// ReadTable parses the record count and records that follow the kernel
// region. The count and every record's byte range are checked against the
// image length before any entry is accepted.
func ReadTable(image []byte) (table *Table, err error) {
	if len(image) < KERNEL_SIZE+4 {
		err = ErrImageShort
		return
	}

	count := binary.LittleEndian.Uint32(image[KERNEL_SIZE:])
	base := KERNEL_SIZE + 4
	if uint64(base)+uint64(count)*ENTRY_SIZE > uint64(len(image)) {
		err = ErrTableCount
		return
	}

	table = &Table{}
	for i := range int(count) {
		rec := image[base+i*ENTRY_SIZE:]

		raw := rec[:NAME_SIZE]
		nul := bytes.IndexByte(raw, 0)
		if nul < 0 {
			err = ErrEntry{Index: i, Err: ErrNameMissing}
			table = nil
			return
		}

		entry := Entry{
			Name:   string(raw[:nul]),
			Offset: binary.LittleEndian.Uint32(rec[NAME_SIZE:]),
			Size:   binary.LittleEndian.Uint32(rec[NAME_SIZE+4:]),
		}
		if uint64(entry.Offset)+uint64(entry.Size) > uint64(len(image)) {
			err = ErrEntry{Index: i, Name: entry.Name, Err: ErrEntryBounds}
			table = nil
			return
		}

		table.Entries = append(table.Entries, entry)
	}

	return
}

// Lookup finds the first entry exactly matching name.
func (table *Table) Lookup(name string) (index int, ok bool) {
	for n, entry := range table.Entries {
		if entry.Name == name {
			return n, true
		}
	}

	return -1, false
}
