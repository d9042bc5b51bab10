package disk

import (
	"bufio"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Image is a backing-store image with its parsed program table.
type Image struct {
	Data  []byte
	Table *Table
}

// Open reads a disk image. Images compressed with gzip are detected by
// their magic bytes and decompressed transparently.
func Open(r io.Reader) (img *Image, err error) {
	br := bufio.NewReader(r)

	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		var zr *gzip.Reader
		zr, err = gzip.NewReader(br)
		if err != nil {
			return
		}
		defer zr.Close()
		return open(zr)
	}

	return open(br)
}

func open(r io.Reader) (img *Image, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return
	}

	table, err := ReadTable(data)
	if err != nil {
		return
	}

	img = &Image{
		Data:  data,
		Table: table,
	}

	return
}

// Program returns the body bytes for a table entry.
func (img *Image) Program(entry Entry) (body []byte, err error) {
	end := uint64(entry.Offset) + uint64(entry.Size)
	if end > uint64(len(img.Data)) {
		err = ErrEntryBounds
		return
	}

	body = img.Data[entry.Offset:end]

	return
}
