// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package disk

import (
	"encoding/binary"
	"iter"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/zeebo/blake3"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/rvmon/internal"
)

// Builder assembles a backing-store image from a kernel binary and a set of
// named program binaries. Offsets are assigned in insertion order,
// immediately after the table.
type Builder struct {
	Verbose bool // Set to log per-program sizes and digests.

	// Defines is an optional extra set of constants predeclared for
	// manifest expressions, merged over this package's own.
	Defines iter.Seq2[string, string]

	Kernel []byte // Kernel image; padded or truncated to KERNEL_SIZE.

	programs []builderProgram
}

type builderProgram struct {
	name string
	body []byte
}

// Add appends a program to the image under the given name.
func (b *Builder) Add(name string, body []byte) (err error) {
	if len(name) >= NAME_SIZE {
		err = ErrEntry{Name: name, Index: len(b.programs), Err: ErrNameTooLong}
		return
	}
	for _, prog := range b.programs {
		if prog.name == name {
			err = ErrEntry{Name: name, Index: len(b.programs), Err: ErrNameDuplicate}
			return
		}
	}

	b.programs = append(b.programs, builderProgram{name: name, body: body})

	return
}

// Image assembles the backing-store image.
func (b *Builder) Image() (image []byte) {
	if len(b.Kernel) > KERNEL_SIZE {
		log.Printf("disk: kernel is larger than %v bytes (%v), it will be truncated", KERNEL_SIZE, len(b.Kernel))
	}

	kernel := make([]byte, KERNEL_SIZE)
	copy(kernel, b.Kernel)
	image = append(image, kernel...)

	image = binary.LittleEndian.AppendUint32(image, uint32(len(b.programs)))

	offset := uint32(KERNEL_SIZE + 4 + len(b.programs)*ENTRY_SIZE)
	for _, prog := range b.programs {
		var name [NAME_SIZE]byte
		copy(name[:NAME_SIZE-1], prog.name)
		image = append(image, name[:]...)
		image = binary.LittleEndian.AppendUint32(image, offset)
		image = binary.LittleEndian.AppendUint32(image, uint32(len(prog.body)))
		offset += uint32(len(prog.body))
	}

	for _, prog := range b.programs {
		if b.Verbose {
			sum := blake3.Sum256(prog.body)
			log.Printf("disk: %v %v bytes blake3:%x", prog.name, len(prog.body), sum[:8])
		}
		image = append(image, prog.body...)
	}

	return
}

// LoadManifest evaluates a Starlark manifest and loads the kernel and
// program binaries it names, relative to the manifest's directory.
//
// The manifest may assign 'kernel' to a path, and 'programs' to a list of
// (name, path) pairs. Layout constants from Defines() are predeclared.
func (b *Builder) LoadManifest(filename string) (err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}

	pred := starlark.StringDict{}
	defines := Defines()
	if b.Defines != nil {
		defines = internal.IterSeq2Concat(defines, b.Defines)
	}
	for key, str := range defines {
		value, err := strconv.ParseUint(str, 0, 64)
		if err != nil {
			// Ignore non-integer defines.
			continue
		}
		pred[key] = starlark.MakeUint64(value)
	}

	dict, err := starlark.ExecFileOptions(&opts, &thread, filename, nil, pred)
	if err != nil {
		return
	}

	dir := filepath.Dir(filename)

	if st_kernel, ok := dict["kernel"]; ok {
		path, ok := starlark.AsString(st_kernel)
		if !ok {
			err = ErrManifestKernel
			return
		}
		b.Kernel, err = os.ReadFile(filepath.Join(dir, path))
		if err != nil {
			return
		}
	}

	st_programs, ok := dict["programs"]
	if !ok {
		return
	}
	list, ok := st_programs.(*starlark.List)
	if !ok {
		err = ErrManifestPrograms
		return
	}

	for entry := range list.Elements() {
		pair, ok := entry.(starlark.Tuple)
		if !ok || pair.Len() != 2 {
			err = ErrManifestPrograms
			return
		}
		name, name_ok := starlark.AsString(pair.Index(0))
		path, path_ok := starlark.AsString(pair.Index(1))
		if !name_ok || !path_ok {
			err = ErrManifestPrograms
			return
		}

		var body []byte
		body, err = os.ReadFile(filepath.Join(dir, path))
		if err != nil {
			return
		}

		err = b.Add(name, body)
		if err != nil {
			return
		}
	}

	return
}
