package disk

import (
	"errors"

	"github.com/ezrec/rvmon/translate"
)

var f = translate.From

var (
	// Image errors
	ErrImageShort    = errors.New(f("image too short for kernel region"))
	ErrTableCount    = errors.New(f("record count exceeds image"))
	ErrEntryBounds   = errors.New(f("program bytes exceed image"))
	ErrNameMissing   = errors.New(f("name unterminated"))
	ErrNameTooLong   = errors.New(f("name too long"))
	ErrNameDuplicate = errors.New(f("name duplicated"))

	// Manifest errors
	ErrManifestKernel   = errors.New(f("manifest 'kernel' is not a string"))
	ErrManifestPrograms = errors.New(f("manifest 'programs' is not a list of (name, path) pairs"))
)

type ErrEntry struct {
	Index int
	Name  string
	Err   error
}

func (err ErrEntry) Error() string {
	return f("entry %d '%v' %v", err.Index, err.Name, err.Err)
}

func (err ErrEntry) Unwrap() error {
	return err.Err
}
