package machine

import (
	"errors"

	"github.com/ezrec/rvmon/translate"
)

var f = translate.From

var (
	ErrImageTooBig    = errors.New(f("image exceeds execution window"))
	ErrImageTruncated = errors.New(f("image too short to run"))
)
