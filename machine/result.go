package machine

// RunResult is the outcome of one privilege transfer: either a cooperative
// exit with a code in [0,255], or an uncooperative trap whose raw cause
// shares the same return channel.
type RunResult struct {
	Trapped bool
	Code    uint8  // Exit code when not trapped.
	Cause   uint64 // Raw trap cause when trapped.
}

// Classify interprets the word returned by a Runner: values in [0,255] are
// a cooperative exit code, any other bit pattern is a trap cause.
func Classify(word uint64) (result RunResult) {
	if word <= 255 {
		result = RunResult{Code: uint8(word)}
	} else {
		result = RunResult{Trapped: true, Cause: word}
	}

	return
}

// ShellCode collapses the result to the code the shell displays: the exit
// code itself, or 139 for any trap regardless of cause.
func (result RunResult) ShellCode() (code int) {
	if result.Trapped {
		return 139
	}

	return int(result.Code)
}
