// Package monitor implements the boot monitor: a single-threaded command
// shell that loads one program at a time from the disk table into the
// execution window, hands control to it through the injected runner, and
// decodes the returned word as an exit code or a trap cause.
//
// The shell recognizes the fixed built-ins ls, help, clear and exit; any
// other token is an exact-match program name. The prompt shows the prior
// run's nonzero code once, then resets it. The shell loop is the universal
// recovery boundary: lookup misses and run faults never take the monitor
// down, only the exit built-in does.
package monitor
