// Package disk implements the flat backing-store image used by the rvmon
// monitor: a reserved kernel region, a program table, and program bodies.
//
// The on-disk layout is byte-exact. Bytes [0, KERNEL_SIZE) hold the kernel
// image. At KERNEL_SIZE a little-endian 32-bit record count is followed by
// that many fixed 40-byte records {name [32]byte, offset u32, size u32}.
// Program bodies live at their record's offset.
//
// The package also provides a Builder that assembles images from a Starlark
// manifest, with the layout constants predeclared for use in expressions.
package disk
