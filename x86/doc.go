// Package x86 models the parts of a 32-bit x86 machine that a call across a
// library boundary touches: the general purpose registers, the flags that
// stack pointer arithmetic updates, and a little-endian stack.
package x86
