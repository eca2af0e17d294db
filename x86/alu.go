package x86

// Add32 returns x+y and updates CF, ZF, SF and OF the way ADD does.
func Add32(fl *Flags, x, y uint32) uint32 {
	r := x + y
	fl.Set(CF, r < x)
	fl.Set(ZF, r == 0)
	fl.Set(SF, r>>31 == 1)
	// Overflow when both operands share a sign the result does not.
	fl.Set(OF, ((x^^y)&(x^r))>>31 == 1)
	return r
}

// Sub32 returns x-y and updates CF, ZF, SF and OF the way SUB does.
func Sub32(fl *Flags, x, y uint32) uint32 {
	r := x - y
	fl.Set(CF, x < y)
	fl.Set(ZF, r == 0)
	fl.Set(SF, r>>31 == 1)
	// Overflow when the operands differ in sign and the result takes y's.
	fl.Set(OF, ((x^y)&(x^r))>>31 == 1)
	return r
}
