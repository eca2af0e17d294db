package host_test

// fixtureWasm is a hand-assembled module importing wasi proc_exit and
// exporting:
//
//	add(i32, i32) i32   returns the sum
//	boom() i32          calls proc_exit(70)
//	trap() i32          executes unreachable
var fixtureWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section: (i32,i32)->i32, (i32)->(), ()->i32
	0x01, 0x0f, 0x03,
	0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f,
	0x60, 0x01, 0x7f, 0x00,
	0x60, 0x00, 0x01, 0x7f,
	// import section: wasi_snapshot_preview1.proc_exit, type 1
	0x02, 0x24, 0x01,
	0x16, 'w', 'a', 's', 'i', '_', 's', 'n', 'a', 'p', 's', 'h', 'o', 't', '_', 'p', 'r', 'e', 'v', 'i', 'e', 'w', '1',
	0x09, 'p', 'r', 'o', 'c', '_', 'e', 'x', 'i', 't',
	0x00, 0x01,
	// function section: types 0, 2, 2
	0x03, 0x04, 0x03, 0x00, 0x02, 0x02,
	// export section
	0x07, 0x15, 0x03,
	0x03, 'a', 'd', 'd', 0x00, 0x01,
	0x04, 'b', 'o', 'o', 'm', 0x00, 0x02,
	0x04, 't', 'r', 'a', 'p', 0x00, 0x03,
	// code section
	0x0a, 0x17, 0x03,
	0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b,
	0x09, 0x00, 0x41, 0xc6, 0x00, 0x10, 0x00, 0x41, 0x00, 0x0b,
	0x03, 0x00, 0x00, 0x0b,
}
