package wasmtest

import "math"

// Code is a raw instruction sequence. The terminating end opcode is
// appended by the builder.
type Code []byte

func (c Code) LocalGet(i uint32) Code {
	return append(append(c, 0x20), EncodeULEB128(i)...)
}

func (c Code) GlobalGet(i uint32) Code {
	return append(append(c, 0x23), EncodeULEB128(i)...)
}

func (c Code) GlobalSet(i uint32) Code {
	return append(append(c, 0x24), EncodeULEB128(i)...)
}

func (c Code) I32Const(v int32) Code {
	return append(append(c, 0x41), EncodeSLEB128(int64(v))...)
}

func (c Code) F32Const(v float32) Code {
	return appendU32(append(c, 0x43), math.Float32bits(v))
}

// I32Load loads a word from the address on the stack plus offset.
func (c Code) I32Load(offset uint32) Code {
	return append(append(c, 0x28, 0x02), EncodeULEB128(offset)...)
}

// I32Store stores a word at the address on the stack plus offset.
func (c Code) I32Store(offset uint32) Code {
	return append(append(c, 0x36, 0x02), EncodeULEB128(offset)...)
}

// F32Store stores a float at the address on the stack plus offset.
func (c Code) F32Store(offset uint32) Code {
	return append(append(c, 0x38, 0x02), EncodeULEB128(offset)...)
}

func (c Code) I32Add() Code {
	return append(c, 0x6a)
}

func (c Code) Call(fn uint32) Code {
	return append(append(c, 0x10), EncodeULEB128(fn)...)
}

func (c Code) Drop() Code {
	return append(c, 0x1a)
}

func (c Code) Unreachable() Code {
	return append(c, 0x00)
}
