package machine

import (
	"encoding/binary"

	"github.com/JJLDonley/Simple-sub005/lang/bytecode"
)

// decoder walks a function's code buffer, reading one instruction's
// immediates at a time starting from a Frame's IP. It mirrors the
// teacher's own machine-side opcode awareness (lang/machine kept its
// own copy of the opcode table next to lang/compiler's) but here reads
// directly against the lang/bytecode encoding rather than duplicating
// the opcode catalog.
type decoder struct {
	code []byte
	ip   uint32
}

func newDecoder(code []byte, ip uint32) *decoder {
	return &decoder{code: code, ip: ip}
}

func (d *decoder) op() bytecode.Op {
	op := bytecode.Op(d.code[d.ip])
	d.ip++
	return op
}

func (d *decoder) byteImm() byte {
	v := d.code[d.ip]
	d.ip++
	return v
}

func (d *decoder) typeImm() bytecode.Type {
	return bytecode.Type(d.byteImm())
}

func (d *decoder) uvarint() uint64 {
	v, n := binary.Uvarint(d.code[d.ip:])
	d.ip += uint32(n)
	return v
}

func (d *decoder) varint() int64 {
	v, n := binary.Varint(d.code[d.ip:])
	d.ip += uint32(n)
	return v
}

func (d *decoder) fixed32() uint32 {
	v := binary.LittleEndian.Uint32(d.code[d.ip : d.ip+4])
	d.ip += 4
	return v
}

func (d *decoder) fixed64() uint64 {
	v := binary.LittleEndian.Uint64(d.code[d.ip : d.ip+8])
	d.ip += 8
	return v
}

// jumpTarget reads the fixed 4-byte jump address immediate (§4.2's
// "jumps always 4 bytes").
func (d *decoder) jumpTarget() uint32 { return d.fixed32() }
