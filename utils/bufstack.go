package utils

import (
	"encoding/binary"
	"fmt"
	"math"
)

// BufStack is a named window into a byte buffer. Sub buffers keep a link to
// their parent so that out of range reads report the whole chain.
type BufStack struct {
	parent         *BufStack
	buf            []byte
	relativeOffset int
	absoluteOffset int
	size           int
	kind           string
	name           string
}

func NewBufStack(kind string, b []byte) *BufStack {
	return &BufStack{
		buf:  b,
		size: len(b),
		kind: kind,
	}
}

// SubBuf opens a window at offset. It fails instead of panicking when offset is out of range.
func (bs *BufStack) SubBuf(kind string, offset int) (*BufStack, error) {
	if offset < 0 || offset > len(bs.buf) {
		return nil, fmt.Errorf("offset 0x%x out of %v", offset, bs.StringChain())
	}
	return &BufStack{
		parent:         bs,
		relativeOffset: offset,
		absoluteOffset: bs.absoluteOffset + offset,
		kind:           kind,
		buf:            bs.buf[offset:],
		size:           len(bs.buf) - offset,
	}, nil
}

func (bs *BufStack) SetName(name string) *BufStack {
	bs.name = name
	return bs
}

// SetSize limits the window. It fails when the window would grow past the buffer.
func (bs *BufStack) SetSize(size int) error {
	if size < 0 || size > len(bs.buf) {
		return fmt.Errorf("size 0x%x overgrows %v", size, bs.StringChain())
	}
	bs.size = size
	bs.buf = bs.buf[:size]
	return nil
}

func (bs *BufStack) Name() string { return bs.name }
func (bs *BufStack) Size() int    { return bs.size }
func (bs *BufStack) Kind() string { return bs.kind }

func (bs *BufStack) String() string {
	return fmt.Sprintf("buf<%v>(%v)[o:0x%x,s:0x%x,ao:0x%x,ae:0x%x]",
		bs.kind, bs.name, bs.relativeOffset, bs.size, bs.absoluteOffset, bs.absoluteOffset+bs.size)
}

func (bs *BufStack) StringChain() string {
	s := bs.String()
	if bs.parent != nil {
		s += fmt.Sprintf("::%s", bs.parent.StringChain())
	}
	return s
}

func (bs *BufStack) Error() string {
	return bs.StringChain()
}

// Has reports whether amount bytes can be read at off.
func (bs *BufStack) Has(off, amount int) bool {
	return off >= 0 && amount >= 0 && off+amount <= len(bs.buf)
}

func (bs *BufStack) LU32(off int) uint32 {
	return binary.LittleEndian.Uint32(bs.buf[off:])
}

func (bs *BufStack) LU16(off int) uint16 {
	return binary.LittleEndian.Uint16(bs.buf[off:])
}

func (bs *BufStack) Byte(off int) byte {
	return bs.buf[off]
}

func (bs *BufStack) LF(off int) float32 {
	return math.Float32frombits(bs.LU32(off))
}
