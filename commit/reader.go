package commit

import "encoding/binary"

// Reader is a bounds-checked cursor over an encoded record. Every failure
// is an ANCHOR_ERR_PARSE error naming the field being read.
type Reader struct {
	b   []byte
	pos int
}

func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

func (r *Reader) Remaining() int {
	if r.pos >= len(r.b) {
		return 0
	}
	return len(r.b) - r.pos
}

func (r *Reader) Offset() int { return r.pos }

func (r *Reader) ReadExact(n int, name string) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, Errf(ANCHOR_ERR_PARSE, "unexpected EOF (%s)", name)
	}
	start := r.pos
	r.pos += n
	return r.b[start:r.pos], nil
}

func (r *Reader) ReadU8(name string) (uint8, error) {
	b, err := r.ReadExact(1, name)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadU16LE(name string) (uint16, error) {
	b, err := r.ReadExact(2, name)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadU32LE(name string) (uint32, error) {
	b, err := r.ReadExact(4, name)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadU64LE(name string) (uint64, error) {
	b, err := r.ReadExact(8, name)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadDigest(name string) (Digest, error) {
	var d Digest
	b, err := r.ReadExact(DigestLen, name)
	if err != nil {
		return d, err
	}
	copy(d[:], b)
	return d, nil
}

// ReadCount reads a CompactSize and rejects values above max before any
// allocation sized by it happens. Only the minimal encoding of a value is
// accepted.
func (r *Reader) ReadCount(name string, max int) (int, error) {
	tag, err := r.ReadU8(name)
	if err != nil {
		return 0, err
	}
	var n, floor uint64
	switch tag {
	case 0xfd:
		var v uint16
		v, err = r.ReadU16LE(name)
		n, floor = uint64(v), 0xfd
	case 0xfe:
		var v uint32
		v, err = r.ReadU32LE(name)
		n, floor = uint64(v), 0x1_0000
	case 0xff:
		n, err = r.ReadU64LE(name)
		floor = 0x1_0000_0000
	default:
		n = uint64(tag)
	}
	if err != nil {
		return 0, err
	}
	if n < floor {
		return 0, Errf(ANCHOR_ERR_PARSE, "%s: non-minimal compact size 0x%02x %d", name, tag, n)
	}
	if n > uint64(max) { // #nosec G115 -- max is a positive protocol bound.
		return 0, Errf(ANCHOR_ERR_BOUND_EXCEEDED, "%s: %d exceeds %d", name, n, max)
	}
	return int(n), nil // #nosec G115 -- bounded by max above.
}

func (r *Reader) ReadVarBytes(name string, max int) ([]byte, error) {
	n, err := r.ReadCount(name, max)
	if err != nil {
		return nil, err
	}
	b, err := r.ReadExact(n, name)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// Finish fails when unread bytes remain.
func (r *Reader) Finish(what string) error {
	if r.Remaining() != 0 {
		return Errf(ANCHOR_ERR_PARSE, "%s: %d trailing bytes", what, r.Remaining())
	}
	return nil
}
