package commit

import "encoding/binary"

// AppendCompactSize appends n as a minimally encoded Bitcoin CompactSize.
// Reader.ReadCount is its inverse.
func AppendCompactSize(dst []byte, n int) []byte {
	v := uint64(n) // #nosec G115 -- lengths are non-negative.
	switch {
	case v < 0xfd:
		return append(dst, byte(v))
	case v <= 0xffff:
		return binary.LittleEndian.AppendUint16(append(dst, 0xfd), uint16(v))
	case v <= 0xffff_ffff:
		return binary.LittleEndian.AppendUint32(append(dst, 0xfe), uint32(v))
	}
	return binary.LittleEndian.AppendUint64(append(dst, 0xff), v)
}

func AppendVarBytes(dst []byte, b []byte) []byte {
	dst = AppendCompactSize(dst, len(b))
	return append(dst, b...)
}
