package commit

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestCompactSizeRoundtrip(t *testing.T) {
	cases := []struct {
		name string
		val  int
		hex  string
	}{
		{"zero", 0, "00"},
		{"max_u8_minimal", 252, "fc"},
		{"u16_boundary", 253, "fdfd00"},
		{"u16_max", 65535, "fdffff"},
		{"u32_boundary", 65536, "fe00000100"},
		{"u32_mid", 0x12345678, "fe78563412"},
		{"u64_boundary", 0x1_0000_0000, "ff0000000001000000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			enc := AppendCompactSize(nil, tc.val)
			if hex.EncodeToString(enc) != tc.hex {
				t.Fatalf("encode mismatch: got %x want %s", enc, tc.hex)
			}
			r := NewReader(enc)
			n, err := r.ReadCount("n", math.MaxInt)
			if err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if r.Offset() != len(enc) {
				t.Fatalf("decode consumed %d bytes, want %d", r.Offset(), len(enc))
			}
			if n != tc.val {
				t.Fatalf("decode value mismatch: got %d want %d", n, tc.val)
			}
		})
	}
}

func TestReadCountRejects(t *testing.T) {
	cases := []struct {
		hex  string
		want error
	}{
		{"fdfc00", ErrParse},
		{"feffff0000", ErrParse},
		{"ffffffffff00000000", ErrParse},
		{"", ErrParse},
		{"fd01", ErrParse},
		{"fe000001", ErrParse},
		{"ffffffffffffffffff", ErrBoundExceeded},
	}
	for _, tc := range cases {
		b, err := hex.DecodeString(tc.hex)
		if err != nil {
			t.Fatalf("bad fixture %q: %v", tc.hex, err)
		}
		if _, err := NewReader(b).ReadCount("n", math.MaxInt); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.hex, err, tc.want)
		}
	}
}

func TestError_Formatting(t *testing.T) {
	var e *Error
	if got := e.Error(); got != "<nil>" {
		t.Fatalf("nil receiver: %q", got)
	}

	e = &Error{Code: ANCHOR_ERR_PARSE}
	if got := e.Error(); got != "ANCHOR_ERR_PARSE" {
		t.Fatalf("empty msg: %q", got)
	}

	e = &Error{Code: ANCHOR_ERR_PARSE, Msg: "bad"}
	if got := e.Error(); got != "ANCHOR_ERR_PARSE: bad" {
		t.Fatalf("with msg: %q", got)
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := Err(ANCHOR_ERR_BUNDLE_MISMATCH, "root differs")
	if !errors.Is(err, ErrBundleMismatch) {
		t.Fatalf("expected errors.Is to match sentinel")
	}
	if errors.Is(err, ErrCommitmentMismatch) {
		t.Fatalf("codes must not cross-match")
	}
	wrapped := fmt.Errorf("outer: %w", err)
	if !errors.Is(wrapped, ErrBundleMismatch) {
		t.Fatalf("expected match through wrapping")
	}
	if got := CodeOf(wrapped); got != ANCHOR_ERR_BUNDLE_MISMATCH {
		t.Fatalf("CodeOf: %q", got)
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Fatalf("CodeOf foreign: %q", got)
	}
}

func TestTaggedHashMatchesBIP340Construction(t *testing.T) {
	tag := []byte("example-tag")
	msg := []byte("hello")
	th := sha256.Sum256(tag)
	h := sha256.New()
	h.Write(th[:])
	h.Write(th[:])
	h.Write(msg)
	var want Digest
	copy(want[:], h.Sum(nil))

	if got := TaggedHash(tag, msg); got != want {
		t.Fatalf("tagged hash mismatch: got %s want %s", got, want)
	}
	if TaggedHash(tag, []byte("hel"), []byte("lo")) != want {
		t.Fatalf("tagged hash must be computed over the concatenation")
	}
	if TaggedHash(TagMmbLeaf, msg) == TaggedHash(TagMmbNode, msg) {
		t.Fatalf("different tags must separate domains")
	}
}

func TestDigestText(t *testing.T) {
	var d Digest
	for i := range d {
		d[i] = byte(i)
	}
	txt, err := d.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(txt) != "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f" {
		t.Fatalf("unexpected text %s", txt)
	}
	back, err := ParseDigest(string(txt))
	if err != nil || back != d {
		t.Fatalf("roundtrip: %v %s", err, back)
	}
	if _, err := ParseDigest("abcd"); !errors.Is(err, ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestContractIdBase58(t *testing.T) {
	var id ContractId
	id[0] = 0xff
	id[31] = 0x01
	s := id.String()
	back, err := ParseContractId(s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if back != id {
		t.Fatalf("roundtrip mismatch")
	}
	if _, err := ParseContractId("0OIl"); err == nil {
		t.Fatalf("expected invalid base58 error")
	}
	if _, err := ParseContractId("2g"); err == nil {
		t.Fatalf("expected length error")
	}

	var lo, hi ContractId
	hi[0] = 1
	if lo.Compare(hi) >= 0 || hi.Compare(lo) <= 0 || lo.Compare(lo) != 0 {
		t.Fatalf("compare ordering broken")
	}
}

func TestReaderBounds(t *testing.T) {
	r := NewReader([]byte{0x03, 0xaa, 0xbb, 0xcc, 0x01})
	b, err := r.ReadVarBytes("payload", 8)
	if err != nil || hex.EncodeToString(b) != "aabbcc" {
		t.Fatalf("varbytes: %x %v", b, err)
	}
	if err := r.Finish("record"); err == nil {
		t.Fatalf("expected trailing byte error")
	}
	if _, err := r.ReadU32LE("tail"); !errors.Is(err, ErrParse) {
		t.Fatalf("expected EOF parse error, got %v", err)
	}

	r = NewReader([]byte{0x05})
	if _, err := r.ReadCount("items", 4); !errors.Is(err, ErrBoundExceeded) {
		t.Fatalf("expected bound error, got %v", err)
	}
}
