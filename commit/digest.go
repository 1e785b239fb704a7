package commit

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

const DigestLen = 32

// Digest is a 32-byte commitment hash. Text form is lowercase hex in
// natural byte order.
type Digest [DigestLen]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) MarshalText() ([]byte, error) {
	out := make([]byte, hex.EncodedLen(DigestLen))
	hex.Encode(out, d[:])
	return out, nil
}

func (d *Digest) UnmarshalText(s []byte) error {
	if len(s) != hex.EncodedLen(DigestLen) {
		return Errf(ANCHOR_ERR_PARSE, "digest: want %d hex chars, got %d", hex.EncodedLen(DigestLen), len(s))
	}
	var tmp Digest
	if _, err := hex.Decode(tmp[:], s); err != nil {
		return Errf(ANCHOR_ERR_PARSE, "digest: %v", err)
	}
	*d = tmp
	return nil
}

func ParseDigest(s string) (Digest, error) {
	var d Digest
	err := d.UnmarshalText([]byte(s))
	return d, err
}

// ContractId identifies a contract. It is content-derived upstream and
// printed as base58.
type ContractId [DigestLen]byte

func (c ContractId) String() string {
	return base58.Encode(c[:])
}

func (c ContractId) Compare(o ContractId) int {
	return bytes.Compare(c[:], o[:])
}

func (c ContractId) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ContractId) UnmarshalText(s []byte) error {
	id, err := ParseContractId(string(s))
	if err != nil {
		return err
	}
	*c = id
	return nil
}

func ParseContractId(s string) (ContractId, error) {
	var id ContractId
	raw, err := base58.Decode(s)
	if err != nil {
		return id, Errf(ANCHOR_ERR_PARSE, "contract id: %v", err)
	}
	if len(raw) != DigestLen {
		return id, Errf(ANCHOR_ERR_PARSE, "contract id: want %d bytes, got %d", DigestLen, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// BundleRef is an opaque reference to one state-transition bundle.
type BundleRef [DigestLen]byte

func (b BundleRef) String() string {
	return hex.EncodeToString(b[:])
}

func (b BundleRef) Compare(o BundleRef) int {
	return bytes.Compare(b[:], o[:])
}

func (b BundleRef) MarshalText() ([]byte, error) {
	return Digest(b).MarshalText()
}

func (b *BundleRef) UnmarshalText(s []byte) error {
	var d Digest
	if err := d.UnmarshalText(s); err != nil {
		return fmt.Errorf("bundle ref: %w", err)
	}
	*b = BundleRef(d)
	return nil
}

func ParseBundleRef(s string) (BundleRef, error) {
	var b BundleRef
	err := b.UnmarshalText([]byte(s))
	return b, err
}
