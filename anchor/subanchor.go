package anchor

import (
	"seals.dev/anchor/commit"
	"seals.dev/anchor/mmb"
)

const MaxFallbackPayload = 4096

// FallbackProof is a reserved slot for a future per-contract fallback
// scheme. No scheme is defined yet, so any populated value is rejected at
// verification time.
type FallbackProof struct {
	Tag     uint8
	Payload []byte
}

// SubAnchor is the per-contract part of an anchor.
type SubAnchor struct {
	MmbProof mmb.BundleProof
	Fallback *FallbackProof
}

// BundleRoot recomputes the contract message from the supplied bundle refs.
func (s SubAnchor) BundleRoot(refs []commit.BundleRef) (commit.Digest, error) {
	if s.Fallback != nil {
		return commit.Digest{}, commit.Errf(commit.ANCHOR_ERR_UNSUPPORTED_SCHEME, "fallback scheme 0x%02x", s.Fallback.Tag)
	}
	return s.MmbProof.Root(refs)
}

func (s SubAnchor) AppendTo(dst []byte) []byte {
	dst = s.MmbProof.AppendTo(dst)
	if s.Fallback == nil {
		return append(dst, 0x00)
	}
	dst = append(dst, s.Fallback.Tag)
	return commit.AppendVarBytes(dst, s.Fallback.Payload)
}

func ReadSubAnchor(r *commit.Reader) (SubAnchor, error) {
	var s SubAnchor
	var err error
	if s.MmbProof, err = mmb.ReadBundleProof(r); err != nil {
		return s, err
	}
	tag, err := r.ReadU8("fallback.tag")
	if err != nil {
		return s, err
	}
	if tag == 0x00 {
		return s, nil
	}
	payload, err := r.ReadVarBytes("fallback.payload", MaxFallbackPayload)
	if err != nil {
		return s, err
	}
	s.Fallback = &FallbackProof{Tag: tag, Payload: payload}
	return s, nil
}
