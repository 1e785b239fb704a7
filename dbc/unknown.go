package dbc

import (
	"seals.dev/anchor/bp"
	"seals.dev/anchor/commit"
)

// UnknownProof keeps a proof whose scheme this package does not implement,
// so it survives a decode/encode cycle. It never verifies, and its tag
// must not name an implemented scheme.
type UnknownProof struct {
	Tag     Method
	Payload []byte
}

func (p UnknownProof) Method() Method { return p.Tag }

func (UnknownProof) isProof() {}

func (p UnknownProof) err() error {
	if p.Tag.Known() {
		return commit.Errf(commit.ANCHOR_ERR_MALFORMED_PROOF, "dbc: unknown proof tagged %s", p.Tag)
	}
	return commit.Errf(commit.ANCHOR_ERR_UNSUPPORTED_SCHEME, "dbc: scheme 0x%02x", uint8(p.Tag))
}

func (p UnknownProof) Script(commit.Digest) ([]byte, error) {
	return nil, p.err()
}

func (p UnknownProof) Verify(commit.Digest, *bp.Tx) error {
	return p.err()
}
