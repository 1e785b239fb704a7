package anchor

import (
	"seals.dev/anchor/commit"
	"seals.dev/anchor/dbc"
	"seals.dev/anchor/mpc"
)

// EncodingVersion prefixes every encoded anchor.
const EncodingVersion = 0x01

// Encode serializes the anchor deterministically: equal anchors always
// produce equal bytes. An anchor without an encodable dbc proof fails with
// ANCHOR_ERR_MALFORMED_PROOF.
func (a SuperAnchor[D]) Encode() ([]byte, error) {
	return a.AppendTo(make([]byte, 0, 256))
}

func (a SuperAnchor[D]) AppendTo(dst []byte) ([]byte, error) {
	start := len(dst)
	dst = append(dst, EncodingVersion)
	dst = a.MpcProof.AppendTo(dst)
	dst, err := dbc.AppendProof(dst, a.DbcProof)
	if err != nil {
		return dst[:start], err
	}
	dst = append(dst, commit.U16LE(uint16(a.Contracts.Len()))...) // #nosec G115 -- bounded by MaxContracts.
	_ = a.Contracts.Each(func(cid commit.ContractId, sub SubAnchor) error {
		dst = append(dst, cid[:]...)
		dst = sub.AppendTo(dst)
		return nil
	})
	return dst, nil
}

// Decode parses an anchor with the protocol contract bound.
func Decode(b []byte) (Anchor, error) {
	return DecodeBounded(b, MaxContracts)
}

// DecodeBounded parses an anchor, rejecting more than bound contracts
// before reading any of them. Contracts must appear in strictly ascending
// id order and no trailing bytes are allowed.
func DecodeBounded(b []byte, bound int) (Anchor, error) {
	r := commit.NewReader(b)
	a, err := ReadAnchor(r, bound)
	if err != nil {
		return Anchor{}, err
	}
	if err := r.Finish("anchor"); err != nil {
		return Anchor{}, err
	}
	return a, nil
}

func ReadAnchor(r *commit.Reader, bound int) (Anchor, error) {
	var a Anchor
	version, err := r.ReadU8("anchor.version")
	if err != nil {
		return a, err
	}
	if version != EncodingVersion {
		return a, commit.Errf(commit.ANCHOR_ERR_PARSE, "anchor.version: unsupported %d", version)
	}
	if a.MpcProof, err = mpc.ReadMerkleBlock(r); err != nil {
		return a, err
	}
	if a.DbcProof, err = dbc.ReadProof(r); err != nil {
		return a, err
	}

	a.Contracts = NewContractMap(bound)
	count, err := r.ReadU16LE("anchor.contract_count")
	if err != nil {
		return a, err
	}
	if int(count) > a.Contracts.Bound() {
		return a, commit.Errf(commit.ANCHOR_ERR_BOUND_EXCEEDED, "anchor.contract_count: %d exceeds %d", count, a.Contracts.Bound())
	}
	var prev commit.ContractId
	for i := 0; i < int(count); i++ {
		raw, err := r.ReadDigest("anchor.contract_id")
		if err != nil {
			return a, err
		}
		cid := commit.ContractId(raw)
		if i > 0 && prev.Compare(cid) >= 0 {
			return a, commit.Errf(commit.ANCHOR_ERR_PARSE, "anchor.contracts: %s out of order", cid)
		}
		prev = cid
		sub, err := ReadSubAnchor(r)
		if err != nil {
			return a, err
		}
		if err := a.Contracts.Insert(cid, sub); err != nil {
			return a, err
		}
	}
	return a, nil
}
