package dbc

import "seals.dev/anchor/commit"

// MaxProofPayload bounds the scheme payload; the largest known payload is
// a tapret proof revealing a right partner leaf.
const MaxProofPayload = 1 << 14

// CheckProof rejects proofs that have no encoding: a missing proof, and an
// UnknownProof claiming a scheme this package implements.
func CheckProof(p Proof) error {
	switch v := p.(type) {
	case nil:
		return commit.Err(commit.ANCHOR_ERR_MALFORMED_PROOF, "dbc: no proof")
	case UnknownProof:
		if v.Tag.Known() {
			return commit.Errf(commit.ANCHOR_ERR_MALFORMED_PROOF, "dbc: unknown proof tagged %s", v.Tag)
		}
	case TapretProof:
		if v.Partner != nil {
			if _, err := v.Partner.Hash(); err != nil {
				return err
			}
		}
	}
	return nil
}

func appendPartner(dst []byte, p *TapretPartner) []byte {
	if p == nil {
		return append(dst, 0x00)
	}
	dst = append(dst, byte(p.Kind))
	switch p.Kind {
	case PartnerLeftNode:
		return append(dst, p.Node[:]...)
	case PartnerRightLeaf:
		return commit.AppendVarBytes(dst, p.Script)
	default:
		dst = append(dst, p.Left[:]...)
		return append(dst, p.Right[:]...)
	}
}

func payload(p Proof) []byte {
	switch v := p.(type) {
	case TapretProof:
		out := make([]byte, 0, 66)
		out = append(out, v.InternalKey[:]...)
		out = append(out, v.Nonce)
		return appendPartner(out, v.Partner)
	case UnknownProof:
		return v.Payload
	}
	return nil
}

// AppendProof writes the method byte followed by the length-prefixed
// scheme payload.
func AppendProof(dst []byte, p Proof) ([]byte, error) {
	if err := CheckProof(p); err != nil {
		return dst, err
	}
	dst = append(dst, byte(p.Method()))
	return commit.AppendVarBytes(dst, payload(p)), nil
}

func EncodeProof(p Proof) ([]byte, error) {
	return AppendProof(nil, p)
}

func readPartner(r *commit.Reader) (*TapretPartner, error) {
	kind, err := r.ReadU8("tapret.partner_kind")
	if err != nil {
		return nil, err
	}
	switch PartnerKind(kind) {
	case 0x00:
		return nil, nil
	case PartnerLeftNode:
		node, err := r.ReadDigest("tapret.partner_node")
		if err != nil {
			return nil, err
		}
		return LeftNodePartner(node), nil
	case PartnerRightLeaf:
		script, err := r.ReadVarBytes("tapret.partner_script", MaxPartnerScript)
		if err != nil {
			return nil, err
		}
		return &TapretPartner{Kind: PartnerRightLeaf, Script: script}, nil
	case PartnerRightBranch:
		left, err := r.ReadDigest("tapret.partner_left")
		if err != nil {
			return nil, err
		}
		right, err := r.ReadDigest("tapret.partner_right")
		if err != nil {
			return nil, err
		}
		return RightBranchPartner(left, right), nil
	}
	return nil, commit.Errf(commit.ANCHOR_ERR_PARSE, "tapret.partner_kind: 0x%02x", kind)
}

// ReadProof decodes a proof. Unknown methods decode into UnknownProof.
func ReadProof(r *commit.Reader) (Proof, error) {
	tag, err := r.ReadU8("dbc.method")
	if err != nil {
		return nil, err
	}
	body, err := r.ReadVarBytes("dbc.payload", MaxProofPayload)
	if err != nil {
		return nil, err
	}
	pr := commit.NewReader(body)
	switch Method(tag) {
	case MethodOpret:
		if err := pr.Finish("dbc.opret"); err != nil {
			return nil, err
		}
		return OpretProof{}, nil
	case MethodTapret:
		var p TapretProof
		key, err := pr.ReadDigest("tapret.internal_key")
		if err != nil {
			return nil, err
		}
		p.InternalKey = key
		if p.Nonce, err = pr.ReadU8("tapret.nonce"); err != nil {
			return nil, err
		}
		if p.Partner, err = readPartner(pr); err != nil {
			return nil, err
		}
		if err := pr.Finish("dbc.tapret"); err != nil {
			return nil, err
		}
		return p, nil
	}
	return UnknownProof{Tag: Method(tag), Payload: body}, nil
}

func DecodeProof(b []byte) (Proof, error) {
	r := commit.NewReader(b)
	p, err := ReadProof(r)
	if err != nil {
		return nil, err
	}
	if err := r.Finish("dbc proof"); err != nil {
		return nil, err
	}
	return p, nil
}
