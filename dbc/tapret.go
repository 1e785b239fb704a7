package dbc

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"

	"seals.dev/anchor/bp"
	"seals.dev/anchor/commit"
)

const tapretPrefixLen = 29

// MaxPartnerScript bounds a revealed right partner leaf.
const MaxPartnerScript = 10_000

// PartnerKind says where the partner sits next to the commitment leaf.
type PartnerKind uint8

const (
	PartnerLeftNode    PartnerKind = 0x01
	PartnerRightLeaf   PartnerKind = 0x02
	PartnerRightBranch PartnerKind = 0x03
)

func (k PartnerKind) String() string {
	switch k {
	case PartnerLeftNode:
		return "left-node"
	case PartnerRightLeaf:
		return "right-leaf"
	case PartnerRightBranch:
		return "right-branch"
	default:
		return "unknown"
	}
}

// TapretPartner is the sibling of the commitment leaf at depth one of the
// tapscript tree. A left node is an opaque hash that must sort before the
// commitment leaf. Right partners sort after it and are revealed: a leaf
// by its script, a branch by its two children.
type TapretPartner struct {
	Kind   PartnerKind
	Node   commit.Digest
	Script []byte
	Left   commit.Digest
	Right  commit.Digest
}

func LeftNodePartner(node commit.Digest) *TapretPartner {
	return &TapretPartner{Kind: PartnerLeftNode, Node: node}
}

func RightLeafPartner(script []byte) *TapretPartner {
	return &TapretPartner{Kind: PartnerRightLeaf, Script: append([]byte(nil), script...)}
}

func RightBranchPartner(left, right commit.Digest) *TapretPartner {
	return &TapretPartner{Kind: PartnerRightBranch, Left: left, Right: right}
}

// hasTapretPrefix reports a script that could itself be a commitment leaf.
func hasTapretPrefix(script []byte) bool {
	if len(script) <= tapretPrefixLen {
		return false
	}
	for _, b := range script[:tapretPrefixLen] {
		if b != bp.OP_RESERVED {
			return false
		}
	}
	return script[tapretPrefixLen] == bp.OP_RETURN
}

func tapBranch(a, b []byte) chainhash.Hash {
	if bytes.Compare(a, b) > 0 {
		a, b = b, a
	}
	return *chainhash.TaggedHash(chainhash.TagTapBranch, a, b)
}

// Hash is the tapscript node hash of the partner.
func (p TapretPartner) Hash() (chainhash.Hash, error) {
	switch p.Kind {
	case PartnerLeftNode:
		return chainhash.Hash(p.Node), nil
	case PartnerRightLeaf:
		if len(p.Script) > MaxPartnerScript {
			return chainhash.Hash{}, commit.Errf(commit.ANCHOR_ERR_MALFORMED_PROOF, "tapret: partner script of %d bytes", len(p.Script))
		}
		if hasTapretPrefix(p.Script) {
			return chainhash.Hash{}, commit.Err(commit.ANCHOR_ERR_MALFORMED_PROOF, "tapret: partner leaf is a commitment leaf")
		}
		return txscript.NewBaseTapLeaf(p.Script).TapHash(), nil
	case PartnerRightBranch:
		return tapBranch(p.Left[:], p.Right[:]), nil
	}
	return chainhash.Hash{}, commit.Errf(commit.ANCHOR_ERR_MALFORMED_PROOF, "tapret: partner kind 0x%02x", uint8(p.Kind))
}

// TapretProof commits through the first P2TR output. Its output key is the
// internal key tweaked with a tapscript tree whose commitment leaf is
// optionally paired with one partner node.
type TapretProof struct {
	InternalKey [32]byte
	Nonce       uint8
	Partner     *TapretPartner
}

func (TapretProof) Method() Method { return MethodTapret }

func (TapretProof) isProof() {}

// LeafScript is OP_RESERVED x29, OP_RETURN, OP_PUSHBYTES_33 followed by the
// commitment and the nonce. It is 64 bytes long so it can never be
// mistaken for an inner tapscript node.
func (p TapretProof) LeafScript(commitment commit.Digest) []byte {
	script := make([]byte, 0, 64)
	for i := 0; i < tapretPrefixLen; i++ {
		script = append(script, bp.OP_RESERVED)
	}
	script = append(script, bp.OP_RETURN, bp.OP_PUSHBYTES_33)
	script = append(script, commitment[:]...)
	return append(script, p.Nonce)
}

// ScriptRoot is the tapscript merkle root committed in the output key. The
// partner must sit on the side its kind names; a partner sorting on the
// other side of the commitment leaf is malformed.
func (p TapretProof) ScriptRoot(commitment commit.Digest) (chainhash.Hash, error) {
	leaf := txscript.NewBaseTapLeaf(p.LeafScript(commitment)).TapHash()
	if p.Partner == nil {
		return leaf, nil
	}
	node, err := p.Partner.Hash()
	if err != nil {
		return chainhash.Hash{}, err
	}
	cmp := bytes.Compare(node[:], leaf[:])
	switch {
	case p.Partner.Kind == PartnerLeftNode && cmp >= 0:
		return chainhash.Hash{}, commit.Err(commit.ANCHOR_ERR_MALFORMED_PROOF, "tapret: left partner does not sort before the commitment leaf")
	case p.Partner.Kind != PartnerLeftNode && cmp <= 0:
		return chainhash.Hash{}, commit.Errf(commit.ANCHOR_ERR_MALFORMED_PROOF, "tapret: %s partner does not sort after the commitment leaf", p.Partner.Kind)
	}
	return tapBranch(leaf[:], node[:]), nil
}

func (p TapretProof) OutputKey(commitment commit.Digest) ([32]byte, error) {
	var out [32]byte
	internal, err := schnorr.ParsePubKey(p.InternalKey[:])
	if err != nil {
		return out, commit.Errf(commit.ANCHOR_ERR_MALFORMED_PROOF, "tapret: internal key: %v", err)
	}
	root, err := p.ScriptRoot(commitment)
	if err != nil {
		return out, err
	}
	key := txscript.ComputeTaprootOutputKey(internal, root[:])
	copy(out[:], schnorr.SerializePubKey(key))
	return out, nil
}

func (p TapretProof) Script(commitment commit.Digest) ([]byte, error) {
	key, err := p.OutputKey(commitment)
	if err != nil {
		return nil, err
	}
	return bp.P2TRScript(key), nil
}

func (p TapretProof) Verify(commitment commit.Digest, tx *bp.Tx) error {
	if tx == nil {
		return commit.Err(commit.ANCHOR_ERR_TRANSACTION_MISMATCH, "tapret: no transaction")
	}
	want, err := p.OutputKey(commitment)
	if err != nil {
		return err
	}
	for i, out := range tx.Outputs {
		prog, ok := bp.TaprootProgram(out.ScriptPubkey)
		if !ok {
			continue
		}
		if !bytes.Equal(prog, want[:]) {
			return commit.Errf(commit.ANCHOR_ERR_TRANSACTION_MISMATCH, "tapret: output %d key does not commit", i)
		}
		return nil
	}
	return commit.Err(commit.ANCHOR_ERR_TRANSACTION_MISMATCH, "tapret: no P2TR output")
}
