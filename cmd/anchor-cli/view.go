package main

import (
	"encoding/hex"
	"io"

	"gopkg.in/yaml.v3"

	"seals.dev/anchor/anchor"
	"seals.dev/anchor/bp"
	"seals.dev/anchor/commit"
	"seals.dev/anchor/dbc"
	"seals.dev/anchor/mpc"
)

// YAML shapes printed by inspect, dump and store get.

type anchorView struct {
	ID         commit.Digest  `yaml:"id"`
	Commitment commit.Digest  `yaml:"commitment"`
	Mpc        mpcView        `yaml:"mpc"`
	Dbc        dbcView        `yaml:"dbc"`
	Contracts  []contractView `yaml:"contracts"`
}

type mpcView struct {
	Depth    uint8         `yaml:"depth"`
	Cofactor uint16        `yaml:"cofactor"`
	Root     commit.Digest `yaml:"root"`
	Nodes    []nodeView    `yaml:"nodes"`
}

type nodeView struct {
	Depth    *uint8             `yaml:"depth,omitempty"`
	Hash     *commit.Digest     `yaml:"hash,omitempty"`
	Contract *commit.ContractId `yaml:"contract,omitempty"`
	Message  *commit.Digest     `yaml:"message,omitempty"`
}

type dbcView struct {
	Method      dbc.Method     `yaml:"method"`
	InternalKey string         `yaml:"internal_key,omitempty"`
	Nonce       *uint8         `yaml:"nonce,omitempty"`
	Partner     *partnerView   `yaml:"partner,omitempty"`
	Payload     string         `yaml:"payload,omitempty"`
}

type partnerView struct {
	Kind   string         `yaml:"kind"`
	Node   *commit.Digest `yaml:"node,omitempty"`
	Script string         `yaml:"script,omitempty"`
	Left   *commit.Digest `yaml:"left,omitempty"`
	Right  *commit.Digest `yaml:"right,omitempty"`
}

type contractView struct {
	Contract  commit.ContractId `yaml:"contract"`
	LeafCount uint32            `yaml:"leaf_count"`
	Positions []uint32          `yaml:"positions,flow"`
	Siblings  []commit.Digest   `yaml:"siblings,omitempty"`
	Fallback  *fallbackView     `yaml:"fallback,omitempty"`
}

type fallbackView struct {
	Tag     uint8  `yaml:"tag"`
	Payload string `yaml:"payload"`
}

type txView struct {
	Txid     bp.Txid      `yaml:"txid"`
	Version  uint32       `yaml:"version"`
	Inputs   int          `yaml:"inputs"`
	Outputs  []outputView `yaml:"outputs"`
	Locktime uint32       `yaml:"locktime"`
}

type outputView struct {
	Value  uint64 `yaml:"value"`
	Kind   string `yaml:"kind"`
	Script string `yaml:"script"`
}

type recordView struct {
	Txid   bp.Txid    `yaml:"txid"`
	Anchor anchorView `yaml:"anchor"`
}

func nodeViewOf(n mpc.Node) nodeView {
	if n.Revealed {
		return nodeView{Contract: &n.ContractId, Message: &n.Message}
	}
	return nodeView{Depth: &n.Depth, Hash: &n.Hash}
}

func partnerViewOf(p *dbc.TapretPartner) *partnerView {
	if p == nil {
		return nil
	}
	v := &partnerView{Kind: p.Kind.String()}
	switch p.Kind {
	case dbc.PartnerLeftNode:
		v.Node = &p.Node
	case dbc.PartnerRightLeaf:
		v.Script = hex.EncodeToString(p.Script)
	case dbc.PartnerRightBranch:
		v.Left, v.Right = &p.Left, &p.Right
	}
	return v
}

func dbcViewOf(p dbc.Proof) dbcView {
	switch p := p.(type) {
	case dbc.TapretProof:
		return dbcView{
			Method:      p.Method(),
			InternalKey: hex.EncodeToString(p.InternalKey[:]),
			Nonce:       &p.Nonce,
			Partner:     partnerViewOf(p.Partner),
		}
	case dbc.UnknownProof:
		return dbcView{Method: p.Tag, Payload: hex.EncodeToString(p.Payload)}
	case nil:
		return dbcView{}
	default:
		return dbcView{Method: p.Method()}
	}
}

func contractViewOf(cid commit.ContractId, sub anchor.SubAnchor) contractView {
	v := contractView{
		Contract:  cid,
		LeafCount: sub.MmbProof.LeafCount,
		Positions: sub.MmbProof.Positions,
		Siblings:  sub.MmbProof.Siblings,
	}
	if sub.Fallback != nil {
		v.Fallback = &fallbackView{Tag: sub.Fallback.Tag, Payload: hex.EncodeToString(sub.Fallback.Payload)}
	}
	return v
}

func anchorViewOf(a anchor.Anchor) (anchorView, error) {
	id, err := a.ID()
	if err != nil {
		return anchorView{}, err
	}
	v := anchorView{
		ID:         id,
		Commitment: a.MpcProof.Commitment(),
		Mpc: mpcView{
			Depth:    a.MpcProof.Depth,
			Cofactor: a.MpcProof.Cofactor,
			Root:     a.MpcProof.Root,
			Nodes:    make([]nodeView, 0, len(a.MpcProof.Nodes)),
		},
		Dbc: dbcViewOf(a.DbcProof),
	}
	for _, n := range a.MpcProof.Nodes {
		v.Mpc.Nodes = append(v.Mpc.Nodes, nodeViewOf(n))
	}
	err = a.Contracts.Each(func(cid commit.ContractId, sub anchor.SubAnchor) error {
		v.Contracts = append(v.Contracts, contractViewOf(cid, sub))
		return nil
	})
	return v, err
}

func outputKind(script []byte) string {
	switch {
	case bp.IsOpReturn(script):
		return "op_return"
	case bp.IsP2TR(script):
		return "p2tr"
	default:
		return "other"
	}
}

func txViewOf(tx *bp.Tx) txView {
	v := txView{
		Txid:     tx.Txid(),
		Version:  tx.Version,
		Inputs:   len(tx.Inputs),
		Locktime: tx.Locktime,
	}
	for _, out := range tx.Outputs {
		v.Outputs = append(v.Outputs, outputView{
			Value:  out.Value,
			Kind:   outputKind(out.ScriptPubkey),
			Script: hex.EncodeToString(out.ScriptPubkey),
		})
	}
	return v
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
