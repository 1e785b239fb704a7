package mpc

import "seals.dev/anchor/commit"

const (
	nodeConcealed = 0x00
	nodeRevealed  = 0x01
)

func (b MerkleBlock) AppendTo(dst []byte) []byte {
	dst = append(dst, b.Depth)
	dst = append(dst, commit.U16LE(b.Cofactor)...)
	dst = append(dst, b.Root[:]...)
	dst = commit.AppendCompactSize(dst, len(b.Nodes))
	for _, n := range b.Nodes {
		if n.Revealed {
			dst = append(dst, nodeRevealed)
			dst = append(dst, n.ContractId[:]...)
			dst = append(dst, n.Message[:]...)
			continue
		}
		dst = append(dst, nodeConcealed, n.Depth)
		dst = append(dst, n.Hash[:]...)
	}
	return dst
}

// ReadMerkleBlock decodes a block. Structure is checked by ComputeRoot, not
// here.
func ReadMerkleBlock(r *commit.Reader) (MerkleBlock, error) {
	var b MerkleBlock
	var err error
	if b.Depth, err = r.ReadU8("mpc.depth"); err != nil {
		return b, err
	}
	if b.Depth > MaxDepth {
		return b, commit.Errf(commit.ANCHOR_ERR_PARSE, "mpc.depth: %d exceeds %d", b.Depth, MaxDepth)
	}
	if b.Cofactor, err = r.ReadU16LE("mpc.cofactor"); err != nil {
		return b, err
	}
	if b.Root, err = r.ReadDigest("mpc.root"); err != nil {
		return b, err
	}
	n, err := r.ReadCount("mpc.nodes", MaxBlockNodes)
	if err != nil {
		return b, err
	}
	for i := 0; i < n; i++ {
		tag, err := r.ReadU8("mpc.node_tag")
		if err != nil {
			return b, err
		}
		var node Node
		switch tag {
		case nodeConcealed:
			if node.Depth, err = r.ReadU8("mpc.node_depth"); err != nil {
				return b, err
			}
			if node.Hash, err = r.ReadDigest("mpc.node_hash"); err != nil {
				return b, err
			}
		case nodeRevealed:
			cid, err := r.ReadDigest("mpc.contract_id")
			if err != nil {
				return b, err
			}
			msg, err := r.ReadDigest("mpc.message")
			if err != nil {
				return b, err
			}
			node = Node{Revealed: true, Depth: b.Depth, ContractId: commit.ContractId(cid), Message: msg}
		default:
			return b, commit.Errf(commit.ANCHOR_ERR_PARSE, "mpc.node_tag: unknown 0x%02x", tag)
		}
		b.Nodes = append(b.Nodes, node)
	}
	return b, nil
}
