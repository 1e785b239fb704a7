package mpc

import "seals.dev/anchor/commit"

// MaxBlockNodes bounds the cross-section a decoded block may carry.
const MaxBlockNodes = 1 << 20

// Node is one element of a block's cross-section: either an opaque
// subtree hash or a revealed contract leaf. Revealed leaves always sit at
// the full tree depth.
type Node struct {
	Revealed   bool
	Depth      uint8
	Hash       commit.Digest
	ContractId commit.ContractId
	Message    commit.Digest
}

func (n Node) hash() commit.Digest {
	if n.Revealed {
		return InhabitedLeaf(n.ContractId, n.Message)
	}
	return n.Hash
}

// MerkleBlock is the exported form of a commitment tree. Nodes list a
// left-to-right cross-section covering the whole tree exactly once.
type MerkleBlock struct {
	Depth    uint8
	Cofactor uint16
	Root     commit.Digest
	Nodes    []Node
}

func (b MerkleBlock) Commitment() commit.Digest {
	return CommitmentHash(b.Depth, b.Cofactor, b.Root)
}

// Contracts lists revealed contracts in tree order.
func (b MerkleBlock) Contracts() []commit.ContractId {
	var out []commit.ContractId
	for _, n := range b.Nodes {
		if n.Revealed {
			out = append(out, n.ContractId)
		}
	}
	return out
}

// MessageFor returns the message revealed for a contract.
func (b MerkleBlock) MessageFor(cid commit.ContractId) (commit.Digest, error) {
	for _, n := range b.Nodes {
		if n.Revealed && n.ContractId == cid {
			return n.Message, nil
		}
	}
	return commit.Digest{}, commit.Errf(commit.ANCHOR_ERR_MALFORMED_PROOF, "mpc: contract %s not revealed", cid)
}

type stackEntry struct {
	depth uint8
	idx   uint64
	hash  commit.Digest
}

// ComputeRoot folds the cross-section into a root, checking that each node
// is aligned, each revealed leaf sits at its contract's position and the
// nodes cover the tree exactly.
func (b MerkleBlock) ComputeRoot() (commit.Digest, error) {
	if b.Depth > MaxDepth {
		return commit.Digest{}, commit.Errf(commit.ANCHOR_ERR_MALFORMED_PROOF, "mpc: depth %d exceeds %d", b.Depth, MaxDepth)
	}
	if len(b.Nodes) == 0 {
		return commit.Digest{}, commit.Err(commit.ANCHOR_ERR_MALFORMED_PROOF, "mpc: empty block")
	}
	width := Width(b.Depth)
	if uint64(len(b.Nodes)) > width {
		return commit.Digest{}, commit.Err(commit.ANCHOR_ERR_MALFORMED_PROOF, "mpc: more nodes than leaves")
	}

	seen := make(map[commit.ContractId]struct{})
	stack := make([]stackEntry, 0, int(b.Depth)+1)
	var offset uint64
	for i, n := range b.Nodes {
		if n.Depth > b.Depth {
			return commit.Digest{}, commit.Errf(commit.ANCHOR_ERR_MALFORMED_PROOF, "mpc: node %d below leaf level", i)
		}
		span := uint64(1) << (b.Depth - n.Depth)
		if offset%span != 0 || offset+span > width {
			return commit.Digest{}, commit.Errf(commit.ANCHOR_ERR_MALFORMED_PROOF, "mpc: node %d misaligned", i)
		}
		if n.Revealed {
			if n.Depth != b.Depth {
				return commit.Digest{}, commit.Errf(commit.ANCHOR_ERR_MALFORMED_PROOF, "mpc: revealed node %d above leaf level", i)
			}
			if uint64(Position(n.ContractId, b.Cofactor, b.Depth)) != offset {
				return commit.Digest{}, commit.Errf(commit.ANCHOR_ERR_MALFORMED_PROOF, "mpc: contract %s at wrong position", n.ContractId)
			}
			if _, dup := seen[n.ContractId]; dup {
				return commit.Digest{}, commit.Errf(commit.ANCHOR_ERR_MALFORMED_PROOF, "mpc: contract %s revealed twice", n.ContractId)
			}
			seen[n.ContractId] = struct{}{}
		}

		stack = append(stack, stackEntry{depth: n.Depth, idx: offset / span, hash: n.hash()})
		offset += span
		for len(stack) >= 2 {
			l, r := stack[len(stack)-2], stack[len(stack)-1]
			if l.depth != r.depth || l.idx%2 != 0 {
				break
			}
			stack = stack[:len(stack)-2]
			stack = append(stack, stackEntry{depth: l.depth - 1, idx: l.idx / 2, hash: NodeHash(l.depth-1, l.hash, r.hash)})
		}
	}
	if offset != width || len(stack) != 1 {
		return commit.Digest{}, commit.Err(commit.ANCHOR_ERR_MALFORMED_PROOF, "mpc: nodes do not cover the tree")
	}
	return stack[0].hash, nil
}

// Validate checks the structure and that the nodes hash to Root.
func (b MerkleBlock) Validate() error {
	root, err := b.ComputeRoot()
	if err != nil {
		return err
	}
	if root != b.Root {
		return commit.Errf(commit.ANCHOR_ERR_COMMITMENT_MISMATCH, "mpc: root %s, block claims %s", root, b.Root)
	}
	return nil
}

// Verify checks that the block commits to msg for cid under expectedRoot.
func (b MerkleBlock) Verify(cid commit.ContractId, msg commit.Digest, expectedRoot commit.Digest) error {
	got, err := b.MessageFor(cid)
	if err != nil {
		return err
	}
	if got != msg {
		return commit.Errf(commit.ANCHOR_ERR_BUNDLE_MISMATCH, "mpc: message for %s differs", cid)
	}
	root, err := b.ComputeRoot()
	if err != nil {
		return err
	}
	if root != expectedRoot {
		return commit.Errf(commit.ANCHOR_ERR_COMMITMENT_MISMATCH, "mpc: root %s, expected %s", root, expectedRoot)
	}
	return nil
}

// Conceal hides every revealed leaf not listed in keep and merges adjacent
// opaque siblings. The root is unchanged.
func (b MerkleBlock) Conceal(keep ...commit.ContractId) (MerkleBlock, error) {
	if _, err := b.ComputeRoot(); err != nil {
		return MerkleBlock{}, err
	}
	kept := make(map[commit.ContractId]struct{}, len(keep))
	for _, cid := range keep {
		kept[cid] = struct{}{}
	}

	type pending struct {
		node Node
		idx  uint64
	}
	stack := make([]pending, 0, len(b.Nodes))
	var offset uint64
	for _, n := range b.Nodes {
		if n.Revealed {
			if _, ok := kept[n.ContractId]; !ok {
				n = Node{Depth: n.Depth, Hash: n.hash()}
			}
		}
		span := uint64(1) << (b.Depth - n.Depth)
		stack = append(stack, pending{node: n, idx: offset / span})
		offset += span
		for len(stack) >= 2 {
			l, r := stack[len(stack)-2], stack[len(stack)-1]
			if l.node.Revealed || r.node.Revealed || l.node.Depth != r.node.Depth || l.idx%2 != 0 {
				break
			}
			d := l.node.Depth - 1
			stack = stack[:len(stack)-2]
			stack = append(stack, pending{
				node: Node{Depth: d, Hash: NodeHash(d, l.node.Hash, r.node.Hash)},
				idx:  l.idx / 2,
			})
		}
	}

	out := MerkleBlock{Depth: b.Depth, Cofactor: b.Cofactor, Root: b.Root}
	for _, p := range stack {
		out.Nodes = append(out.Nodes, p.node)
	}
	return out, nil
}
