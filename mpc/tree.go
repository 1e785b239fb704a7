package mpc

import (
	"crypto/rand"
	"encoding/binary"
	"slices"

	"seals.dev/anchor/commit"
)

type buildOptions struct {
	entropy    *uint64
	minDepth   uint8
	maxCofSeek int
}

type Option func(*buildOptions)

// WithEntropy fixes the entropy used for empty slots. Only meant for tests
// and reproducible fixtures: reusing entropy lets observers link trees.
func WithEntropy(e uint64) Option {
	return func(o *buildOptions) { o.entropy = &e }
}

func WithMinDepth(d uint8) Option {
	return func(o *buildOptions) { o.minDepth = d }
}

// memoSpan is the smallest subtree height whose hash is kept after the
// first pass, so concealing never rehashes more than 2^memoSpan leaves per
// opaque node.
const memoSpan = 6

type nodeKey struct {
	depth uint8
	idx   uint64
}

type slot struct {
	pos uint32
	cid commit.ContractId
	msg commit.Digest
}

// MerkleTree is the fully known commitment tree held by the party that
// builds an anchor.
type MerkleTree struct {
	depth    uint8
	cofactor uint16
	entropy  uint64
	slots    []slot // sorted by pos
	root     commit.Digest
	memo     map[nodeKey]commit.Digest
}

// Build places every contract message into a sparse tree, searching for the
// smallest depth and a cofactor under which no two contracts collide. The
// search gives up with ANCHOR_ERR_BOUND_EXCEEDED past MaxBuildDepth.
func Build(messages map[commit.ContractId]commit.Digest, opts ...Option) (*MerkleTree, error) {
	o := buildOptions{maxCofSeek: MaxCofactorAttempts}
	for _, opt := range opts {
		opt(&o)
	}
	if o.minDepth > MaxBuildDepth {
		return nil, commit.Errf(commit.ANCHOR_ERR_BOUND_EXCEEDED, "mpc: depth %d exceeds %d", o.minDepth, MaxBuildDepth)
	}

	var entropy uint64
	if o.entropy != nil {
		entropy = *o.entropy
	} else {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return nil, err
		}
		entropy = binary.LittleEndian.Uint64(buf[:])
	}

	cids := make([]commit.ContractId, 0, len(messages))
	for cid := range messages {
		cids = append(cids, cid)
	}
	slices.SortFunc(cids, commit.ContractId.Compare)

	depth := o.minDepth
	for Width(depth) < uint64(len(cids)) {
		depth++
	}
	for ; depth <= MaxBuildDepth; depth++ {
		for cof := 0; cof < o.maxCofSeek; cof++ {
			cofactor := uint16(cof) // #nosec G115 -- cof < MaxCofactorAttempts.
			slots, ok := place(cids, messages, cofactor, depth)
			if !ok {
				continue
			}
			t := &MerkleTree{
				depth:    depth,
				cofactor: cofactor,
				entropy:  entropy,
				slots:    slots,
				memo:     make(map[nodeKey]commit.Digest),
			}
			t.root = t.subtree(0, 0)
			return t, nil
		}
	}
	return nil, commit.Errf(commit.ANCHOR_ERR_BOUND_EXCEEDED, "mpc: cannot place %d contracts", len(cids))
}

func place(cids []commit.ContractId, messages map[commit.ContractId]commit.Digest, cofactor uint16, depth uint8) ([]slot, bool) {
	slots := make([]slot, 0, len(cids))
	taken := make(map[uint32]struct{}, len(cids))
	for _, cid := range cids {
		pos := Position(cid, cofactor, depth)
		if _, dup := taken[pos]; dup {
			return nil, false
		}
		taken[pos] = struct{}{}
		slots = append(slots, slot{pos: pos, cid: cid, msg: messages[cid]})
	}
	slices.SortFunc(slots, func(a, b slot) int {
		switch {
		case a.pos < b.pos:
			return -1
		case a.pos > b.pos:
			return 1
		}
		return 0
	})
	return slots, true
}

func (t *MerkleTree) Depth() uint8 { return t.depth }

func (t *MerkleTree) Cofactor() uint16 { return t.cofactor }

func (t *MerkleTree) Root() commit.Digest { return t.root }

func (t *MerkleTree) Commitment() commit.Digest {
	return CommitmentHash(t.depth, t.cofactor, t.root)
}

func (t *MerkleTree) Contracts() []commit.ContractId {
	out := make([]commit.ContractId, 0, len(t.slots))
	for _, s := range t.slots {
		out = append(out, s.cid)
	}
	slices.SortFunc(out, commit.ContractId.Compare)
	return out
}

// slotsIn returns the inhabited slots with positions in [lo, hi).
func (t *MerkleTree) slotsIn(lo, hi uint64) []slot {
	i, _ := slices.BinarySearchFunc(t.slots, lo, func(s slot, p uint64) int {
		switch {
		case uint64(s.pos) < p:
			return -1
		case uint64(s.pos) > p:
			return 1
		}
		return 0
	})
	j := i
	for j < len(t.slots) && uint64(t.slots[j].pos) < hi {
		j++
	}
	return t.slots[i:j]
}

func (t *MerkleTree) span(d uint8, idx uint64) (uint64, uint64) {
	shift := t.depth - d
	return idx << shift, (idx + 1) << shift
}

func (t *MerkleTree) leaf(pos uint64) commit.Digest {
	if in := t.slotsIn(pos, pos+1); len(in) == 1 {
		return InhabitedLeaf(in[0].cid, in[0].msg)
	}
	return EntropyLeaf(t.entropy, uint32(pos)) // #nosec G115 -- pos < 2^32.
}

// subtree hashes the node at depth d. Build computes the root first, so
// afterwards every memoized level is already filled and only read.
func (t *MerkleTree) subtree(d uint8, idx uint64) commit.Digest {
	if d == t.depth {
		return t.leaf(idx)
	}
	key := nodeKey{d, idx}
	keep := t.depth-d >= memoSpan
	if keep {
		if h, ok := t.memo[key]; ok {
			return h
		}
	}
	h := NodeHash(d, t.subtree(d+1, 2*idx), t.subtree(d+1, 2*idx+1))
	if keep {
		t.memo[key] = h
	}
	return h
}

// Block reveals every contract leaf. Empty slots stay concealed.
func (t *MerkleTree) Block() MerkleBlock {
	return t.Conceal(t.Contracts()...)
}

// Conceal exports a block revealing only the listed contracts. Every other
// part of the tree is reduced to the fewest opaque nodes that cover it.
func (t *MerkleTree) Conceal(keep ...commit.ContractId) MerkleBlock {
	kept := make(map[commit.ContractId]struct{}, len(keep))
	for _, cid := range keep {
		kept[cid] = struct{}{}
	}
	b := MerkleBlock{Depth: t.depth, Cofactor: t.cofactor, Root: t.root}
	t.appendCrossSection(&b.Nodes, kept, 0, 0)
	return b
}

func (t *MerkleTree) appendCrossSection(out *[]Node, kept map[commit.ContractId]struct{}, d uint8, idx uint64) {
	lo, hi := t.span(d, idx)
	reveal := false
	for _, s := range t.slotsIn(lo, hi) {
		if _, ok := kept[s.cid]; ok {
			reveal = true
			break
		}
	}
	if !reveal {
		*out = append(*out, Node{Depth: d, Hash: t.subtree(d, idx)})
		return
	}
	if d == t.depth {
		s := t.slotsIn(lo, hi)[0]
		*out = append(*out, Node{Revealed: true, Depth: d, ContractId: s.cid, Message: s.msg})
		return
	}
	t.appendCrossSection(out, kept, d+1, 2*idx)
	t.appendCrossSection(out, kept, d+1, 2*idx+1)
}
