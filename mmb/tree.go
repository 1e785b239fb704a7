package mmb

import (
	"slices"

	"seals.dev/anchor/commit"
)

const MaxLeaves = 0xFFFF

func LeafHash(ref commit.BundleRef) commit.Digest {
	return commit.TaggedHash(commit.TagMmbLeaf, ref[:])
}

func NodeHash(l, r commit.Digest) commit.Digest {
	return commit.TaggedHash(commit.TagMmbNode, l[:], r[:])
}

// Normalize returns the refs sorted and de-duplicated. The input is not
// modified.
func Normalize(refs []commit.BundleRef) []commit.BundleRef {
	out := slices.Clone(refs)
	slices.SortFunc(out, commit.BundleRef.Compare)
	return slices.Compact(out)
}

// Tree is the per-contract bundle tree. Leaves are the sorted bundle refs;
// an odd node at the end of a level is carried up unchanged.
type Tree struct {
	refs   []commit.BundleRef
	levels [][]commit.Digest
}

func Commit(refs []commit.BundleRef) (*Tree, error) {
	leaves := Normalize(refs)
	if len(leaves) == 0 {
		return nil, commit.Err(commit.ANCHOR_ERR_MALFORMED_PROOF, "mmb: empty bundle set")
	}
	if len(leaves) > MaxLeaves {
		return nil, commit.Errf(commit.ANCHOR_ERR_BOUND_EXCEEDED, "mmb: %d bundles exceeds %d", len(leaves), MaxLeaves)
	}

	level := make([]commit.Digest, 0, len(leaves))
	for _, ref := range leaves {
		level = append(level, LeafHash(ref))
	}
	levels := [][]commit.Digest{level}
	for len(level) > 1 {
		next := make([]commit.Digest, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i == len(level)-1 {
				next = append(next, level[i])
				continue
			}
			next = append(next, NodeHash(level[i], level[i+1]))
		}
		levels = append(levels, next)
		level = next
	}
	return &Tree{refs: leaves, levels: levels}, nil
}

func (t *Tree) Root() commit.Digest {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

func (t *Tree) Len() int { return len(t.refs) }

// Prove builds a proof revealing the given refs, which must all be leaves
// of the tree. Passing no refs reveals every leaf.
func (t *Tree) Prove(reveal ...commit.BundleRef) (BundleProof, error) {
	if len(reveal) == 0 {
		reveal = t.refs
	}
	reveal = Normalize(reveal)

	known := make([]knownNode, 0, len(reveal))
	positions := make([]uint32, 0, len(reveal))
	for _, ref := range reveal {
		idx, found := slices.BinarySearchFunc(t.refs, ref, commit.BundleRef.Compare)
		if !found {
			return BundleProof{}, commit.Errf(commit.ANCHOR_ERR_BUNDLE_MISMATCH, "mmb: bundle %s not committed", ref)
		}
		positions = append(positions, uint32(idx)) // #nosec G115 -- idx < MaxLeaves.
		known = append(known, knownNode{idx: idx, hash: t.levels[0][idx]})
	}

	var siblings []commit.Digest
	_, err := fold(known, len(t.refs), func(level, idx int) (commit.Digest, error) {
		s := t.levels[level][idx]
		siblings = append(siblings, s)
		return s, nil
	})
	if err != nil {
		return BundleProof{}, err
	}
	return BundleProof{
		LeafCount: uint32(len(t.refs)), // #nosec G115 -- bounded by MaxLeaves.
		Positions: positions,
		Siblings:  siblings,
	}, nil
}

type knownNode struct {
	idx  int
	hash commit.Digest
}

// fold reduces the known nodes of a width-n level to the root. Missing
// siblings are requested from next in the order the proof lists them.
func fold(known []knownNode, n int, next func(level, idx int) (commit.Digest, error)) (commit.Digest, error) {
	for level := 0; n > 1; level++ {
		up := make([]knownNode, 0, len(known))
		for i := 0; i < len(known); i++ {
			cur := known[i]
			sib := cur.idx ^ 1
			var h commit.Digest
			switch {
			case sib >= n:
				h = cur.hash
			case i+1 < len(known) && known[i+1].idx == sib:
				h = NodeHash(cur.hash, known[i+1].hash)
				i++
			default:
				s, err := next(level, sib)
				if err != nil {
					return commit.Digest{}, err
				}
				if cur.idx&1 == 0 {
					h = NodeHash(cur.hash, s)
				} else {
					h = NodeHash(s, cur.hash)
				}
			}
			up = append(up, knownNode{idx: cur.idx / 2, hash: h})
		}
		known = up
		n = (n + 1) / 2
	}
	return known[0].hash, nil
}
