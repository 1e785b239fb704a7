package mmb

import "seals.dev/anchor/commit"

// BundleProof is a multi-leaf inclusion proof. Positions are the leaf
// indices of the revealed refs in ascending order; Siblings are the
// co-path hashes consumed bottom-up, left to right.
type BundleProof struct {
	LeafCount uint32
	Positions []uint32
	Siblings  []commit.Digest
}

// Validate checks the proof shape without hashing anything.
func (p BundleProof) Validate() error {
	if p.LeafCount == 0 || p.LeafCount > MaxLeaves {
		return commit.Errf(commit.ANCHOR_ERR_MALFORMED_PROOF, "mmb: leaf count %d out of range", p.LeafCount)
	}
	if len(p.Positions) == 0 {
		return commit.Err(commit.ANCHOR_ERR_MALFORMED_PROOF, "mmb: no positions")
	}
	if len(p.Positions) > int(p.LeafCount) {
		return commit.Err(commit.ANCHOR_ERR_MALFORMED_PROOF, "mmb: more positions than leaves")
	}
	if len(p.Siblings) > MaxLeaves {
		return commit.Err(commit.ANCHOR_ERR_MALFORMED_PROOF, "mmb: sibling path too long")
	}
	for i, pos := range p.Positions {
		if pos >= p.LeafCount {
			return commit.Errf(commit.ANCHOR_ERR_MALFORMED_PROOF, "mmb: position %d out of range", pos)
		}
		if i > 0 && pos <= p.Positions[i-1] {
			return commit.Errf(commit.ANCHOR_ERR_MALFORMED_PROOF, "mmb: duplicate or unordered position %d", pos)
		}
	}
	return nil
}

// Root recomputes the bundle root from the refs the proof reveals. The refs
// are matched to positions after sorting.
func (p BundleProof) Root(refs []commit.BundleRef) (commit.Digest, error) {
	if err := p.Validate(); err != nil {
		return commit.Digest{}, err
	}
	leaves := Normalize(refs)
	if len(leaves) != len(p.Positions) {
		return commit.Digest{}, commit.Errf(commit.ANCHOR_ERR_BUNDLE_MISMATCH,
			"mmb: proof reveals %d bundles, got %d", len(p.Positions), len(leaves))
	}

	known := make([]knownNode, 0, len(leaves))
	for i, ref := range leaves {
		known = append(known, knownNode{idx: int(p.Positions[i]), hash: LeafHash(ref)})
	}

	used := 0
	root, err := fold(known, int(p.LeafCount), func(int, int) (commit.Digest, error) {
		if used >= len(p.Siblings) {
			return commit.Digest{}, commit.Err(commit.ANCHOR_ERR_MALFORMED_PROOF, "mmb: sibling path too short")
		}
		s := p.Siblings[used]
		used++
		return s, nil
	})
	if err != nil {
		return commit.Digest{}, err
	}
	if used != len(p.Siblings) {
		return commit.Digest{}, commit.Errf(commit.ANCHOR_ERR_MALFORMED_PROOF,
			"mmb: %d unused siblings", len(p.Siblings)-used)
	}
	return root, nil
}

func (p BundleProof) Verify(refs []commit.BundleRef, expected commit.Digest) error {
	root, err := p.Root(refs)
	if err != nil {
		return err
	}
	if root != expected {
		return commit.Errf(commit.ANCHOR_ERR_BUNDLE_MISMATCH, "mmb: root %s, expected %s", root, expected)
	}
	return nil
}

func (p BundleProof) AppendTo(dst []byte) []byte {
	dst = append(dst, commit.U32LE(p.LeafCount)...)
	dst = commit.AppendCompactSize(dst, len(p.Positions))
	for _, pos := range p.Positions {
		dst = append(dst, commit.U32LE(pos)...)
	}
	dst = commit.AppendCompactSize(dst, len(p.Siblings))
	for _, s := range p.Siblings {
		dst = append(dst, s[:]...)
	}
	return dst
}

// ReadBundleProof decodes a proof; the shape is not validated until use.
func ReadBundleProof(r *commit.Reader) (BundleProof, error) {
	var p BundleProof
	var err error
	if p.LeafCount, err = r.ReadU32LE("mmb.leaf_count"); err != nil {
		return p, err
	}
	n, err := r.ReadCount("mmb.positions", MaxLeaves)
	if err != nil {
		return p, err
	}
	for i := 0; i < n; i++ {
		pos, err := r.ReadU32LE("mmb.position")
		if err != nil {
			return p, err
		}
		p.Positions = append(p.Positions, pos)
	}
	n, err = r.ReadCount("mmb.siblings", MaxLeaves)
	if err != nil {
		return p, err
	}
	for i := 0; i < n; i++ {
		s, err := r.ReadDigest("mmb.sibling")
		if err != nil {
			return p, err
		}
		p.Siblings = append(p.Siblings, s)
	}
	return p, nil
}
