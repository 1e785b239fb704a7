package mpc

import (
	"encoding/binary"

	"seals.dev/anchor/commit"
)

const (
	MaxDepth = 32

	// MaxCofactorAttempts bounds the cofactor search at each depth before
	// the builder widens the tree.
	MaxCofactorAttempts = 500

	// MaxBuildDepth caps the trees Build produces. Every one of the 2^depth
	// leaves is hashed, so deeper trees are only ever verified, never
	// built here. About 3000 contracts still fit at this depth.
	MaxBuildDepth = 20
)

const (
	leafInhabited = 0x10
	leafEntropy   = 0x11
)

func Width(depth uint8) uint64 {
	return uint64(1) << depth
}

// Position places a contract in a tree of the given depth.
func Position(cid commit.ContractId, cofactor uint16, depth uint8) uint32 {
	h := commit.TaggedHash(commit.TagMpcPosition, cid[:], commit.U16LE(cofactor))
	v := binary.LittleEndian.Uint32(h[:4])
	if depth >= MaxDepth {
		return v
	}
	return v & uint32(Width(depth)-1) // #nosec G115 -- depth < 32.
}

func InhabitedLeaf(cid commit.ContractId, msg commit.Digest) commit.Digest {
	return commit.TaggedHash(commit.TagMpcLeaf, []byte{leafInhabited}, cid[:], msg[:])
}

func EntropyLeaf(entropy uint64, pos uint32) commit.Digest {
	return commit.TaggedHash(commit.TagMpcLeaf, []byte{leafEntropy}, commit.U64LE(entropy), commit.U32LE(pos))
}

// NodeHash joins two children into a node at the given depth, with the root
// at depth zero.
func NodeHash(depth uint8, l, r commit.Digest) commit.Digest {
	return commit.TaggedHash(commit.TagMpcNode, []byte{depth}, l[:], r[:])
}

func CommitmentHash(depth uint8, cofactor uint16, root commit.Digest) commit.Digest {
	return commit.TaggedHash(commit.TagMpcCommitment, []byte{depth}, commit.U16LE(cofactor), root[:])
}
