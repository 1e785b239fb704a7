package mpc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seals.dev/anchor/commit"
)

func cid(b byte) commit.ContractId {
	var c commit.ContractId
	for i := range c {
		c[i] = b ^ byte(i)
	}
	return c
}

func msg(b byte) commit.Digest {
	return commit.TaggedHash([]byte("test-message"), []byte{b})
}

func messages(bs ...byte) map[commit.ContractId]commit.Digest {
	out := make(map[commit.ContractId]commit.Digest, len(bs))
	for _, b := range bs {
		out[cid(b)] = msg(b)
	}
	return out
}

func TestBuild_EmptySet(t *testing.T) {
	tree, err := Build(nil, WithEntropy(7))
	require.NoError(t, err)
	assert.Equal(t, uint8(0), tree.Depth())
	assert.Equal(t, EntropyLeaf(7, 0), tree.Root())

	block := tree.Block()
	require.Len(t, block.Nodes, 1)
	assert.False(t, block.Nodes[0].Revealed)
	require.NoError(t, block.Validate())
	assert.Empty(t, block.Contracts())
	assert.Equal(t, CommitmentHash(0, tree.Cofactor(), tree.Root()), block.Commitment())
}

func TestBuild_SingleContract(t *testing.T) {
	tree, err := Build(messages(1), WithEntropy(1))
	require.NoError(t, err)
	assert.Equal(t, uint8(0), tree.Depth())
	assert.Equal(t, InhabitedLeaf(cid(1), msg(1)), tree.Root())
	require.NoError(t, tree.Block().Verify(cid(1), msg(1), tree.Root()))
}

func TestBuild_PlacesWithoutCollision(t *testing.T) {
	in := messages(1, 2, 3, 4, 5, 6, 7, 8, 9)
	tree, err := Build(in, WithEntropy(42))
	require.NoError(t, err)
	require.GreaterOrEqual(t, Width(tree.Depth()), uint64(len(in)))

	seen := map[uint32]bool{}
	for c := range in {
		p := Position(c, tree.Cofactor(), tree.Depth())
		require.False(t, seen[p], "collision at %d", p)
		seen[p] = true
	}

	block := tree.Block()
	require.NoError(t, block.Validate())
	assert.Len(t, block.Contracts(), len(in))
	for c, m := range in {
		require.NoError(t, block.Verify(c, m, tree.Root()))
	}
}

func TestBuild_Deterministic(t *testing.T) {
	a, err := Build(messages(1, 2, 3), WithEntropy(5))
	require.NoError(t, err)
	b, err := Build(messages(3, 2, 1), WithEntropy(5))
	require.NoError(t, err)
	assert.Equal(t, a.Root(), b.Root())
	assert.Equal(t, a.Block().AppendTo(nil), b.Block().AppendTo(nil))

	c, err := Build(messages(1, 2, 3), WithEntropy(6))
	require.NoError(t, err)
	assert.NotEqual(t, a.Root(), c.Root())
}

func TestBuild_DepthCeiling(t *testing.T) {
	_, err := Build(messages(1), WithEntropy(1), WithMinDepth(MaxBuildDepth+1))
	assert.ErrorIs(t, err, commit.ErrBoundExceeded)

	// Concealing reuses the hashes of large subtrees from the first pass.
	tree, err := Build(messages(1, 2), WithEntropy(1), WithMinDepth(8))
	require.NoError(t, err)
	require.Equal(t, uint8(8), tree.Depth())
	assert.Len(t, tree.memo, 1+2+4)
	before := len(tree.memo)
	block := tree.Conceal(cid(1))
	assert.Len(t, tree.memo, before)
	require.NoError(t, block.Verify(cid(1), msg(1), tree.Root()))
}

func TestConceal_Privacy(t *testing.T) {
	t1, err := Build(messages(1, 2, 3), WithEntropy(11), WithMinDepth(8))
	require.NoError(t, err)
	t2, err := Build(messages(1, 4, 5), WithEntropy(12), WithMinDepth(8))
	require.NoError(t, err)

	for _, tree := range []*MerkleTree{t1, t2} {
		require.Equal(t, uint8(8), tree.Depth())
		block := tree.Conceal(cid(1))
		require.NoError(t, block.Validate())
		assert.Equal(t, []commit.ContractId{cid(1)}, block.Contracts())
		assert.Len(t, block.Nodes, int(block.Depth)+1)

		enc := block.AppendTo(nil)
		for _, other := range []byte{2, 3, 4, 5} {
			o := cid(other)
			assert.False(t, bytes.Contains(enc, o[:]), "contract %d leaked", other)
			m := msg(other)
			assert.False(t, bytes.Contains(enc, m[:]), "message %d leaked", other)
		}
	}
}

func TestConceal_BlockMatchesTree(t *testing.T) {
	tree, err := Build(messages(1, 2, 3, 4), WithEntropy(3), WithMinDepth(4))
	require.NoError(t, err)

	fromBlock, err := tree.Block().Conceal(cid(2))
	require.NoError(t, err)
	assert.Equal(t, tree.Conceal(cid(2)), fromBlock)

	none, err := tree.Block().Conceal()
	require.NoError(t, err)
	require.Len(t, none.Nodes, 1)
	assert.Equal(t, uint8(0), none.Nodes[0].Depth)
	assert.Equal(t, tree.Root(), none.Nodes[0].Hash)
}

func TestBlock_Failures(t *testing.T) {
	tree, err := Build(messages(1, 2, 3), WithEntropy(9), WithMinDepth(8))
	require.NoError(t, err)
	good := tree.Block()

	clone := func() MerkleBlock {
		b := good
		b.Nodes = append([]Node(nil), good.Nodes...)
		return b
	}
	concealedIdx := func(b MerkleBlock) int {
		for i, n := range b.Nodes {
			if !n.Revealed {
				return i
			}
		}
		t.Fatalf("no concealed node")
		return -1
	}

	t.Run("wrong_message", func(t *testing.T) {
		err := good.Verify(cid(1), msg(9), tree.Root())
		assert.ErrorIs(t, err, commit.ErrBundleMismatch)
	})
	t.Run("not_revealed", func(t *testing.T) {
		_, err := good.MessageFor(cid(7))
		assert.ErrorIs(t, err, commit.ErrMalformedProof)
	})
	t.Run("tampered_hash", func(t *testing.T) {
		b := clone()
		i := concealedIdx(b)
		b.Nodes[i].Hash[0] ^= 1
		assert.ErrorIs(t, b.Validate(), commit.ErrCommitmentMismatch)
		assert.ErrorIs(t, b.Verify(cid(1), msg(1), tree.Root()), commit.ErrCommitmentMismatch)
	})
	t.Run("tampered_root", func(t *testing.T) {
		b := clone()
		b.Root[0] ^= 1
		assert.ErrorIs(t, b.Validate(), commit.ErrCommitmentMismatch)
	})
	t.Run("missing_node", func(t *testing.T) {
		b := clone()
		b.Nodes = b.Nodes[:len(b.Nodes)-1]
		_, err := b.ComputeRoot()
		assert.ErrorIs(t, err, commit.ErrMalformedProof)
	})
	t.Run("wrong_cofactor", func(t *testing.T) {
		b := clone()
		b.Cofactor++
		_, err := b.ComputeRoot()
		assert.ErrorIs(t, err, commit.ErrMalformedProof)
	})
	t.Run("misaligned", func(t *testing.T) {
		b := MerkleBlock{Depth: 2, Nodes: []Node{
			{Depth: 2}, {Depth: 1}, {Depth: 2},
		}}
		_, err := b.ComputeRoot()
		assert.ErrorIs(t, err, commit.ErrMalformedProof)
	})
	t.Run("too_deep", func(t *testing.T) {
		b := MerkleBlock{Depth: 1, Nodes: []Node{{Depth: 2}, {Depth: 2}, {Depth: 1}}}
		_, err := b.ComputeRoot()
		assert.ErrorIs(t, err, commit.ErrMalformedProof)
	})
	t.Run("duplicate_reveal", func(t *testing.T) {
		b := clone()
		for i, n := range b.Nodes {
			if n.Revealed {
				b.Nodes = append(b.Nodes[:i+1], b.Nodes[i:]...)
				break
			}
		}
		_, err := b.ComputeRoot()
		assert.ErrorIs(t, err, commit.ErrMalformedProof)
	})
}

func TestCodec_Roundtrip(t *testing.T) {
	tree, err := Build(messages(1, 2, 3, 4, 5), WithEntropy(77))
	require.NoError(t, err)

	for _, block := range []MerkleBlock{tree.Block(), tree.Conceal(cid(3)), tree.Conceal()} {
		raw := block.AppendTo(nil)
		r := commit.NewReader(raw)
		back, err := ReadMerkleBlock(r)
		require.NoError(t, err)
		require.NoError(t, r.Finish("block"))
		assert.Equal(t, block, back)
		assert.Equal(t, raw, back.AppendTo(nil))
	}
}

func TestCodec_Rejects(t *testing.T) {
	t.Run("depth", func(t *testing.T) {
		raw := append([]byte{33, 0, 0}, make([]byte, 32)...)
		_, err := ReadMerkleBlock(commit.NewReader(append(raw, 0)))
		assert.ErrorIs(t, err, commit.ErrParse)
	})
	t.Run("node_tag", func(t *testing.T) {
		raw := append([]byte{0, 0, 0}, make([]byte, 32)...)
		raw = append(raw, 1, 0x07)
		_, err := ReadMerkleBlock(commit.NewReader(raw))
		assert.ErrorIs(t, err, commit.ErrParse)
	})
	t.Run("node_count", func(t *testing.T) {
		raw := append([]byte{0, 0, 0}, make([]byte, 32)...)
		raw = append(raw, 0xfe, 0x01, 0x00, 0x10, 0x00)
		_, err := ReadMerkleBlock(commit.NewReader(raw))
		assert.ErrorIs(t, err, commit.ErrBoundExceeded)
	})
}
