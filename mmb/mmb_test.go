package mmb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seals.dev/anchor/commit"
)

func ref(b byte) commit.BundleRef {
	var r commit.BundleRef
	r[0] = b
	r[31] = ^b
	return r
}

func refs(bs ...byte) []commit.BundleRef {
	out := make([]commit.BundleRef, 0, len(bs))
	for _, b := range bs {
		out = append(out, ref(b))
	}
	return out
}

func TestCommit_OddPromotion(t *testing.T) {
	tree, err := Commit(refs(3, 1, 2))
	require.NoError(t, err)

	l1, l2, l3 := LeafHash(ref(1)), LeafHash(ref(2)), LeafHash(ref(3))
	want := NodeHash(NodeHash(l1, l2), l3)
	assert.Equal(t, want, tree.Root())
	assert.Equal(t, 3, tree.Len())
}

func TestCommit_SingleLeaf(t *testing.T) {
	tree, err := Commit(refs(7))
	require.NoError(t, err)
	assert.Equal(t, LeafHash(ref(7)), tree.Root())

	p, err := tree.Prove()
	require.NoError(t, err)
	assert.Equal(t, []uint32{0}, p.Positions)
	assert.Empty(t, p.Siblings)
	require.NoError(t, p.Verify(refs(7), tree.Root()))
}

func TestCommit_OrderAndDuplicatesIrrelevant(t *testing.T) {
	a, err := Commit(refs(1, 2, 3, 4))
	require.NoError(t, err)
	b, err := Commit(refs(4, 2, 2, 1, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, a.Root(), b.Root())
}

func TestCommit_Empty(t *testing.T) {
	_, err := Commit(nil)
	require.ErrorIs(t, err, commit.ErrMalformedProof)
}

func TestProve_EverySubset(t *testing.T) {
	all := refs(10, 20, 30, 40, 50)
	tree, err := Commit(all)
	require.NoError(t, err)

	for mask := 1; mask < 1<<len(all); mask++ {
		var subset []commit.BundleRef
		for i := range all {
			if mask&(1<<i) != 0 {
				subset = append(subset, all[i])
			}
		}
		p, err := tree.Prove(subset...)
		require.NoError(t, err, "mask %b", mask)
		require.NoError(t, p.Verify(subset, tree.Root()), "mask %b", mask)

		back, err := ReadBundleProof(commit.NewReader(p.AppendTo(nil)))
		require.NoError(t, err)
		assert.Equal(t, p, back, "mask %b", mask)
	}
}

func TestProve_UnknownRef(t *testing.T) {
	tree, err := Commit(refs(1, 2))
	require.NoError(t, err)
	_, err = tree.Prove(ref(9))
	require.ErrorIs(t, err, commit.ErrBundleMismatch)
}

func TestVerify_Failures(t *testing.T) {
	tree, err := Commit(refs(1, 2, 3))
	require.NoError(t, err)
	full, err := tree.Prove()
	require.NoError(t, err)
	partial, err := tree.Prove(ref(1), ref(3))
	require.NoError(t, err)
	require.Len(t, partial.Siblings, 1)

	t.Run("omitted_bundle", func(t *testing.T) {
		err := full.Verify(refs(1, 2), tree.Root())
		assert.ErrorIs(t, err, commit.ErrBundleMismatch)
	})
	t.Run("foreign_bundle", func(t *testing.T) {
		err := full.Verify(refs(1, 2, 4), tree.Root())
		assert.ErrorIs(t, err, commit.ErrBundleMismatch)
	})
	t.Run("wrong_root", func(t *testing.T) {
		err := full.Verify(refs(1, 2, 3), commit.Digest{1})
		assert.ErrorIs(t, err, commit.ErrBundleMismatch)
	})
	t.Run("tampered_sibling", func(t *testing.T) {
		p := partial
		p.Siblings = []commit.Digest{{0xee}}
		assert.ErrorIs(t, p.Verify(refs(1, 3), tree.Root()), commit.ErrBundleMismatch)
	})
	t.Run("missing_sibling", func(t *testing.T) {
		p := partial
		p.Siblings = nil
		assert.ErrorIs(t, p.Verify(refs(1, 3), tree.Root()), commit.ErrMalformedProof)
	})
	t.Run("extra_sibling", func(t *testing.T) {
		p := full
		p.Siblings = []commit.Digest{{1}}
		assert.ErrorIs(t, p.Verify(refs(1, 2, 3), tree.Root()), commit.ErrMalformedProof)
	})
	t.Run("duplicate_position", func(t *testing.T) {
		p := BundleProof{LeafCount: 3, Positions: []uint32{1, 1}}
		assert.ErrorIs(t, p.Verify(refs(1, 2), tree.Root()), commit.ErrMalformedProof)
	})
	t.Run("out_of_range_position", func(t *testing.T) {
		p := BundleProof{LeafCount: 3, Positions: []uint32{3}}
		assert.ErrorIs(t, p.Verify(refs(1), tree.Root()), commit.ErrMalformedProof)
	})
	t.Run("zero_leaf_count", func(t *testing.T) {
		p := BundleProof{Positions: []uint32{0}}
		assert.ErrorIs(t, p.Verify(refs(1), tree.Root()), commit.ErrMalformedProof)
	})
}

func TestReadBundleProof_Bound(t *testing.T) {
	raw := []byte{0x01, 0x00, 0x00, 0x00, 0xfe, 0x00, 0x00, 0x01, 0x00}
	_, err := ReadBundleProof(commit.NewReader(raw))
	require.ErrorIs(t, err, commit.ErrBoundExceeded)
}
