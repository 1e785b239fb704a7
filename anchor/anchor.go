package anchor

import (
	"seals.dev/anchor/bp"
	"seals.dev/anchor/commit"
	"seals.dev/anchor/crypto"
	"seals.dev/anchor/dbc"
	"seals.dev/anchor/mpc"
)

// SuperAnchor links the bundles of every contract it lists to one
// transaction through an MPC block and a DBC proof of scheme D.
type SuperAnchor[D dbc.Proof] struct {
	MpcProof  mpc.MerkleBlock
	DbcProof  D
	Contracts ContractMap
}

// Anchor is a SuperAnchor whose scheme is only known at run time.
type Anchor = SuperAnchor[dbc.Proof]

// Narrow checks that a carries a proof of scheme D.
func Narrow[D dbc.Proof](a Anchor) (SuperAnchor[D], error) {
	p, ok := a.DbcProof.(D)
	if !ok {
		var want D
		return SuperAnchor[D]{}, commit.Errf(commit.ANCHOR_ERR_UNSUPPORTED_SCHEME,
			"anchor uses %s, want %s", methodOf(a.DbcProof), methodOf(want))
	}
	return SuperAnchor[D]{MpcProof: a.MpcProof, DbcProof: p, Contracts: a.Contracts}, nil
}

func (a SuperAnchor[D]) Erase() Anchor {
	return Anchor{MpcProof: a.MpcProof, DbcProof: a.DbcProof, Contracts: a.Contracts}
}

func methodOf(p dbc.Proof) string {
	if p == nil {
		return "none"
	}
	return p.Method().String()
}

func (a SuperAnchor[D]) proof() (dbc.Proof, error) {
	var p dbc.Proof = a.DbcProof
	if err := dbc.CheckProof(p); err != nil {
		return nil, err
	}
	return p, nil
}

// VerifiedClaim is the result of a successful verification.
type VerifiedClaim struct {
	ContractId commit.ContractId
	Bundles    []commit.BundleRef
	BundleRoot commit.Digest
	MpcRoot    commit.Digest
	Commitment commit.Digest
	Method     dbc.Method
	Txid       bp.Txid
}

// Verify checks that the bundles of a contract are committed by tx. The
// result is all or nothing: any failing layer fails the whole call.
func (a SuperAnchor[D]) Verify(cid commit.ContractId, refs []commit.BundleRef, tx *bp.Tx) (*VerifiedClaim, error) {
	if a.Contracts.Len() > a.Contracts.Bound() {
		return nil, commit.Errf(commit.ANCHOR_ERR_BOUND_EXCEEDED, "anchor lists %d contracts", a.Contracts.Len())
	}
	sub, ok := a.Contracts.Get(cid)
	if !ok {
		return nil, commit.Errf(commit.ANCHOR_ERR_UNKNOWN_CONTRACT, "contract %s not in anchor", cid)
	}
	proof, err := a.proof()
	if err != nil {
		return nil, err
	}

	bundleRoot, err := sub.BundleRoot(refs)
	if err != nil {
		return nil, err
	}
	msg, err := a.MpcProof.MessageFor(cid)
	if err != nil {
		return nil, err
	}
	if bundleRoot != msg {
		return nil, commit.Errf(commit.ANCHOR_ERR_BUNDLE_MISMATCH,
			"bundles of %s hash to %s, mpc block holds %s", cid, bundleRoot, msg)
	}

	if err := a.MpcProof.Validate(); err != nil {
		return nil, err
	}
	commitment := a.MpcProof.Commitment()
	if err := proof.Verify(commitment, tx); err != nil {
		return nil, err
	}

	return &VerifiedClaim{
		ContractId: cid,
		Bundles:    append([]commit.BundleRef(nil), refs...),
		BundleRoot: bundleRoot,
		MpcRoot:    a.MpcProof.Root,
		Commitment: commitment,
		Method:     proof.Method(),
		Txid:       tx.Txid(),
	}, nil
}

// VerifyTransaction checks only the MPC and DBC layers. It is the check
// that applies to an anchor listing no contracts.
func (a SuperAnchor[D]) VerifyTransaction(tx *bp.Tx) error {
	proof, err := a.proof()
	if err != nil {
		return err
	}
	if err := a.MpcProof.Validate(); err != nil {
		return err
	}
	return proof.Verify(a.MpcProof.Commitment(), tx)
}

// Validate checks the anchor's internal consistency without a transaction:
// the MPC block folds to its root, every listed contract is revealed in it
// and every bundle proof is well formed.
func (a SuperAnchor[D]) Validate() error {
	if _, err := a.proof(); err != nil {
		return err
	}
	if err := a.MpcProof.Validate(); err != nil {
		return err
	}
	return a.Contracts.Each(func(cid commit.ContractId, sub SubAnchor) error {
		if _, err := a.MpcProof.MessageFor(cid); err != nil {
			return err
		}
		return sub.MmbProof.Validate()
	})
}

// Restrict exports the anchor for the listed contracts only. The MPC block
// is concealed so the result reveals nothing about other participants.
func (a SuperAnchor[D]) Restrict(cids ...commit.ContractId) (SuperAnchor[D], error) {
	out := SuperAnchor[D]{DbcProof: a.DbcProof, Contracts: NewContractMap(a.Contracts.Bound())}
	for _, cid := range cids {
		sub, ok := a.Contracts.Get(cid)
		if !ok {
			return SuperAnchor[D]{}, commit.Errf(commit.ANCHOR_ERR_UNKNOWN_CONTRACT, "contract %s not in anchor", cid)
		}
		if _, dup := out.Contracts.Get(cid); dup {
			continue
		}
		if err := out.Contracts.Insert(cid, sub); err != nil {
			return SuperAnchor[D]{}, err
		}
	}
	block, err := a.MpcProof.Conceal(cids...)
	if err != nil {
		return SuperAnchor[D]{}, err
	}
	out.MpcProof = block
	return out, nil
}

// ID content-addresses the anchor by the SHA3-256 of its encoding.
func (a SuperAnchor[D]) ID() (commit.Digest, error) {
	return a.IDWith(crypto.Default)
}

func (a SuperAnchor[D]) IDWith(p crypto.Provider) (commit.Digest, error) {
	enc, err := a.Encode()
	if err != nil {
		return commit.Digest{}, err
	}
	sum, err := p.SHA3_256(enc)
	if err != nil {
		return commit.Digest{}, err
	}
	return commit.Digest(sum), nil
}
