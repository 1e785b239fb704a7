package anchor

import (
	"context"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"seals.dev/anchor/bp"
	"seals.dev/anchor/commit"
	"seals.dev/anchor/dbc"
)

// Verifier applies local policy on top of Verify: which DBC schemes are
// acceptable and how many contracts an anchor may list.
type Verifier struct {
	Methods      []dbc.Method
	MaxContracts int
}

func NewVerifier(methods ...dbc.Method) *Verifier {
	if len(methods) == 0 {
		methods = []dbc.Method{dbc.MethodOpret, dbc.MethodTapret}
	}
	return &Verifier{Methods: methods, MaxContracts: MaxContracts}
}

func (v *Verifier) check(a Anchor) error {
	bound := v.MaxContracts
	if bound <= 0 || bound > MaxContracts {
		bound = MaxContracts
	}
	if a.Contracts.Len() > bound {
		return commit.Errf(commit.ANCHOR_ERR_BOUND_EXCEEDED, "anchor lists %d contracts, limit %d", a.Contracts.Len(), bound)
	}
	if err := dbc.CheckProof(a.DbcProof); err != nil {
		return err
	}
	if !slices.Contains(v.Methods, a.DbcProof.Method()) {
		return commit.Errf(commit.ANCHOR_ERR_UNSUPPORTED_SCHEME, "scheme %s not accepted", a.DbcProof.Method())
	}
	return nil
}

func (v *Verifier) Verify(a Anchor, cid commit.ContractId, refs []commit.BundleRef, tx *bp.Tx) (*VerifiedClaim, error) {
	if err := v.check(a); err != nil {
		return nil, err
	}
	return a.Verify(cid, refs, tx)
}

func (v *Verifier) VerifyTransaction(a Anchor, tx *bp.Tx) error {
	if err := v.check(a); err != nil {
		return err
	}
	return a.VerifyTransaction(tx)
}

// Claim asks whether Bundles of ContractId are anchored by Tx.
type Claim struct {
	Anchor     Anchor
	ContractId commit.ContractId
	Bundles    []commit.BundleRef
	Tx         *bp.Tx
}

type Result struct {
	Claim *VerifiedClaim
	Err   error
}

// VerifyAll checks independent claims in parallel. Each claim gets its own
// result; the returned error is only set when ctx is cancelled.
func (v *Verifier) VerifyAll(ctx context.Context, claims []Claim) ([]Result, error) {
	results := make([]Result, len(claims))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range claims {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c := claims[i]
			vc, err := v.Verify(c.Anchor, c.ContractId, c.Bundles, c.Tx)
			results[i] = Result{Claim: vc, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
