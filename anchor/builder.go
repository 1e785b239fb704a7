package anchor

import (
	"context"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"seals.dev/anchor/commit"
	"seals.dev/anchor/dbc"
	"seals.dev/anchor/mmb"
	"seals.dev/anchor/mpc"
)

type BuilderOption func(*Builder)

func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// WithEntropy fixes the MPC entropy. Reproducible fixtures only.
func WithEntropy(e uint64) BuilderOption {
	return func(b *Builder) { b.mpcOpts = append(b.mpcOpts, mpc.WithEntropy(e)) }
}

func WithMinDepth(d uint8) BuilderOption {
	return func(b *Builder) { b.mpcOpts = append(b.mpcOpts, mpc.WithMinDepth(d)) }
}

func WithMaxContracts(n int) BuilderOption {
	return func(b *Builder) { b.bound = n }
}

// Builder aggregates the bundles of many contracts into one anchor. It is
// safe for concurrent AddContract calls.
type Builder struct {
	mu        sync.Mutex
	contracts map[commit.ContractId][]commit.BundleRef
	bound     int
	mpcOpts   []mpc.Option
	log       *slog.Logger
}

func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		contracts: make(map[commit.ContractId][]commit.BundleRef),
		bound:     MaxContracts,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.bound <= 0 || b.bound > MaxContracts {
		b.bound = MaxContracts
	}
	return b
}

// AddContract queues bundle refs for a contract. Adding the same contract
// again extends its bundle set.
func (b *Builder) AddContract(cid commit.ContractId, refs ...commit.BundleRef) error {
	if len(refs) == 0 {
		return commit.Errf(commit.ANCHOR_ERR_MALFORMED_PROOF, "contract %s: no bundles", cid)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.contracts[cid]; !ok && len(b.contracts) >= b.bound {
		return commit.Errf(commit.ANCHOR_ERR_BOUND_EXCEEDED, "more than %d contracts", b.bound)
	}
	b.contracts[cid] = append(b.contracts[cid], refs...)
	return nil
}

func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.contracts)
}

// Built is the output of a build: the anchor, the tree it was cut from and
// the output script the transaction must include.
type Built struct {
	Anchor Anchor
	Tree   *mpc.MerkleTree
	Script []byte
}

// Build commits every queued contract under proof. Bundle trees are built
// in parallel; the MPC tree is folded once all of them are done.
func (b *Builder) Build(ctx context.Context, proof dbc.Proof) (*Built, error) {
	if err := dbc.CheckProof(proof); err != nil {
		return nil, err
	}

	b.mu.Lock()
	cids := make([]commit.ContractId, 0, len(b.contracts))
	for cid := range b.contracts {
		cids = append(cids, cid)
	}
	slices.SortFunc(cids, commit.ContractId.Compare)
	refs := make([][]commit.BundleRef, len(cids))
	for i, cid := range cids {
		refs[i] = slices.Clone(b.contracts[cid])
	}
	b.mu.Unlock()

	subs := make([]SubAnchor, len(cids))
	roots := make([]commit.Digest, len(cids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range cids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tree, err := mmb.Commit(refs[i])
			if err != nil {
				return err
			}
			p, err := tree.Prove()
			if err != nil {
				return err
			}
			subs[i] = SubAnchor{MmbProof: p}
			roots[i] = tree.Root()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	messages := make(map[commit.ContractId]commit.Digest, len(cids))
	contracts := NewContractMap(b.bound)
	for i, cid := range cids {
		messages[cid] = roots[i]
		if err := contracts.Insert(cid, subs[i]); err != nil {
			return nil, err
		}
	}
	tree, err := mpc.Build(messages, b.mpcOpts...)
	if err != nil {
		return nil, err
	}
	script, err := proof.Script(tree.Commitment())
	if err != nil {
		return nil, err
	}

	b.log.Debug("anchor built",
		"contracts", len(cids),
		"depth", tree.Depth(),
		"cofactor", tree.Cofactor(),
		"method", proof.Method().String(),
	)
	return &Built{
		Anchor: Anchor{MpcProof: tree.Block(), DbcProof: proof, Contracts: contracts},
		Tree:   tree,
		Script: script,
	}, nil
}
