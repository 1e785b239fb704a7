// Package resolver supplies the witness transactions anchors are checked
// against.
package resolver

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	cache "github.com/patrickmn/go-cache"

	"seals.dev/anchor/bp"
)

// ErrNotFound is returned when no source knows the requested transaction.
var ErrNotFound = errors.New("resolver: transaction not found")

type TxResolver interface {
	ResolveTx(ctx context.Context, txid bp.Txid) (*bp.Tx, error)
}

// DirResolver reads transactions from hex files named <txid>.tx.
type DirResolver struct {
	Dir string
}

func NewDirResolver(dir string) *DirResolver {
	return &DirResolver{Dir: dir}
}

func fileName(txid bp.Txid) string {
	return txid.String() + ".tx"
}

func (d *DirResolver) path(txid bp.Txid) string {
	return filepath.Join(d.Dir, fileName(txid))
}

func (d *DirResolver) ResolveTx(ctx context.Context, txid bp.Txid) (*bp.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := fs.ReadFile(os.DirFS(d.Dir), fileName(txid))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(ErrNotFound, "txid %s", txid)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read tx %s", txid)
	}
	tx, err := bp.ParseTxHex(strings.TrimSpace(string(b)))
	if err != nil {
		return nil, errors.Wrapf(err, "parse tx %s", txid)
	}
	if got := tx.Txid(); got != txid {
		return nil, errors.Newf("file %s holds tx %s", d.path(txid), got)
	}
	return tx, nil
}

// Put writes tx into the directory under its own txid.
func (d *DirResolver) Put(tx *bp.Tx) (bp.Txid, error) {
	txid := tx.Txid()
	if err := os.MkdirAll(d.Dir, 0o750); err != nil {
		return txid, errors.Wrapf(err, "mkdir %s", d.Dir)
	}
	if err := os.WriteFile(d.path(txid), []byte(tx.Hex()+"\n"), 0o600); err != nil {
		return txid, errors.Wrapf(err, "write tx %s", txid)
	}
	return txid, nil
}

const (
	DefaultCacheTTL = 10 * time.Minute
	cleanupInterval = 2 * DefaultCacheTTL
)

// CachedResolver memoizes a slower resolver. Failures are not cached.
type CachedResolver struct {
	next  TxResolver
	ttl   time.Duration
	cache *cache.Cache
}

func NewCachedResolver(next TxResolver, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedResolver{
		next:  next,
		ttl:   ttl,
		cache: cache.New(ttl, cleanupInterval),
	}
}

func (c *CachedResolver) ResolveTx(ctx context.Context, txid bp.Txid) (*bp.Tx, error) {
	key := txid.String()
	if obj, found := c.cache.Get(key); found {
		return obj.(*bp.Tx), nil
	}
	tx, err := c.next.ResolveTx(ctx, txid)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, tx, c.ttl)
	return tx, nil
}

// Flush drops every cached transaction.
func (c *CachedResolver) Flush() {
	c.cache.Flush()
}

// WithTimeout bounds a single resolution.
func WithTimeout(ctx context.Context, r TxResolver, txid bp.Txid, d time.Duration) (*bp.Tx, error) {
	if d <= 0 {
		return r.ResolveTx(ctx, txid)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return r.ResolveTx(ctx, txid)
}
