package store

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	bolt "go.etcd.io/bbolt"

	"seals.dev/anchor/anchor"
	"seals.dev/anchor/bp"
	"seals.dev/anchor/commit"
	"seals.dev/anchor/crypto"
)

var (
	bucketAnchors   = []byte("anchors_by_id")
	bucketByTxid    = []byte("anchor_id_by_txid")
	bucketContracts = []byte("anchor_id_by_contract")
)

// ErrNotFound is returned by lookups that find nothing.
var ErrNotFound = errors.New("store: not found")

// Record is one archived anchor together with the transaction it is bound
// to.
type Record struct {
	ID     commit.Digest
	Txid   bp.Txid
	Anchor anchor.Anchor
}

type DB struct {
	db       *bolt.DB
	provider crypto.Provider
	log      *slog.Logger
}

type Option func(*DB)

func WithLogger(l *slog.Logger) Option {
	return func(d *DB) {
		if l != nil {
			d.log = l
		}
	}
}

func WithProvider(p crypto.Provider) Option {
	return func(d *DB) {
		if p != nil {
			d.provider = p
		}
	}
}

func Open(datadir string, opts ...Option) (*DB, error) {
	if datadir == "" {
		return nil, errors.New("datadir required")
	}

	dir := AnchorsDir(datadir)
	if err := ensureDir(filepath.Join(dir, "db")); err != nil {
		return nil, err
	}
	m, err := loadManifest(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", dir)
	}

	bdb, err := bolt.Open(DBPath(datadir), 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open bbolt")
	}

	d := &DB{db: bdb, provider: crypto.Default, log: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketAnchors, bucketByTxid, bucketContracts} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return errors.Wrapf(err, "create bucket %s", string(b))
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}

	d.log.Debug("anchor store opened", "path", DBPath(datadir), "schema_version", m.SchemaVersion)
	return d, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func contractKey(cid commit.ContractId, txid bp.Txid) []byte {
	key := make([]byte, 0, 64)
	key = append(key, cid[:]...)
	return append(key, txid[:]...)
}

// PutAnchor archives an anchor bound to txid and indexes it by every
// contract it lists. Storing the same anchor twice is a no-op; storing a
// different anchor for a txid that already has one fails. Anchors that do
// not validate are never archived.
func (d *DB) PutAnchor(a anchor.Anchor, txid bp.Txid) (commit.Digest, error) {
	if err := a.Validate(); err != nil {
		return commit.Digest{}, errors.Wrap(err, "put anchor")
	}
	enc, err := a.Encode()
	if err != nil {
		return commit.Digest{}, errors.Wrap(err, "encode anchor")
	}
	id, err := a.IDWith(d.provider)
	if err != nil {
		return commit.Digest{}, errors.Wrap(err, "anchor id")
	}

	value := make([]byte, 0, len(txid)+len(enc))
	value = append(value, txid[:]...)
	value = append(value, enc...)

	err = d.db.Update(func(tx *bolt.Tx) error {
		byTxid := tx.Bucket(bucketByTxid)
		if prev := byTxid.Get(txid[:]); prev != nil {
			if bytes.Equal(prev, id[:]) {
				return nil
			}
			return errors.Newf("txid %s already anchors %x", txid, prev)
		}
		if err := tx.Bucket(bucketAnchors).Put(id[:], value); err != nil {
			return err
		}
		if err := byTxid.Put(txid[:], id[:]); err != nil {
			return err
		}
		byContract := tx.Bucket(bucketContracts)
		for _, cid := range a.Contracts.Ids() {
			if err := byContract.Put(contractKey(cid, txid), id[:]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return commit.Digest{}, errors.Wrap(err, "put anchor")
	}
	d.log.Debug("anchor stored", "id", id.String(), "txid", txid.String(), "contracts", a.Contracts.Len())
	return id, nil
}

func decodeRecord(id []byte, v []byte) (Record, error) {
	var r Record
	if len(v) < len(r.Txid) {
		return r, errors.Newf("anchor %x: truncated record", id)
	}
	copy(r.ID[:], id)
	copy(r.Txid[:], v[:len(r.Txid)])
	a, err := anchor.Decode(v[len(r.Txid):])
	if err != nil {
		return r, errors.Wrapf(err, "anchor %x", id)
	}
	r.Anchor = a
	return r, nil
}

func (d *DB) GetAnchor(id commit.Digest) (Record, error) {
	var out Record
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketAnchors).Get(id[:])
		if v == nil {
			return errors.Wrapf(ErrNotFound, "anchor %s", id)
		}
		r, err := decodeRecord(id[:], v)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

func (d *DB) AnchorByTxid(txid bp.Txid) (Record, error) {
	var id commit.Digest
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketByTxid).Get(txid[:])
		if v == nil {
			return errors.Wrapf(ErrNotFound, "txid %s", txid)
		}
		copy(id[:], v)
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return d.GetAnchor(id)
}

// ContractAnchors lists every archived anchor that commits to cid, ordered
// by txid.
func (d *DB) ContractAnchors(cid commit.ContractId) ([]Record, error) {
	var out []Record
	err := d.db.View(func(tx *bolt.Tx) error {
		anchors := tx.Bucket(bucketAnchors)
		c := tx.Bucket(bucketContracts).Cursor()
		for k, v := c.Seek(cid[:]); k != nil && bytes.HasPrefix(k, cid[:]); k, v = c.Next() {
			raw := anchors.Get(v)
			if raw == nil {
				return errors.Newf("contract index points at missing anchor %x", v)
			}
			r, err := decodeRecord(v, raw)
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

// List returns every archived anchor ordered by id.
func (d *DB) List() ([]Record, error) {
	var out []Record
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAnchors).ForEach(func(k, v []byte) error {
			r, err := decodeRecord(k, v)
			if err != nil {
				return err
			}
			out = append(out, r)
			return nil
		})
	})
	return out, err
}
