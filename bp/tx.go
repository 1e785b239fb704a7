package bp

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"seals.dev/anchor/commit"
)

const (
	MAX_TX_INPUTS        = 1 << 16
	MAX_TX_OUTPUTS       = 1 << 16
	MAX_SCRIPT_BYTES     = 10_000
	MAX_WITNESS_ITEMS    = 1 << 12
	MAX_WITNESS_ITEM_LEN = 4_000_000
)

type Tx struct {
	Version  uint32
	Inputs   []TxIn
	Outputs  []TxOut
	Locktime uint32
}

type TxIn struct {
	PrevTxid  Txid
	PrevVout  uint32
	ScriptSig []byte
	Sequence  uint32
	Witness   [][]byte
}

type TxOut struct {
	Value        uint64
	ScriptPubkey []byte
}

// Txid is stored in internal byte order and printed reversed, the way
// Bitcoin tooling displays it.
type Txid [32]byte

func (id Txid) String() string {
	return chainhash.Hash(id).String()
}

func (id Txid) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *Txid) UnmarshalText(s []byte) error {
	parsed, err := ParseTxid(string(s))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func ParseTxid(s string) (Txid, error) {
	var id Txid
	if len(s) != 64 {
		return id, commit.Errf(commit.ANCHOR_ERR_PARSE, "txid: want 64 hex chars, got %d", len(s))
	}
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return id, commit.Errf(commit.ANCHOR_ERR_PARSE, "txid: %v", err)
	}
	return Txid(*h), nil
}

func (tx *Tx) HasWitness() bool {
	for _, in := range tx.Inputs {
		if len(in.Witness) != 0 {
			return true
		}
	}
	return false
}

// Txid hashes the witness-stripped serialization.
func (tx *Tx) Txid() Txid {
	return Txid(chainhash.DoubleHashH(TxNoWitnessBytes(tx)))
}

func (tx *Tx) Hex() string {
	return hex.EncodeToString(TxBytes(tx))
}

func ParseTxHex(s string) (*Tx, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, commit.Errf(commit.ANCHOR_ERR_PARSE, "tx hex: %v", err)
	}
	return ParseTx(b)
}
