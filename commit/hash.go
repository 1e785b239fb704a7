package commit

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Protocol tags. Changing any of them breaks compatibility with every
// anchor committed so far.
var (
	TagMmbLeaf       = []byte("urn:lnp-bp:mmb:bundle#2024-11-18")
	TagMmbNode       = []byte("urn:lnp-bp:mmb:node#2024-11-18")
	TagMpcLeaf       = []byte("urn:lnp-bp:mpc:leaf#2024-01-31")
	TagMpcNode       = []byte("urn:ubideco:merkle:node#2024-01-31")
	TagMpcPosition   = []byte("urn:lnp-bp:mpc:pos#2024-01-31")
	TagMpcCommitment = []byte("urn:lnp-bp:mpc:commitment#2024-01-31")
)

// TaggedHash computes sha256(sha256(tag) || sha256(tag) || msgs...).
func TaggedHash(tag []byte, msgs ...[]byte) Digest {
	return Digest(*chainhash.TaggedHash(tag, msgs...))
}

func U16LE(v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return b[:]
}

func U32LE(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func U64LE(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}
