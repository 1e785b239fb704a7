package bp

import (
	"encoding/binary"

	"seals.dev/anchor/commit"
)

func appendU32le(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

func appendU64le(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

func TxOutBytes(o TxOut) []byte {
	out := make([]byte, 0, 8+9+len(o.ScriptPubkey))
	out = appendU64le(out, o.Value)
	return commit.AppendVarBytes(out, o.ScriptPubkey)
}

func appendInputs(out []byte, inputs []TxIn) []byte {
	out = commit.AppendCompactSize(out, len(inputs))
	for _, in := range inputs {
		out = append(out, in.PrevTxid[:]...)
		out = appendU32le(out, in.PrevVout)
		out = commit.AppendVarBytes(out, in.ScriptSig)
		out = appendU32le(out, in.Sequence)
	}
	return out
}

func appendOutputs(out []byte, outputs []TxOut) []byte {
	out = commit.AppendCompactSize(out, len(outputs))
	for _, o := range outputs {
		out = append(out, TxOutBytes(o)...)
	}
	return out
}

// TxNoWitnessBytes is the serialization committed to by the txid.
func TxNoWitnessBytes(tx *Tx) []byte {
	out := make([]byte, 0, 64)
	out = appendU32le(out, tx.Version)
	out = appendInputs(out, tx.Inputs)
	out = appendOutputs(out, tx.Outputs)
	return appendU32le(out, tx.Locktime)
}

// TxBytes uses the segwit layout only when some input carries witness data.
func TxBytes(tx *Tx) []byte {
	if !tx.HasWitness() {
		return TxNoWitnessBytes(tx)
	}
	out := make([]byte, 0, 128)
	out = appendU32le(out, tx.Version)
	out = append(out, 0x00, 0x01)
	out = appendInputs(out, tx.Inputs)
	out = appendOutputs(out, tx.Outputs)
	for _, in := range tx.Inputs {
		out = commit.AppendCompactSize(out, len(in.Witness))
		for _, item := range in.Witness {
			out = commit.AppendVarBytes(out, item)
		}
	}
	return appendU32le(out, tx.Locktime)
}
