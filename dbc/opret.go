package dbc

import (
	"bytes"

	"seals.dev/anchor/bp"
	"seals.dev/anchor/commit"
)

// OpretProof commits through the first OP_RETURN output of a transaction,
// which must push exactly the 32-byte commitment.
type OpretProof struct{}

func (OpretProof) Method() Method { return MethodOpret }

func (OpretProof) isProof() {}

func (OpretProof) Script(commitment commit.Digest) ([]byte, error) {
	return bp.OpReturnScript(commitment), nil
}

func (p OpretProof) Verify(commitment commit.Digest, tx *bp.Tx) error {
	if tx == nil {
		return commit.Err(commit.ANCHOR_ERR_TRANSACTION_MISMATCH, "opret: no transaction")
	}
	want, _ := p.Script(commitment)
	for i, out := range tx.Outputs {
		if !bp.IsOpReturn(out.ScriptPubkey) {
			continue
		}
		if !bytes.Equal(out.ScriptPubkey, want) {
			return commit.Errf(commit.ANCHOR_ERR_TRANSACTION_MISMATCH, "opret: output %d does not carry the commitment", i)
		}
		return nil
	}
	return commit.Err(commit.ANCHOR_ERR_TRANSACTION_MISMATCH, "opret: no OP_RETURN output")
}
