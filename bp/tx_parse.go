package bp

import "seals.dev/anchor/commit"

// ParseTx decodes a complete transaction. Both the legacy and the BIP-144
// segwit layouts are accepted; trailing bytes are an error.
func ParseTx(b []byte) (*Tx, error) {
	cur := commit.NewReader(b)

	version, err := cur.ReadU32LE("version")
	if err != nil {
		return nil, err
	}

	segwit := false
	if cur.Remaining() >= 2 && b[cur.Offset()] == 0x00 {
		flag := b[cur.Offset()+1]
		if flag != 0x01 {
			return nil, commit.Err(commit.ANCHOR_ERR_PARSE, "tx: bad segwit flag")
		}
		if _, err := cur.ReadExact(2, "segwit marker"); err != nil {
			return nil, err
		}
		segwit = true
	}

	inCount, err := cur.ReadCount("input_count", MAX_TX_INPUTS)
	if err != nil {
		return nil, err
	}
	if inCount == 0 {
		return nil, commit.Err(commit.ANCHOR_ERR_PARSE, "tx: no inputs")
	}
	inputs := make([]TxIn, 0, inCount)
	for i := 0; i < inCount; i++ {
		prev, err := cur.ReadDigest("prev_txid")
		if err != nil {
			return nil, err
		}
		vout, err := cur.ReadU32LE("prev_vout")
		if err != nil {
			return nil, err
		}
		scriptSig, err := cur.ReadVarBytes("script_sig", MAX_SCRIPT_BYTES)
		if err != nil {
			return nil, err
		}
		sequence, err := cur.ReadU32LE("sequence")
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, TxIn{
			PrevTxid:  Txid(prev),
			PrevVout:  vout,
			ScriptSig: scriptSig,
			Sequence:  sequence,
		})
	}

	outCount, err := cur.ReadCount("output_count", MAX_TX_OUTPUTS)
	if err != nil {
		return nil, err
	}
	outputs := make([]TxOut, 0, outCount)
	for i := 0; i < outCount; i++ {
		value, err := cur.ReadU64LE("value")
		if err != nil {
			return nil, err
		}
		script, err := cur.ReadVarBytes("script_pubkey", MAX_SCRIPT_BYTES)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, TxOut{Value: value, ScriptPubkey: script})
	}

	if segwit {
		anyWitness := false
		for i := range inputs {
			items, err := cur.ReadCount("witness_count", MAX_WITNESS_ITEMS)
			if err != nil {
				return nil, err
			}
			if items == 0 {
				continue
			}
			anyWitness = true
			stack := make([][]byte, 0, items)
			for j := 0; j < items; j++ {
				item, err := cur.ReadVarBytes("witness_item", MAX_WITNESS_ITEM_LEN)
				if err != nil {
					return nil, err
				}
				stack = append(stack, item)
			}
			inputs[i].Witness = stack
		}
		if !anyWitness {
			return nil, commit.Err(commit.ANCHOR_ERR_PARSE, "tx: segwit marker without witness data")
		}
	}

	locktime, err := cur.ReadU32LE("locktime")
	if err != nil {
		return nil, err
	}
	if err := cur.Finish("tx"); err != nil {
		return nil, err
	}

	return &Tx{
		Version:  version,
		Inputs:   inputs,
		Outputs:  outputs,
		Locktime: locktime,
	}, nil
}
