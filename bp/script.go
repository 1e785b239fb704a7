package bp

const (
	OP_0             = 0x00
	OP_PUSHBYTES_32  = 0x20
	OP_PUSHBYTES_33  = 0x21
	OP_RESERVED      = 0x50
	OP_1             = 0x51
	OP_RETURN        = 0x6a
	p2trScriptLen    = 34
	opReturn32Length = 34
)

func IsOpReturn(script []byte) bool {
	return len(script) > 0 && script[0] == OP_RETURN
}

// IsP2TR reports a segwit v1 output with a 32-byte program.
func IsP2TR(script []byte) bool {
	return len(script) == p2trScriptLen && script[0] == OP_1 && script[1] == OP_PUSHBYTES_32
}

func TaprootProgram(script []byte) ([]byte, bool) {
	if !IsP2TR(script) {
		return nil, false
	}
	return script[2:], true
}

// OpReturnScript builds OP_RETURN OP_PUSHBYTES_32 <data>.
func OpReturnScript(data [32]byte) []byte {
	out := make([]byte, 0, opReturn32Length)
	out = append(out, OP_RETURN, OP_PUSHBYTES_32)
	return append(out, data[:]...)
}

func P2TRScript(outputKey [32]byte) []byte {
	out := make([]byte, 0, p2trScriptLen)
	out = append(out, OP_1, OP_PUSHBYTES_32)
	return append(out, outputKey[:]...)
}
