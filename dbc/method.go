package dbc

import (
	"strings"

	"seals.dev/anchor/bp"
	"seals.dev/anchor/commit"
)

// Method identifies how a commitment is embedded in a transaction.
type Method uint8

const (
	MethodOpret  Method = 0x00
	MethodTapret Method = 0x01
)

func (m Method) String() string {
	switch m {
	case MethodOpret:
		return "opret"
	case MethodTapret:
		return "tapret"
	default:
		return "unknown"
	}
}

// Known reports a method this package implements.
func (m Method) Known() bool {
	return m == MethodOpret || m == MethodTapret
}

func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Method) UnmarshalText(s []byte) error {
	parsed, err := ParseMethod(string(s))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "opret", "opret1st":
		return MethodOpret, nil
	case "tapret", "tapret1st":
		return MethodTapret, nil
	}
	return 0, commit.Errf(commit.ANCHOR_ERR_UNSUPPORTED_SCHEME, "dbc: unknown method %q", s)
}

// Proof binds a commitment to a transaction. The set of implementations is
// closed: OpretProof, TapretProof, and UnknownProof for schemes this
// package cannot check.
type Proof interface {
	Method() Method
	// Verify checks that tx carries commitment under this scheme.
	Verify(commitment commit.Digest, tx *bp.Tx) error
	// Script returns the output script a transaction must contain to carry
	// commitment.
	Script(commitment commit.Digest) ([]byte, error)

	isProof()
}
