package crypto

// Provider is the narrow hashing interface used to content-address encoded
// anchors.
type Provider interface {
	SHA3_256(input []byte) ([32]byte, error)
}

// Default is used when callers do not inject their own provider.
var Default Provider = StdProvider{}
