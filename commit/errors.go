package commit

import "fmt"

type ErrorCode string

const (
	ANCHOR_ERR_PARSE          ErrorCode = "ANCHOR_ERR_PARSE"
	ANCHOR_ERR_BOUND_EXCEEDED ErrorCode = "ANCHOR_ERR_BOUND_EXCEEDED"

	ANCHOR_ERR_MALFORMED_PROOF      ErrorCode = "ANCHOR_ERR_MALFORMED_PROOF"
	ANCHOR_ERR_UNKNOWN_CONTRACT     ErrorCode = "ANCHOR_ERR_UNKNOWN_CONTRACT"
	ANCHOR_ERR_BUNDLE_MISMATCH      ErrorCode = "ANCHOR_ERR_BUNDLE_MISMATCH"
	ANCHOR_ERR_COMMITMENT_MISMATCH  ErrorCode = "ANCHOR_ERR_COMMITMENT_MISMATCH"
	ANCHOR_ERR_TRANSACTION_MISMATCH ErrorCode = "ANCHOR_ERR_TRANSACTION_MISMATCH"
	ANCHOR_ERR_UNSUPPORTED_SCHEME   ErrorCode = "ANCHOR_ERR_UNSUPPORTED_SCHEME"
)

// Sentinels for errors.Is; any *Error with the same code matches.
var (
	ErrParse               = &Error{Code: ANCHOR_ERR_PARSE}
	ErrBoundExceeded       = &Error{Code: ANCHOR_ERR_BOUND_EXCEEDED}
	ErrMalformedProof      = &Error{Code: ANCHOR_ERR_MALFORMED_PROOF}
	ErrUnknownContract     = &Error{Code: ANCHOR_ERR_UNKNOWN_CONTRACT}
	ErrBundleMismatch      = &Error{Code: ANCHOR_ERR_BUNDLE_MISMATCH}
	ErrCommitmentMismatch  = &Error{Code: ANCHOR_ERR_COMMITMENT_MISMATCH}
	ErrTransactionMismatch = &Error{Code: ANCHOR_ERR_TRANSACTION_MISMATCH}
	ErrUnsupportedScheme   = &Error{Code: ANCHOR_ERR_UNSUPPORTED_SCHEME}
)

type Error struct {
	Code ErrorCode
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Is reports whether target is an *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

func Err(code ErrorCode, msg string) error {
	return &Error{Code: code, Msg: msg}
}

func Errf(code ErrorCode, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code of a protocol error, or "" for foreign errors.
func CodeOf(err error) ErrorCode {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
