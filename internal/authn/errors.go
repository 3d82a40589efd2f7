package authn

import "errors"

// ErrBadCredentials is the only error surface an unauthenticated caller
// may observe for a failed redemption. Every RedemptionError unwraps to
// it, so callers check errors.Is(err, ErrBadCredentials) and return one
// generic message regardless of which step failed.
var ErrBadCredentials = errors.New("authn: invalid credentials")

// RedemptionFailure enumerates the internal reasons a code redemption
// can be rejected. The set is closed; switching over it exhaustively is
// how diagnostics map a failure to its operator-facing label.
type RedemptionFailure int

const (
	CodeExpiredOrInvalid RedemptionFailure = iota
	CodeDataMalformed
	CodeWrongIntent
	ClientIDMissing
	ClientNotFound
	UserNotFound
	ClientMismatch
)

func (f RedemptionFailure) String() string {
	switch f {
	case CodeExpiredOrInvalid:
		return "code_expired_or_invalid"
	case CodeDataMalformed:
		return "code_data_malformed"
	case CodeWrongIntent:
		return "code_wrong_intent"
	case ClientIDMissing:
		return "client_id_missing"
	case ClientNotFound:
		return "client_not_found"
	case UserNotFound:
		return "user_not_found"
	case ClientMismatch:
		return "client_mismatch"
	}
	return "unknown"
}

// RedemptionError carries the internal failure kind. Its message is for
// diagnostics only; the caller-facing condition is ErrBadCredentials
// via Unwrap.
type RedemptionError struct {
	Kind RedemptionFailure
}

func (e *RedemptionError) Error() string {
	return "authn: autologin rejected: " + e.Kind.String()
}

func (e *RedemptionError) Unwrap() error { return ErrBadCredentials }

func redemptionErr(kind RedemptionFailure) *RedemptionError {
	return &RedemptionError{Kind: kind}
}
