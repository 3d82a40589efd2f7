package audit

import "time"

// EventType discriminates authentication trail entries. The lockout
// evaluator only cares about the success/failure pair it is configured
// with; the remaining categories exist so that the same trail serves
// user login, client credential login and operator actions.
type EventType string

const (
	UserAuthenticationSuccess      EventType = "user_authentication_success"
	UserAuthenticationFailure      EventType = "user_authentication_failure"
	ClientAuthenticationSuccess    EventType = "client_authentication_success"
	ClientAuthenticationFailure    EventType = "client_authentication_failure"
	PrincipalAuthenticationFailure EventType = "principal_authentication_failure"
	UserAccountUnlocked            EventType = "user_account_unlocked"
)

// Event is an immutable, append-only record of one authentication attempt.
type Event struct {
	ID             string
	PrincipalID    string
	Type           EventType
	Origin         string
	Data           string
	IdentityZoneID string
	OccurredAt     time.Time
}

// IsFailure reports whether the event is any of the failure categories.
func (e Event) IsFailure() bool {
	switch e.Type {
	case UserAuthenticationFailure, ClientAuthenticationFailure, PrincipalAuthenticationFailure:
		return true
	}
	return false
}
