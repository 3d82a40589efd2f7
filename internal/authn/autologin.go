package authn

import (
	"context"
	"encoding/json"
	"errors"

	"idzone.org/internal/audit"
	"idzone.org/internal/clients"
	"idzone.org/internal/codestore"
	"idzone.org/internal/obs"
	"idzone.org/internal/users"
)

// StandardUserAuthorities is the fixed authority set granted to every
// principal minted through autologin. The redeemed code carries no
// authority information of its own.
var StandardUserAuthorities = []string{"zone.user"}

// Principal is the result of a successful code redemption. It is a
// terminal credential: the holder is already authenticated and must not
// be re-challenged. It is constructed fresh per redemption and never
// persisted.
type Principal struct {
	UserID         string
	Username       string
	IdentityZoneID string
	ClientID       string
	Authorities    []string
}

// Autologin redeems single-use codes into authenticated principals.
type Autologin struct {
	codes   codestore.Store
	clients clients.Registry
	users   users.Directory
}

// NewAutologin constructs the resolver from its three collaborators.
func NewAutologin(codes codestore.Store, reg clients.Registry, dir users.Directory) *Autologin {
	return &Autologin{codes: codes, clients: reg, users: dir}
}

// Redeem exchanges a code for a Principal. presentedClientID comes from
// the caller's request context, independent of the code payload; it
// must match the client the code was issued for, which stops a code
// captured by one client from being replayed through another.
//
// Any rejection unwraps to ErrBadCredentials; the precise
// RedemptionFailure kind goes to diagnostics only. Errors from the
// backing stores themselves (unreachable database and the like) are
// returned as-is, since they are not credential failures.
func (a *Autologin) Redeem(ctx context.Context, zoneID, code, presentedClientID string) (*Principal, error) {
	if code == "" {
		return nil, a.reject(ctx, zoneID, CodeExpiredOrInvalid)
	}

	expiring, err := a.codes.RedeemOnce(ctx, code, zoneID)
	if err != nil {
		if errors.Is(err, codestore.ErrNotFound) {
			return nil, a.reject(ctx, zoneID, CodeExpiredOrInvalid)
		}
		return nil, err
	}

	var data map[string]string
	if err := json.Unmarshal([]byte(expiring.Data), &data); err != nil {
		return nil, a.reject(ctx, zoneID, CodeDataMalformed)
	}

	// Two issuance paths are still live: newer codes tag the intent
	// field, older ones put the action inside the payload. Accept
	// either, but both must name autologin.
	if !isAutologinCode(expiring.Intent, data["action"]) {
		return nil, a.reject(ctx, zoneID, CodeWrongIntent)
	}

	userID := data["user_id"]
	clientID := data["client_id"]
	if clientID == "" {
		return nil, a.reject(ctx, zoneID, ClientIDMissing)
	}

	exists, err := a.clients.Exists(ctx, clientID, zoneID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, a.reject(ctx, zoneID, ClientNotFound)
	}

	user, err := a.users.FindByID(ctx, userID, zoneID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, a.reject(ctx, zoneID, UserNotFound)
		}
		return nil, err
	}

	if presentedClientID != clientID {
		return nil, a.reject(ctx, zoneID, ClientMismatch)
	}

	obs.ObserveAutologin("success")
	return &Principal{
		UserID:         user.ID,
		Username:       user.Username,
		IdentityZoneID: zoneID,
		ClientID:       clientID,
		Authorities:    append([]string(nil), StandardUserAuthorities...),
	}, nil
}

func (a *Autologin) reject(ctx context.Context, zoneID string, kind RedemptionFailure) error {
	obs.ObserveAutologin(kind.String())
	_ = audit.LogEvent(ctx, "authn.autologin.rejected", map[string]any{
		"kind":             kind.String(),
		"identity_zone_id": zoneID,
	})
	return redemptionErr(kind)
}

func isAutologinCode(intent codestore.Intent, action string) bool {
	return intent == codestore.IntentAutologin || action == string(codestore.IntentAutologin)
}
