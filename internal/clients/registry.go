// Package clients exposes the OAuth client registry to the
// authentication core. Only existence within a zone is consulted here;
// client configuration belongs to the authorization layer.
package clients

import "context"

// Registry answers whether a client id is registered in a zone.
type Registry interface {
	Exists(ctx context.Context, clientID, zoneID string) (bool, error)
}
