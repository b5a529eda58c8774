// Package domain contains core concepts of the messaging client.
// This file defines User identities, roles and presence.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

type Role string

const (
	RoleOwner  Role = "owner"
	RoleWorker Role = "worker"
)

// User represents a co-worker known to the client.
// ID is assigned remotely and immutable once created. Email is the unique
// login key. IsOnline and LastSeen are volatile presence fields owned by
// remote observation.
type User struct {
	ID          string
	Email       string
	FirstName   string
	LastName    string
	DisplayName string
	Role        Role
	IsOnline    bool
	LastSeen    time.Time
}

// Label returns the name shown in conversation headers and rosters.
// DisplayName overrides the first name for presentation only, it plays
// no part in addressing or uniqueness.
func (u User) Label() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.FirstName
}

func (u User) IsOwner() bool {
	return u.Role == RoleOwner
}

// WithPresence returns a copy carrying the remotely observed presence.
// Presence is taken verbatim: the remote is the sole source of truth and
// local optimism never applies to these two fields.
func (u User) WithPresence(online bool, lastSeen time.Time) User {
	u.IsOnline = online
	u.LastSeen = lastSeen
	return u
}
