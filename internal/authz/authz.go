// Package authz contains the authorization decision functions. Both are
// pure: no I/O, no hidden state. Whether a token maps to a live session is
// the session registry's concern; this package only answers whether an
// already-resolved identity (or its absence) may see a resource.
package authz

import "fmt"

// Tier is the ordered administrative level attached to an identity.
// RegisteredUser < Administrator < SuperUser. The zero value is
// RegisteredUser, the lowest tier.
type Tier int

const (
	RegisteredUser Tier = iota
	Administrator
	SuperUser
)

// tierNames maps tiers to their storage/display names.
var tierNames = map[Tier]string{
	RegisteredUser: "registered",
	Administrator:  "administrator",
	SuperUser:      "superuser",
}

// String returns the tier's storage name, or "registered" for out-of-range
// values.
func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return tierNames[RegisteredUser]
}

// Valid reports whether t is one of the defined tiers.
func (t Tier) Valid() bool {
	_, ok := tierNames[t]
	return ok
}

// AtLeast reports whether t meets or exceeds the required tier.
func (t Tier) AtLeast(required Tier) bool {
	return t >= required
}

// ParseTier converts a storage name back into a Tier. Unknown names are an
// error rather than a silent downgrade.
func ParseTier(name string) (Tier, error) {
	for t, n := range tierNames {
		if n == name {
			return t, nil
		}
	}
	return RegisteredUser, fmt.Errorf("authz: unknown tier %q", name)
}

// Actor is a resolved identity as seen by the decision functions. Callers
// build one from their user record after session resolution; a nil *Actor
// means the caller is anonymous (no token, or an unknown/expired session --
// the two are equivalent here by design).
type Actor struct {
	UserID string
	Tier   Tier
}

// Authorized decides forum/resource visibility. An empty whitelist makes
// the resource public, readable even anonymously. A non-empty whitelist
// makes it private: only listed users and actors at Administrator tier or
// above get through, and anonymous callers are always denied.
func Authorized(whitelist []string, actor *Actor) bool {
	if len(whitelist) == 0 {
		return true
	}
	if actor == nil {
		return false
	}
	if actor.Tier.AtLeast(Administrator) {
		return true
	}
	for _, id := range whitelist {
		if id == actor.UserID {
			return true
		}
	}
	return false
}

// HasTier is the administrative gate: true iff the actor is present and at
// or above the required tier.
func HasTier(actor *Actor, required Tier) bool {
	return actor != nil && actor.Tier.AtLeast(required)
}
