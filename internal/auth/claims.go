package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is the request-scoped decoded identity: the user id plus the role
// set snapshotted into the access token at issuance. It is stale by design —
// a role change takes effect on the holder's next login or refresh. Anything
// that must see live state (permission guards) queries the database by
// UserID instead of trusting this snapshot.
type Identity struct {
	UserID uuid.UUID
	Roles  []string
}

// HasRole checks the role snapshot carried by the access token
func (id Identity) HasRole(name string) bool {
	for _, r := range id.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// AccessClaims is the signed payload of an access token: a {userId, roles}
// snapshot at issuance time. Verification is stateless.
type AccessClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Identity converts verified claims into the request identity
func (c *AccessClaims) Identity() (Identity, error) {
	uid, err := uuid.Parse(c.Subject)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: uid, Roles: c.Roles}, nil
}
