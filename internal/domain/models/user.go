// File: internal/domain/models/user.go
package models

import "time"

// User is the account record the auth core needs. Household membership lives
// with the household service; the grants here are a denormalized snapshot
// refreshed at token-issue time.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	MFASecret    string
	MFAConfirmed bool
	Households   []HouseholdGrant
	CreatedAt    time.Time
}

// TokenSnapshot projects the user into the form embedded in access/ID tokens.
func (u User) TokenSnapshot() TokenUser {
	return TokenUser{
		ID:         u.ID,
		Email:      u.Email,
		Households: u.Households,
	}
}
