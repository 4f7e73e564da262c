package domain

// Principal is the caller resolved from a verified access token.
type Principal struct {
	IdentityID int64
	Role       Role
}
