package auth

// TokenIssuer signs bearer tokens for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// TokenVerifier checks a bearer token and returns its user id.
type TokenVerifier interface {
	Verify(raw string) (string, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Matches(hash, plain string) (bool, error)
}
