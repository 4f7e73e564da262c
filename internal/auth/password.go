package auth

import "golang.org/x/crypto/bcrypt"

const (
	// MinPasswordLength is the shortest password accepted at registration.
	MinPasswordLength = 6
	// MaxPasswordBytes is the longest input bcrypt will hash.
	MaxPasswordBytes = 72
)

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
