package auth

import "golang.org/x/crypto/bcrypt"

// BcryptVerifier compares bcrypt hashes with plaintext passwords.
type BcryptVerifier struct{}

// Compare returns nil when password matches hashedPassword.
func (BcryptVerifier) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
