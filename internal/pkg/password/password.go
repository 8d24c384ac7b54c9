package password

import "golang.org/x/crypto/bcrypt"

// bcrypt ignores input beyond 72 bytes, so longer passwords are rejected
// up front instead of silently truncated.
const maxLen = 72

const hashCost = bcrypt.DefaultCost

var ErrTooLong = bcrypt.ErrPasswordTooLong

func Hash(plain string) (string, error) {
	if len(plain) > maxLen {
		return "", ErrTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), hashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify returns nil when plain matches the stored hash.
func Verify(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
