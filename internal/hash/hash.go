package hash

import "golang.org/x/crypto/bcrypt"

// dummyHash is compared against when a user record has no credential, so
// that login cost does not reveal whether the username exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("bookstore-dummy"), bcrypt.DefaultCost)

func HashPassword(password string) (string, error) {
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashbytes), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BurnCompare spends one bcrypt comparison and always fails.
func BurnCompare(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
