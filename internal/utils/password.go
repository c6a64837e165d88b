package utils

import "golang.org/x/crypto/bcrypt"

// Member passwords are stored as bcrypt hashes.  The cost comes from
// BCRYPT_COST so operators can trade login latency against hardness.

// HashPassword hashes a member's password with the given cost.  A cost
// below the library minimum falls back to the default cost so a
// misconfigured deployment cannot silently weaken new hashes.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored hash, in
// constant time via bcrypt's own comparison.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
