package identity

import (
	"sync"

	"github.com/google/uuid"
)

// fallbackDummyHash is a bcrypt digest of a discarded secret, used when the
// configured algorithm cannot produce a dummy digest.
const fallbackDummyHash = "$2b$10$JUiqh8YG/Tw4ffkzhS0i4OlSRB0NLYUxPmGnQtr.HKuOsxDZJw0sW"

// PasswordHasher hashes with the configured algorithm and verifies any digest
// it recognises, so the algorithm can change without invalidating accounts.
type PasswordHasher struct {
	primary PasswordAuthenticator
	bcrypt  BcryptHasher
	argon2  *Argon2Hasher

	dummyOnce sync.Once
	dummy     string
}

// NewPasswordHasher builds the hasher selected by cfg.PasswordAlgorithm
func NewPasswordHasher(cfg Config) *PasswordHasher {
	h := &PasswordHasher{
		bcrypt: BcryptHasher{Cost: cfg.BcryptCost},
		argon2: NewArgon2Hasher(Argon2Params{}),
	}
	switch cfg.PasswordAlgorithm {
	case PasswordAlgorithmArgon2id:
		h.primary = h.argon2
	default:
		h.primary = h.bcrypt
	}
	return h
}

// HashPassword hashes with the configured algorithm
func (h *PasswordHasher) HashPassword(password string) (string, error) {
	return h.primary.HashPassword(password)
}

// ComparePasswordAndHash selects the algorithm from the digest prefix
func (h *PasswordHasher) ComparePasswordAndHash(password, hash string) error {
	switch {
	case isArgon2Digest(hash):
		return h.argon2.ComparePasswordAndHash(password, hash)
	case isBcryptDigest(hash):
		return h.bcrypt.ComparePasswordAndHash(password, hash)
	default:
		return newError(ErrUnknownDigest, nil)
	}
}

// DummyHash returns a digest of a random secret, computed once. Comparing
// against it costs the same as a real comparison.
func (h *PasswordHasher) DummyHash() string {
	h.dummyOnce.Do(func() {
		digest, err := h.primary.HashPassword(uuid.NewString())
		if err != nil {
			digest = fallbackDummyHash
		}
		h.dummy = digest
	})
	return h.dummy
}
