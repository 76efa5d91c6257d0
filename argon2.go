package identity

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2ID = "argon2id"

// Argon2Params tunes argon2id hashing
type Argon2Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params follows the RFC 9106 second recommended option
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2Hasher hashes passwords with argon2id into PHC strings
type Argon2Hasher struct {
	params Argon2Params
}

func NewArgon2Hasher(params Argon2Params) *Argon2Hasher {
	def := DefaultArgon2Params()
	if params.Memory == 0 {
		params.Memory = def.Memory
	}
	if params.Time == 0 {
		params.Time = def.Time
	}
	if params.Parallelism == 0 {
		params.Parallelism = def.Parallelism
	}
	if params.SaltLength == 0 {
		params.SaltLength = def.SaltLength
	}
	if params.KeyLength == 0 {
		params.KeyLength = def.KeyLength
	}
	return &Argon2Hasher{params: params}
}

// HashPassword returns $argon2id$v=19$m=...,t=...,p=...$salt$hash
func (a *Argon2Hasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	salt := make([]byte, a.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", internalError(err, "failed to read salt")
	}

	key := argon2.IDKey([]byte(password), salt, a.params.Time, a.params.Memory, a.params.Parallelism, a.params.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2ID,
		argon2.Version,
		a.params.Memory,
		a.params.Time,
		a.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// ComparePasswordAndHash recomputes the key with the digest parameters and
// compares in constant time.
func (a *Argon2Hasher) ComparePasswordAndHash(password, hash string) error {
	parsed, err := parseArgon2Digest(hash)
	if err != nil {
		return err
	}

	computed := argon2.IDKey([]byte(password), parsed.salt, parsed.params.Time, parsed.params.Memory, parsed.params.Parallelism, uint32(len(parsed.key)))
	if subtle.ConstantTimeCompare(computed, parsed.key) != 1 {
		return ErrMismatchedHashAndPassword
	}
	return nil
}

type argon2Digest struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

func isArgon2Digest(hash string) bool {
	return strings.HasPrefix(hash, "$"+argon2ID+"$")
}

func parseArgon2Digest(hash string) (argon2Digest, error) {
	var out argon2Digest

	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != argon2ID {
		return out, malformedDigest("unexpected segment count")
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version {
		return out, malformedDigest("unsupported version")
	}

	for _, kv := range strings.Split(parts[3], ",") {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return out, malformedDigest("bad parameter")
		}
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return out, malformedDigest("bad parameter value")
		}
		switch name {
		case "m":
			out.params.Memory = uint32(n)
		case "t":
			out.params.Time = uint32(n)
		case "p":
			if n > 255 {
				return out, malformedDigest("parallelism out of range")
			}
			out.params.Parallelism = uint8(n)
		default:
			return out, malformedDigest("unknown parameter " + name)
		}
	}

	if out.params.Memory == 0 || out.params.Time == 0 || out.params.Parallelism == 0 {
		return out, malformedDigest("missing parameter")
	}

	if out.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return out, malformedDigest("bad salt")
	}
	if out.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(out.key) == 0 {
		return out, malformedDigest("bad key")
	}

	return out, nil
}

func malformedDigest(reason string) error {
	return newError(ErrUnknownDigest, map[string]any{"reason": reason, "algorithm": argon2ID})
}
