// Package auth manages user accounts and sign-in.
//
// Passwords are stored as argon2id hashes in PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=1$<salt>$<sum>
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Params are the argon2id cost parameters used for new hashes. Existing
// hashes are always verified with the parameters they were created with.
type Params struct {
	Memory     uint32 // KiB
	Iterations uint32
	Threads    uint8
	SaltLength uint32
	KeyLength  uint32
}

// DefaultParams are used when no Params are configured.
var DefaultParams = Params{
	Memory:     64 * 1024,
	Iterations: 3,
	Threads:    1,
	SaltLength: 16,
	KeyLength:  32,
}

var errMalformedHash = errors.New("invalid argon2id hash format")

// HashPassword derives a PHC string for password.
func HashPassword(password string, p Params) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	sum := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Threads, p.KeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory, p.Iterations, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// VerifyPassword reports whether password matches the PHC string.
// A malformed hash is an error, not a mismatch.
func VerifyPassword(phc, password string) (bool, error) {
	p, salt, sum, err := parseHash(phc)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Threads, uint32(len(sum)))
	return subtle.ConstantTimeCompare(got, sum) == 1, nil
}

func parseHash(phc string) (Params, []byte, []byte, error) {
	var p Params
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return p, nil, nil, errMalformedHash
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return p, nil, nil, fmt.Errorf("unsupported argon2id version: %s", parts[2])
	}

	params := strings.Split(parts[3], ",")
	if len(params) != 3 {
		return p, nil, nil, errors.New("invalid argon2id params")
	}
	for _, param := range params {
		k, v, ok := strings.Cut(param, "=")
		if !ok {
			return p, nil, nil, errors.New("invalid argon2id params")
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return p, nil, nil, errors.New("invalid argon2id memory")
			}
			p.Memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return p, nil, nil, errors.New("invalid argon2id iterations")
			}
			p.Iterations = uint32(n)
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil {
				return p, nil, nil, errors.New("invalid argon2id parallelism")
			}
			p.Threads = uint8(n)
		default:
			return p, nil, nil, errors.New("invalid argon2id params")
		}
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, errors.New("invalid argon2id salt")
	}
	sum, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(sum) == 0 {
		return p, nil, nil, errors.New("invalid argon2id hash")
	}
	return p, salt, sum, nil
}
