package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	SchemeBcrypt   = "bcrypt"
	SchemeArgon2id = "argon2id"

	bcryptMaxPasswordBytes = 72
)

// Argon2Params are the argon2id work factors written into every new digest.
type Argon2Params struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

var DefaultArgon2Params = Argon2Params{
	Memory:  64 * 1024,
	Time:    1,
	Threads: 4,
	SaltLen: 16,
	KeyLen:  32,
}

// PasswordHasher produces self-describing digests. Hash uses the configured
// scheme; Verify accepts a digest of any supported scheme, so switching
// PASSWORD_SCHEME does not lock out existing users.
type PasswordHasher struct {
	scheme     string
	bcryptCost int
	argon2     Argon2Params
}

func NewPasswordHasher(scheme string, bcryptCost int) (*PasswordHasher, error) {
	scheme = strings.ToLower(strings.TrimSpace(scheme))
	if scheme == "" {
		scheme = SchemeBcrypt
	}
	if scheme != SchemeBcrypt && scheme != SchemeArgon2id {
		return nil, fmt.Errorf("auth: unsupported password scheme %q", scheme)
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("auth: bcrypt cost %d out of range [%d, %d]", bcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &PasswordHasher{
		scheme:     scheme,
		bcryptCost: bcryptCost,
		argon2:     DefaultArgon2Params,
	}, nil
}

func (h *PasswordHasher) Scheme() string {
	return h.scheme
}

func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("auth: empty password")
	}
	switch h.scheme {
	case SchemeArgon2id:
		return h.hashArgon2(plaintext)
	default:
		if len(plaintext) > bcryptMaxPasswordBytes {
			return "", ErrPasswordTooLong
		}
		digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.bcryptCost)
		if err != nil {
			return "", fmt.Errorf("auth: bcrypt: %w", err)
		}
		return string(digest), nil
	}
}

// Verify reports whether plaintext matches digest. Malformed or unknown
// digests never match.
func (h *PasswordHasher) Verify(plaintext, digest string) bool {
	switch {
	case strings.HasPrefix(digest, "$2a$"), strings.HasPrefix(digest, "$2b$"), strings.HasPrefix(digest, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
	case strings.HasPrefix(digest, "$argon2id$"):
		return verifyArgon2(plaintext, digest)
	default:
		return false
	}
}

func (h *PasswordHasher) hashArgon2(plaintext string) (string, error) {
	p := h.argon2
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: salt: %w", err)
	}
	key := argon2.IDKey([]byte(plaintext), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// verifyArgon2 parses a PHC string:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
func verifyArgon2(plaintext, digest string) bool {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false
	}
	if memory == 0 || iterations == 0 || threads == 0 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false
	}

	got := argon2.IDKey([]byte(plaintext), salt, iterations, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
