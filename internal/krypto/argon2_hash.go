package krypto

import (
	"crypto/subtle"
	"database/sql/driver"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Variant = "argon2id"

	// Parameters follow the OWASP recommendation for argon2id with a single
	// iteration: 46 MiB of memory, 1 iteration, 1 degree of parallelism.
	argon2MemoryKiB   = 47104
	argon2Iterations  = 1
	argon2Parallelism = 1

	argon2SaltLen = 16
	argon2KeyLen  = 32
)

// ErrInvalidInput indicates the input could not be hashed or parsed.
var ErrInvalidInput = errors.New("invalid input")

// Argon2Hash is the result of hashing a value with argon2id, including
// all parameters required to verify a value against it.
type Argon2Hash struct {
	Variant     string
	Version     int
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	Salt        []byte
	Hash        []byte
}

// HashArgon2 hashes data using argon2id and a random salt.
func HashArgon2(data []byte) (Argon2Hash, error) {
	salt, err := genRandomBytes(argon2SaltLen)
	if err != nil {
		return Argon2Hash{}, err
	}

	return hashArgon2WithSalt(data, salt)
}

// HashArgon2WithKey hashes data using argon2id with the key as salt. The
// output is deterministic, which makes it usable as a blind index.
func HashArgon2WithKey(data []byte, key Key) (Argon2Hash, error) {
	if len(key.value) == 0 {
		return Argon2Hash{}, fmt.Errorf("empty key: %w", ErrInvalidInput)
	}

	return hashArgon2WithSalt(data, key.value)
}

func hashArgon2WithSalt(data, salt []byte) (Argon2Hash, error) {
	if len(data) == 0 {
		return Argon2Hash{}, fmt.Errorf("nothing to hash: %w", ErrInvalidInput)
	}

	hash := argon2.IDKey(data, salt, argon2Iterations, argon2MemoryKiB, argon2Parallelism, argon2KeyLen)

	return Argon2Hash{
		Variant:     argon2Variant,
		Version:     argon2.Version,
		MemoryKiB:   argon2MemoryKiB,
		Iterations:  argon2Iterations,
		Parallelism: argon2Parallelism,
		Salt:        salt,
		Hash:        hash,
	}, nil
}

// MatchBytes reports whether data hashes to h using the parameters of h.
// The comparison is done in constant time.
func (h Argon2Hash) MatchBytes(data []byte) bool {
	if len(h.Hash) == 0 {
		return false
	}

	other := argon2.IDKey(data, h.Salt, h.Iterations, h.MemoryKiB, h.Parallelism, uint32(len(h.Hash)))
	return subtle.ConstantTimeCompare(h.Hash, other) == 1
}

// ParseArgon2Hash parses the PHC string format:
// $argon2id$v=19$m=47104,t=1,p=1$<salt>$<hash>
func ParseArgon2Hash(raw string) (Argon2Hash, error) {
	parts := strings.Split(raw, "$")
	if len(parts) != 6 || parts[0] != "" {
		return Argon2Hash{}, fmt.Errorf("expected 6 parts in argon2 hash: %w", ErrInvalidInput)
	}

	h := Argon2Hash{}

	if parts[1] != argon2Variant {
		return Argon2Hash{}, fmt.Errorf("unsupported variant %q: %w", parts[1], ErrInvalidInput)
	}
	h.Variant = parts[1]

	version, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return Argon2Hash{}, fmt.Errorf("missing version: %w", ErrInvalidInput)
	}

	v, err := strconv.Atoi(version)
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("invalid version: %w", ErrInvalidInput)
	}

	if v != argon2.Version {
		return Argon2Hash{}, fmt.Errorf("unsupported version %d: %w", v, ErrInvalidInput)
	}
	h.Version = v

	var m, t, p uint64
	for _, param := range strings.Split(parts[3], ",") {
		key, val, ok := strings.Cut(param, "=")
		if !ok {
			return Argon2Hash{}, fmt.Errorf("invalid parameter %q: %w", param, ErrInvalidInput)
		}

		switch key {
		case "m":
			m, err = strconv.ParseUint(val, 10, 32)
		case "t":
			t, err = strconv.ParseUint(val, 10, 32)
		case "p":
			p, err = strconv.ParseUint(val, 10, 8)
		default:
			err = errors.New("unknown parameter")
		}

		if err != nil {
			return Argon2Hash{}, fmt.Errorf("invalid parameter %q: %w", param, ErrInvalidInput)
		}
	}

	if m == 0 || t == 0 || p == 0 {
		return Argon2Hash{}, fmt.Errorf("missing parameters: %w", ErrInvalidInput)
	}

	h.MemoryKiB = uint32(m)
	h.Iterations = uint32(t)
	h.Parallelism = uint8(p)

	h.Salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("invalid salt: %w", ErrInvalidInput)
	}

	h.Hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(h.Hash) == 0 {
		return Argon2Hash{}, fmt.Errorf("invalid hash: %w", ErrInvalidInput)
	}

	return h, nil
}

// String returns the hash in the PHC string format.
func (h Argon2Hash) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		h.Variant,
		h.Version,
		h.MemoryKiB,
		h.Iterations,
		h.Parallelism,
		base64.RawStdEncoding.EncodeToString(h.Salt),
		base64.RawStdEncoding.EncodeToString(h.Hash),
	)
}

func (h Argon2Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Argon2Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseArgon2Hash(string(text))
	if err != nil {
		return err
	}

	*h = parsed
	return nil
}

// Scan implements the sql.Scanner interface.
func (h *Argon2Hash) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return h.UnmarshalText([]byte(v))
	case []byte:
		return h.UnmarshalText(v)
	default:
		return fmt.Errorf("can not scan %T into argon2 hash", src)
	}
}

// Value implements the driver.Valuer interface.
func (h Argon2Hash) Value() (driver.Value, error) {
	return h.String(), nil
}
