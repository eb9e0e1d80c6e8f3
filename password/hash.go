package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithm      = "argon2id"
	minMemoryKB    = 8 * 1024
	minSaltBytes   = 16
	minKeyBytes    = 16
	maxPassword    = 1024
	encodedFields  = 6
	paramPairCount = 3
)

// ErrMalformedHash is returned for strings that are not argon2id PHC hashes.
var ErrMalformedHash = errors.New("malformed password hash")

// Params are the Argon2id cost parameters.
type Params struct {
	MemoryKB    uint32
	Time        uint32
	Parallelism uint8
	SaltBytes   uint32
	KeyBytes    uint32
}

// DefaultParams are suitable for an interactive development server.
func DefaultParams() Params {
	return Params{MemoryKB: 64 * 1024, Time: 1, Parallelism: 2, SaltBytes: 16, KeyBytes: 32}
}

func (p Params) validate() error {
	switch {
	case p.MemoryKB < minMemoryKB:
		return fmt.Errorf("argon2 memory must be >= %d KB", minMemoryKB)
	case p.Time < 1:
		return errors.New("argon2 time must be >= 1")
	case p.Parallelism < 1:
		return errors.New("argon2 parallelism must be >= 1")
	case p.SaltBytes < minSaltBytes:
		return fmt.Errorf("argon2 salt must be >= %d bytes", minSaltBytes)
	case p.KeyBytes < minKeyBytes:
		return fmt.Errorf("argon2 key must be >= %d bytes", minKeyBytes)
	}
	return nil
}

// Hasher hashes and verifies passwords. It is safe for concurrent use.
type Hasher struct {
	params Params
}

func NewHasher(p Params) (*Hasher, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Hasher{params: p}, nil
}

// Hash returns a PHC string for pw.
func (h *Hasher) Hash(pw string) (string, error) {
	if pw == "" {
		return "", errors.New("password required")
	}
	if len(pw) > maxPassword {
		return "", fmt.Errorf("password longer than %d bytes", maxPassword)
	}
	salt := make([]byte, h.params.SaltBytes)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(pw), salt, h.params.Time, h.params.MemoryKB, h.params.Parallelism, h.params.KeyBytes)
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithm, argon2.Version,
		h.params.MemoryKB, h.params.Time, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether pw matches encoded.
func (h *Hasher) Verify(pw, encoded string) (bool, error) {
	if len(pw) > maxPassword {
		return false, nil
	}
	d, err := decode(encoded)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(pw), d.salt, d.params.Time, d.params.MemoryKB, d.params.Parallelism, uint32(len(d.key)))
	return subtle.ConstantTimeCompare(key, d.key) == 1, nil
}

// NeedsRehash reports whether encoded was produced with weaker parameters than h.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	d, err := decode(encoded)
	if err != nil {
		return false, err
	}
	p := d.params
	return p.MemoryKB < h.params.MemoryKB ||
		p.Time < h.params.Time ||
		p.Parallelism < h.params.Parallelism ||
		uint32(len(d.key)) != h.params.KeyBytes, nil
}

type decoded struct {
	params Params
	salt   []byte
	key    []byte
}

func decode(encoded string) (decoded, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != encodedFields || parts[0] != "" || parts[1] != algorithm {
		return decoded{}, ErrMalformedHash
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return decoded{}, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, parts[2])
	}

	var d decoded
	pairs := strings.Split(parts[3], ",")
	if len(pairs) != paramPairCount {
		return decoded{}, fmt.Errorf("%w: parameters", ErrMalformedHash)
	}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return decoded{}, fmt.Errorf("%w: parameter %q", ErrMalformedHash, pair)
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			return decoded{}, fmt.Errorf("%w: parameter %q", ErrMalformedHash, pair)
		}
		switch k {
		case "m":
			d.params.MemoryKB = uint32(n)
		case "t":
			d.params.Time = uint32(n)
		case "p":
			if n > 255 {
				return decoded{}, fmt.Errorf("%w: parallelism", ErrMalformedHash)
			}
			d.params.Parallelism = uint8(n)
		default:
			return decoded{}, fmt.Errorf("%w: parameter %q", ErrMalformedHash, k)
		}
	}
	if d.params.MemoryKB < minMemoryKB || d.params.Time == 0 || d.params.Parallelism == 0 {
		return decoded{}, fmt.Errorf("%w: parameters", ErrMalformedHash)
	}

	var err error
	if d.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(d.salt) < minSaltBytes {
		return decoded{}, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if d.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(d.key) < minKeyBytes {
		return decoded{}, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	return d, nil
}
