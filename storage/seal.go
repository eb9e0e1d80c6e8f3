package storage

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var sealMagic = []byte("SKD1")

const sealSaltLen = 16

// SealConfig tunes the Argon2id key derivation used to seal [File] contents.
type SealConfig struct {
	Passphrase string
	Time       uint32
	MemoryKB   uint32
	Threads    uint8
}

func (c SealConfig) enabled() bool {
	return c.Passphrase != ""
}

func (c SealConfig) withDefaults() SealConfig {
	if c.Time == 0 {
		c.Time = 1
	}
	if c.MemoryKB == 0 {
		c.MemoryKB = 19 * 1024
	}
	if c.Threads == 0 {
		c.Threads = 1
	}
	return c
}

type sealer struct {
	cfg  SealConfig
	salt []byte
	key  []byte
}

func newSealer(cfg SealConfig) *sealer {
	return &sealer{cfg: cfg.withDefaults()}
}

func (s *sealer) keyFor(salt []byte) []byte {
	if s.key != nil && bytes.Equal(s.salt, salt) {
		return s.key
	}
	s.salt = append(s.salt[:0], salt...)
	s.key = argon2.IDKey([]byte(s.cfg.Passphrase), salt, s.cfg.Time, s.cfg.MemoryKB, s.cfg.Threads, chacha20poly1305.KeySize)
	return s.key
}

// seal layout: magic | salt | nonce | ciphertext.
func (s *sealer) seal(plain []byte) ([]byte, error) {
	if s.salt == nil {
		salt := make([]byte, sealSaltLen)
		if _, err := rand.Read(salt); err != nil {
			return nil, err
		}
		s.keyFor(salt)
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(sealMagic)+sealSaltLen+len(nonce)+len(plain)+aead.Overhead())
	out = append(out, sealMagic...)
	out = append(out, s.salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plain, sealMagic), nil
}

func (s *sealer) open(data []byte) ([]byte, error) {
	if !isSealed(data) {
		return nil, errors.New("not a sealed document")
	}
	rest := data[len(sealMagic):]
	if len(rest) < sealSaltLen+chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("%w: truncated document", ErrSealed)
	}
	salt := rest[:sealSaltLen]
	nonce := rest[sealSaltLen : sealSaltLen+chacha20poly1305.NonceSizeX]
	ciphertext := rest[sealSaltLen+chacha20poly1305.NonceSizeX:]

	aead, err := chacha20poly1305.NewX(s.keyFor(salt))
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, nonce, ciphertext, sealMagic)
	if err != nil {
		return nil, ErrSealed
	}
	return plain, nil
}

func isSealed(data []byte) bool {
	return bytes.HasPrefix(data, sealMagic)
}
