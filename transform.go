package devfs

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"
)

// nonceInfo labels the HKDF expansion that turns the key into the nonce
var nonceInfo = []byte("devfs keystream nonce")

// Transform is a self-inverse byte obfuscation. Apply writes the
// transformed form of src into dst, where off is the device offset of
// src[0]. Applying it twice at the same offset yields the input, so the
// same call is used to store and to retrieve.
type Transform interface {
	// Name returns the transform identifier
	Name() string

	// Apply transforms len(src) bytes into dst. dst and src may be the
	// same slice.
	Apply(dst, src []byte, off int64)
}

// XORTransform XORs every byte with a fixed key
type XORTransform struct {
	Key byte
}

// Name returns "xor"
func (t XORTransform) Name() string { return TransformXOR }

// Apply XORs src with the key; the offset is ignored
func (t XORTransform) Apply(dst, src []byte, off int64) {
	for i, b := range src {
		dst[i] = b ^ t.Key
	}
}

// KeystreamTransform XORs every byte with a ChaCha20 keystream seeked to
// the byte's device offset. There is no authentication; the nonce is
// expanded from the key, so the key alone fixes the stream.
type KeystreamTransform struct {
	key   [chacha20.KeySize]byte
	nonce [chacha20.NonceSize]byte
}

// NewKeystreamTransform derives the key from kp and salt. An empty salt
// is replaced by a fresh one from kp, giving a one-off stream.
func NewKeystreamTransform(kp KeyProvider, salt []byte) (*KeystreamTransform, error) {
	if kp == nil {
		return nil, ErrNilKeyProvider
	}

	if len(salt) == 0 {
		var err error
		if salt, err = kp.GenerateSalt(); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	key, err := kp.DeriveKey(salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	if err := ValidateKey(key, chacha20.KeySize); err != nil {
		return nil, err
	}

	t := &KeystreamTransform{}
	copy(t.key[:], key)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, key, nonceInfo), t.nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to derive nonce: %w", err)
	}
	return t, nil
}

// Name returns "keystream"
func (t *KeystreamTransform) Name() string { return TransformKeystream }

// Apply XORs src with the keystream bytes at [off, off+len(src))
func (t *KeystreamTransform) Apply(dst, src []byte, off int64) {
	if len(src) == 0 {
		return
	}

	// Key and nonce sizes are fixed by the array types.
	c, err := chacha20.NewUnauthenticatedCipher(t.key[:], t.nonce[:])
	if err != nil {
		panic(fmt.Sprintf("devfs: keystream cipher: %v", err))
	}

	c.SetCounter(uint32(off / 64))
	if skip := int(off % 64); skip > 0 {
		var pad [64]byte
		c.XORKeyStream(pad[:skip], pad[:skip])
	}
	c.XORKeyStream(dst[:len(src)], src)
}

// transformFactory builds a transform from a validated config
type transformFactory func(cfg *Config) (Transform, error)

// transforms maps transform names to constructors
var transforms = map[string]transformFactory{
	TransformXOR: func(cfg *Config) (Transform, error) {
		return XORTransform{Key: cfg.Key}, nil
	},
	TransformKeystream: func(cfg *Config) (Transform, error) {
		return NewKeystreamTransform(cfg.KeyProvider, cfg.keystreamSalt())
	},
}

// NewTransform creates the transform named by cfg.Transform
func NewTransform(cfg *Config) (Transform, error) {
	fn, ok := transforms[cfg.Transform]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTransform, cfg.Transform)
	}
	return fn(cfg)
}
