package devfs

import (
	"bytes"
	"testing"
)

// Small parameters keep the derivations fast.
var testArgon2Params = Argon2idParams{Memory: 64, Iterations: 1, Parallelism: 1, SaltSize: 16}

func TestPasswordKeyProvider(t *testing.T) {
	providers := map[string]*PasswordKeyProvider{
		"argon2id":      NewPasswordKeyProvider([]byte("secret"), testArgon2Params),
		"pbkdf2-sha256": NewPasswordKeyProviderPBKDF2([]byte("secret"), PBKDF2Params{Iterations: 10, HashFunc: SHA256}),
		"pbkdf2-sha512": NewPasswordKeyProviderPBKDF2([]byte("secret"), PBKDF2Params{Iterations: 10, HashFunc: SHA512}),
	}

	for name, kp := range providers {
		t.Run(name, func(t *testing.T) {
			salt, err := kp.GenerateSalt()
			if err != nil {
				t.Fatalf("GenerateSalt() error = %v", err)
			}
			if len(salt) == 0 {
				t.Fatal("GenerateSalt() returned an empty salt")
			}

			k1, err := kp.DeriveKey(salt)
			if err != nil {
				t.Fatalf("DeriveKey() error = %v", err)
			}
			if len(k1) != KeySize {
				t.Errorf("key length = %d, want %d", len(k1), KeySize)
			}

			k2, err := kp.DeriveKey(salt)
			if err != nil {
				t.Fatalf("DeriveKey() error = %v", err)
			}
			if !bytes.Equal(k1, k2) {
				t.Error("same password and salt produced different keys")
			}

			other, _ := kp.GenerateSalt()
			k3, err := kp.DeriveKey(other)
			if err != nil {
				t.Fatalf("DeriveKey() error = %v", err)
			}
			if bytes.Equal(k1, k3) {
				t.Error("different salts produced the same key")
			}
		})
	}
}

func TestPasswordKeyProviderDefaults(t *testing.T) {
	a := NewPasswordKeyProvider([]byte("pw"), Argon2idParams{})
	if a.argon2Params.Memory != 64*1024 || a.argon2Params.Iterations != 3 ||
		a.argon2Params.Parallelism != 4 || a.argon2Params.SaltSize != 32 {
		t.Errorf("argon2 defaults = %+v", a.argon2Params)
	}

	p := NewPasswordKeyProviderPBKDF2([]byte("pw"), PBKDF2Params{})
	if p.pbkdf2Params.Iterations != 100000 || p.pbkdf2Params.SaltSize != 32 {
		t.Errorf("pbkdf2 defaults = %+v", p.pbkdf2Params)
	}
}

func TestPasswordKeyProviderErrors(t *testing.T) {
	kp := NewPasswordKeyProvider(nil, testArgon2Params)
	if _, err := kp.DeriveKey([]byte("salt")); err == nil {
		t.Error("expected error for empty password")
	}

	kp = NewPasswordKeyProvider([]byte("pw"), testArgon2Params)
	if _, err := kp.DeriveKey(nil); err == nil {
		t.Error("expected error for empty salt")
	}

	bad := NewPasswordKeyProviderPBKDF2([]byte("pw"), PBKDF2Params{Iterations: 1, HashFunc: HashFunc(9)})
	if _, err := bad.DeriveKey([]byte("salt")); err == nil {
		t.Error("expected error for unknown hash function")
	}
}

func TestStaticKeyProvider(t *testing.T) {
	if _, err := NewStaticKeyProvider(make([]byte, 16)); err == nil {
		t.Error("expected error for short key")
	}

	key := bytes.Repeat([]byte{0xAB}, KeySize)
	kp, err := NewStaticKeyProvider(key)
	if err != nil {
		t.Fatalf("NewStaticKeyProvider() error = %v", err)
	}

	// The provider keeps its own copy.
	key[0] = 0
	derived, err := kp.DeriveKey([]byte("ignored"))
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	if derived[0] != 0xAB {
		t.Error("provider key changed with the caller's slice")
	}

	derived[1] = 0
	again, _ := kp.DeriveKey(nil)
	if again[1] != 0xAB {
		t.Error("DeriveKey returned the provider's own slice")
	}
}
