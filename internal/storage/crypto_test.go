package storage

import (
	"bytes"
	"errors"
	"testing"
)

func TestAESGCMEncryptor(t *testing.T) {
	testCases := []struct {
		name    string
		keySize int
	}{
		{"AES-128", 16},
		{"AES-192", 24},
		{"AES-256", 32},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key := make([]byte, tc.keySize)
			for i := range key {
				key[i] = byte(i)
			}

			encryptor, err := NewAESGCMEncryptor(key)
			if err != nil {
				t.Fatalf("Failed to create encryptor: %v", err)
			}

			plaintext := []byte("这是一条秘密消息")
			ciphertext, err := encryptor.Encrypt(plaintext)
			if err != nil {
				t.Fatalf("Failed to encrypt: %v", err)
			}
			if bytes.Equal(ciphertext, plaintext) {
				t.Error("Ciphertext should be different from plaintext")
			}

			decrypted, err := encryptor.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("Failed to decrypt: %v", err)
			}
			if !bytes.Equal(decrypted, plaintext) {
				t.Errorf("Decrypted text doesn't match original: got %s, want %s", decrypted, plaintext)
			}
		})
	}
}

func TestAESGCMEncryptorInvalidKey(t *testing.T) {
	invalidKeys := [][]byte{
		[]byte("short"),
		[]byte("waytoolongkey"),
		make([]byte, 33),
	}
	for _, key := range invalidKeys {
		if _, err := NewAESGCMEncryptor(key); err == nil {
			t.Errorf("Expected error for key of size %d", len(key))
		}
	}
}

func TestAESGCMEncryptorStringRoundTrip(t *testing.T) {
	encryptor, err := NewAESGCMEncryptor(make([]byte, 32))
	if err != nil {
		t.Fatal(err)
	}

	a, _ := encryptor.EncryptToString([]byte("same"))
	b, _ := encryptor.EncryptToString([]byte("same"))
	if a == b {
		t.Error("nonce should make ciphertexts differ")
	}

	plain, err := encryptor.DecryptFromString(a)
	if err != nil || string(plain) != "same" {
		t.Errorf("DecryptFromString = %q, %v", plain, err)
	}

	if _, err := encryptor.DecryptFromString("not base64!"); !errors.Is(err, ErrInvalidData) {
		t.Errorf("Expected ErrInvalidData for bad base64, got %v", err)
	}
	if _, err := encryptor.Decrypt([]byte("x")); !errors.Is(err, ErrInvalidData) {
		t.Errorf("Expected ErrInvalidData for short ciphertext, got %v", err)
	}
}

func TestEncryptorFromBase64(t *testing.T) {
	enc, err := EncryptorFromBase64("")
	if err != nil || enc != nil {
		t.Errorf("empty key should yield nil encryptor, got %v, %v", enc, err)
	}
	if _, err := EncryptorFromBase64("%%%"); err == nil {
		t.Error("invalid base64 should fail")
	}
	if _, err := EncryptorFromBase64("c2hvcnQ="); err == nil {
		t.Error("wrong key size should fail")
	}
}
