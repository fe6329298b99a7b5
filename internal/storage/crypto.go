package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// Encryptor 消息内容加密器
type Encryptor interface {
	// EncryptToString 加密并返回 Base64 编码的字符串
	EncryptToString(plaintext []byte) (string, error)

	// DecryptFromString 从 Base64 编码的字符串解密
	DecryptFromString(ciphertext string) ([]byte, error)
}

// AESGCMEncryptor AES-GCM 加密器，nonce 前置在密文中
type AESGCMEncryptor struct {
	aead cipher.AEAD
}

// NewAESGCMEncryptor 创建 AES-GCM 加密器
// key 必须是 16, 24, 或 32 字节，分别对应 AES-128, AES-192, 或 AES-256
func NewAESGCMEncryptor(key []byte) (*AESGCMEncryptor, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("invalid key size: %d (must be 16, 24, or 32 bytes)", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &AESGCMEncryptor{aead: aead}, nil
}

// EncryptorFromBase64 由 Base64 编码的密钥创建加密器，空串返回 nil
func EncryptorFromBase64(key string) (Encryptor, error) {
	if key == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}
	enc, err := NewAESGCMEncryptor(raw)
	if err != nil {
		return nil, err
	}
	return enc, nil
}

// Encrypt 加密数据
func (e *AESGCMEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return e.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt 解密数据
func (e *AESGCMEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrInvalidData)
	}

	nonce, body := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decrypt: %v", ErrInvalidData, err)
	}
	return plaintext, nil
}

// EncryptToString 加密并返回 Base64 编码的字符串
func (e *AESGCMEncryptor) EncryptToString(plaintext []byte) (string, error) {
	ciphertext, err := e.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptFromString 从 Base64 编码的字符串解密
func (e *AESGCMEncryptor) DecryptFromString(ciphertext string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode base64: %v", ErrInvalidData, err)
	}
	return e.Decrypt(data)
}
