package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// EncryptedPrefix 配置中的加密值以此开头，其余部分是 base64(nonce || ciphertext)
const EncryptedPrefix = "enc:"

var (
	ErrInvalidKeyLength = errors.New("secret key must be 16, 24, or 32 bytes")
	ErrCiphertextShort  = errors.New("ciphertext too short")
)

// AESSecretProvider 基于 AES-GCM 加解密配置中的凭证，避免 API Key 明文落盘
type AESSecretProvider struct {
	gcm cipher.AEAD
}

// NewAESSecretProvider keyStr 长度对应 AES-128/192/256
func NewAESSecretProvider(keyStr string) (*AESSecretProvider, error) {
	key := []byte(keyStr)
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeyLength, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESSecretProvider{gcm: gcm}, nil
}

// Encrypt 返回带 EncryptedPrefix 的密文
func (p *AESSecretProvider) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, p.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := p.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt 解密带前缀的值；不带前缀的值按明文原样返回
func (p *AESSecretProvider) Decrypt(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, EncryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("decode secret: %w", err)
	}

	nonceSize := p.gcm.NonceSize()
	if len(data) < nonceSize {
		return "", ErrCiphertextShort
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := p.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt secret: %w", err)
	}
	return string(plaintext), nil
}

// IsEncrypted 是否为加密值
func IsEncrypted(s string) bool {
	return strings.HasPrefix(s, EncryptedPrefix)
}
