package security

import (
	"bytes"
	"crypto/aes"
	"encoding/base64"
	"strings"
)

// The backend encrypts with AES-128 in ECB mode, PKCS#7 padding and a key
// built by zero-padding the derived key string. ECB has no IV and leaks block
// equality; it is kept because the server accepts nothing else.
const keySize = 16

func secretKey(key string) []byte {
	k := make([]byte, keySize)
	copy(k, key)
	return k
}

// Encrypt encrypts plaintext under key and returns standard base64.
func Encrypt(plaintext, key string) (string, error) {
	block, err := aes.NewCipher(secretKey(key))
	if err != nil {
		return "", &Error{Stage: StageCipher, Err: err}
	}

	bs := block.BlockSize()
	buf := pkcs7Pad([]byte(plaintext), bs)
	for i := 0; i < len(buf); i += bs {
		block.Encrypt(buf[i:i+bs], buf[i:i+bs])
	}

	return base64.StdEncoding.EncodeToString(buf), nil
}

// Decrypt reverses Encrypt. Invalid UTF-8 in the recovered plaintext is
// replaced rather than rejected.
func Decrypt(ciphertext, key string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", newError(StageCipher, ErrCipher, "invalid base64: %v", err)
	}

	block, err := aes.NewCipher(secretKey(key))
	if err != nil {
		return "", &Error{Stage: StageCipher, Err: err}
	}

	bs := block.BlockSize()
	if len(raw) == 0 || len(raw)%bs != 0 {
		return "", newError(StageCipher, ErrCipher, "ciphertext length %d is not a positive multiple of %d", len(raw), bs)
	}

	for i := 0; i < len(raw); i += bs {
		block.Decrypt(raw[i:i+bs], raw[i:i+bs])
	}

	plain, err := pkcs7Unpad(raw, bs)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(plain), "\uFFFD"), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+padding)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, newError(StageCipher, ErrCipher, "bad padding length %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, newError(StageCipher, ErrCipher, "inconsistent padding bytes")
		}
	}
	return data[:len(data)-n], nil
}
