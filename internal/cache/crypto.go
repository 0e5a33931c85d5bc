package cache

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const ivSalt = "lanconfig-iv-salt"

var errPadding = errors.New("invalid padding")

// deriveKeyIV derives the AES-128 key and IV from an auth header value.
func deriveKeyIV(secret string) (key, iv []byte) {
	k := sha256.Sum256([]byte(secret))
	v := sha256.Sum256([]byte(secret + ivSalt))
	return k[:aes.BlockSize], v[:aes.BlockSize]
}

// encrypt returns base64(AES-128-CBC(PKCS#5(plain))).
func encrypt(secret, plain string) (string, error) {
	key, iv := deriveKeyIV(secret)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	data := pad([]byte(plain), aes.BlockSize)
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
	return base64.StdEncoding.EncodeToString(out), nil
}

// decrypt reverses encrypt.
func decrypt(secret, encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", errPadding
	}

	key, iv := deriveKeyIV(secret)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	plain, err := unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 {
		return nil, errPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, errPadding
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errPadding
		}
	}
	return b[:len(b)-n], nil
}
