package mailer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
)

// The SMTP password is the only credential this service persists, so it is
// sealed with AES-256-GCM before it touches the database. The key is derived
// from the application secret: rotating SECRET_KEY makes stored passwords
// unreadable and they must be re-entered by an administrator.

// newGCM builds the AEAD from the application secret. SHA-256 turns a
// secret of any length into the 32 bytes AES-256 requires.
func newGCM(secret string) (cipher.AEAD, error) {
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return gcm, nil
}

// encrypt seals plaintext under the application secret. The random nonce is
// prepended to the output so decrypt can recover it. Empty input maps to
// nil, which the settings row stores as "no password set".
func encrypt(plaintext []byte, secret string) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, nil
	}

	gcm, err := newGCM(secret)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt reverses encrypt, splitting the nonce off the front of the sealed
// bytes. Fails if the ciphertext was tampered with or the secret changed.
func decrypt(sealed []byte, secret string) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, nil
	}

	gcm, err := newGCM(secret)
	if err != nil {
		return nil, err
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}

	return plaintext, nil
}
