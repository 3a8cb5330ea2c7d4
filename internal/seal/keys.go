package seal

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/Om7972/votesecure-online-sub000/pkg/errors"
)

const dataKeySize = 32 // AES-256

// localKeyProvider generates a fresh random key per vote and wraps it under a
// process-local master key. This is a confidentiality-at-rest control, not
// secrecy from operators; deployments that need real key separation use the
// Vault transit provider instead.
type localKeyProvider struct {
	master []byte
}

// NewLocalKeyProvider creates a key provider that wraps per-vote keys under
// the given master key. A nil master key generates a random one for the
// process lifetime.
func NewLocalKeyProvider(master []byte) (KeyProvider, error) {
	if master == nil {
		master = make([]byte, dataKeySize)
		if _, err := io.ReadFull(rand.Reader, master); err != nil {
			return nil, fmt.Errorf("failed to generate master key: %w", err)
		}
	}
	if len(master) != dataKeySize {
		return nil, fmt.Errorf("master key must be %d bytes: %w", dataKeySize, errors.ErrInvalidInput)
	}
	return &localKeyProvider{master: master}, nil
}

func (p *localKeyProvider) GenerateDataKey(ctx context.Context) ([]byte, []byte, error) {
	key := make([]byte, dataKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, nil, fmt.Errorf("failed to generate data key: %w", err)
	}
	wrapped, err := p.wrap(key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to wrap data key: %w", err)
	}
	return key, wrapped, nil
}

func (p *localKeyProvider) UnwrapDataKey(ctx context.Context, wrapped []byte) ([]byte, error) {
	key, err := p.unwrap(wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrKeyUnavailable, err)
	}
	return key, nil
}

func (p *localKeyProvider) wrap(key []byte) ([]byte, error) {
	block, err := aes.NewCipher(p.master)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, key, nil), nil
}

func (p *localKeyProvider) unwrap(wrapped []byte) ([]byte, error) {
	block, err := aes.NewCipher(p.master)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(wrapped) < gcm.NonceSize() {
		return nil, fmt.Errorf("wrapped key shorter than nonce")
	}
	nonce, sealed := wrapped[:gcm.NonceSize()], wrapped[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}
