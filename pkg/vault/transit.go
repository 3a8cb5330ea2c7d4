package vault

import (
	"context"
	"encoding/base64"
	"fmt"
)

// TransitClient provides operations for the Vault Transit secrets engine.
type TransitClient struct {
	*Client
	mountPath string
}

// Transit returns a TransitClient for the given mount path.
func (c *Client) Transit(mountPath string) *TransitClient {
	if mountPath == "" {
		mountPath = "transit"
	}
	return &TransitClient{Client: c, mountPath: mountPath}
}

// GenerateDataKey asks transit for a fresh data key under the named key. It
// returns the plaintext key and its transit-wrapped ciphertext.
func (t *TransitClient) GenerateDataKey(ctx context.Context, keyName string) (plaintext, wrapped []byte, err error) {
	path := fmt.Sprintf("%s/datakey/plaintext/%s", t.mountPath, keyName)

	secret, err := t.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"bits": 256,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("vault: failed to generate data key: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, nil, fmt.Errorf("vault: empty data key response")
	}

	encodedKey, ok := secret.Data["plaintext"].(string)
	if !ok {
		return nil, nil, fmt.Errorf("vault: data key response missing plaintext")
	}
	ciphertext, ok := secret.Data["ciphertext"].(string)
	if !ok {
		return nil, nil, fmt.Errorf("vault: data key response missing ciphertext")
	}

	plaintext, err = base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, nil, fmt.Errorf("vault: failed to decode data key: %w", err)
	}
	return plaintext, []byte(ciphertext), nil
}

// CreateKey creates the named transit key. Creating an existing key is a
// no-op on the Vault side.
func (t *TransitClient) CreateKey(ctx context.Context, keyName string) error {
	path := fmt.Sprintf("%s/keys/%s", t.mountPath, keyName)
	_, err := t.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"type": "aes256-gcm96",
	})
	if err != nil {
		return fmt.Errorf("vault: failed to create transit key %s: %w", keyName, err)
	}
	return nil
}

// DecryptDataKey recovers a plaintext data key from its transit-wrapped form.
func (t *TransitClient) DecryptDataKey(ctx context.Context, keyName string, wrapped []byte) ([]byte, error) {
	path := fmt.Sprintf("%s/decrypt/%s", t.mountPath, keyName)

	secret, err := t.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"ciphertext": string(wrapped),
	})
	if err != nil {
		return nil, fmt.Errorf("vault: failed to decrypt data key: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("vault: empty decrypt response")
	}

	encodedKey, ok := secret.Data["plaintext"].(string)
	if !ok {
		return nil, fmt.Errorf("vault: decrypt response missing plaintext")
	}
	return base64.StdEncoding.DecodeString(encodedKey)
}

// TransitKeyProvider implements the ballot sealer's KeyProvider interface
// with transit-backed envelope encryption: the per-vote key never reaches
// storage in plaintext.
type TransitKeyProvider struct {
	transit *TransitClient
	keyName string
}

// NewTransitKeyProvider creates a key provider bound to a transit key.
func NewTransitKeyProvider(client *Client, mountPath, keyName string) *TransitKeyProvider {
	return &TransitKeyProvider{
		transit: client.Transit(mountPath),
		keyName: keyName,
	}
}

// GenerateDataKey returns a fresh data key in plaintext and wrapped form.
func (p *TransitKeyProvider) GenerateDataKey(ctx context.Context) ([]byte, []byte, error) {
	return p.transit.GenerateDataKey(ctx, p.keyName)
}

// UnwrapDataKey recovers the plaintext data key from its wrapped form.
func (p *TransitKeyProvider) UnwrapDataKey(ctx context.Context, wrapped []byte) ([]byte, error) {
	return p.transit.DecryptDataKey(ctx, p.keyName, wrapped)
}
