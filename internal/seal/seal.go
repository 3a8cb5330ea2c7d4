// Package seal computes the cryptographic sealing of ballots: an integrity
// hash used as the voter's receipt and an encrypted payload for storage at
// rest.
package seal

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Om7972/votesecure-online-sub000/pkg/errors"
	"github.com/Om7972/votesecure-online-sub000/pkg/models"
)

// Ballot is the plaintext vote content before sealing.
type Ballot struct {
	ElectionID         string    `json:"election_id"`
	VoterID            string    `json:"voter_id"`
	CandidateID        string    `json:"candidate_id,omitempty"`
	WriteInName        string    `json:"write_in_name,omitempty"`
	WriteInDescription string    `json:"write_in_description,omitempty"`
	CastAt             time.Time `json:"cast_at"`
}

// choice returns the candidate reference used in the canonical serialization.
func (b Ballot) choice() string {
	if b.WriteInName != "" {
		return "write-in:" + b.WriteInName
	}
	return b.CandidateID
}

// Sealer seals and unseals ballots. Sealing is pure in-memory work; the
// sealed vote either reaches durable storage in one insert or nothing does.
type Sealer interface {
	// Seal encrypts the ballot and computes its integrity hash.
	Seal(ctx context.Context, ballot Ballot) (*models.SealedBallot, error)
	// Unseal decrypts a sealed ballot and verifies its integrity hash.
	// Any decryption or hash-mismatch failure returns an IntegrityError.
	Unseal(ctx context.Context, voteID string, sealed *models.SealedBallot) (Ballot, error)
	// Verify reports whether the sealed payload still matches its hash.
	Verify(ctx context.Context, voteID string, sealed *models.SealedBallot) bool
}

// KeyProvider supplies per-vote data keys. The wrapped form is what gets
// stored alongside the ciphertext.
type KeyProvider interface {
	// GenerateDataKey returns a fresh data key in plaintext and wrapped form.
	GenerateDataKey(ctx context.Context) (plaintext, wrapped []byte, err error)
	// UnwrapDataKey recovers the plaintext data key from its wrapped form.
	UnwrapDataKey(ctx context.Context, wrapped []byte) ([]byte, error)
}

// New creates a sealer backed by the given key provider.
func New(keys KeyProvider) Sealer {
	return &sealerImpl{keys: keys}
}

type sealerImpl struct {
	keys KeyProvider
}

func (s *sealerImpl) Seal(ctx context.Context, ballot Ballot) (*models.SealedBallot, error) {
	plaintext, err := json.Marshal(ballot)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize ballot: %w", err)
	}

	key, wrapped, err := s.keys.GenerateDataKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}

	ciphertext, err := encrypt(plaintext, key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt ballot: %w", err)
	}

	return &models.SealedBallot{
		Ciphertext: ciphertext,
		WrappedKey: wrapped,
		Hash:       ContentHash(ballot),
	}, nil
}

func (s *sealerImpl) Unseal(ctx context.Context, voteID string, sealed *models.SealedBallot) (Ballot, error) {
	key, err := s.keys.UnwrapDataKey(ctx, sealed.WrappedKey)
	if err != nil {
		return Ballot{}, errors.NewIntegrityError(voteID, "data key unwrap failed", err)
	}

	plaintext, err := decrypt(sealed.Ciphertext, key)
	if err != nil {
		return Ballot{}, errors.NewIntegrityError(voteID, "ballot decryption failed", err)
	}

	var ballot Ballot
	if err := json.Unmarshal(plaintext, &ballot); err != nil {
		return Ballot{}, errors.NewIntegrityError(voteID, "ballot deserialization failed", err)
	}

	if !HashEqual(ContentHash(ballot), sealed.Hash) {
		return Ballot{}, errors.NewIntegrityError(voteID, "content hash mismatch", nil)
	}

	return ballot, nil
}

func (s *sealerImpl) Verify(ctx context.Context, voteID string, sealed *models.SealedBallot) bool {
	_, err := s.Unseal(ctx, voteID, sealed)
	return err == nil
}

// ContentHash computes the SHA-256 digest over the canonical serialization of
// the ballot identity. The digest doubles as the voter's receipt token: it
// proves participation without being reversible to the chosen candidate.
func ContentHash(ballot Ballot) string {
	canonical := strings.Join([]string{
		ballot.ElectionID,
		ballot.VoterID,
		ballot.choice(),
		ballot.CastAt.UTC().Format(time.RFC3339Nano),
	}, "|")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// HashEqual compares two hashes in constant time.
func HashEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// encrypt seals plaintext with AES-256-GCM. The nonce is prepended to the
// ciphertext.
func encrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
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
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt opens an AES-256-GCM ciphertext produced by encrypt.
func decrypt(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext shorter than nonce")
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}
