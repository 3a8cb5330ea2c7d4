package integration

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Om7972/votesecure-online-sub000/internal/seal"
	"github.com/Om7972/votesecure-online-sub000/pkg/vault"
	"github.com/Om7972/votesecure-online-sub000/tests/testutil"
)

func TestVaultTransitSealing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	WithVault(t, func(t *testing.T, vc *VaultContainer) {
		ctx := testutil.TestContext(t)
		logger := slog.Default()

		client, err := vault.New(&vault.Config{
			Address: vc.Address,
			Token:   vc.Token,
			Timeout: 10 * time.Second,
		}, logger)
		require.NoError(t, err)
		require.NoError(t, client.Health(ctx))

		require.NoError(t, client.EnableTransit(ctx, "transit"))
		// Re-enabling an existing mount must not fail.
		require.NoError(t, client.EnableTransit(ctx, "transit"))
		require.NoError(t, client.Transit("transit").CreateKey(ctx, "ballot-sealing"))

		provider := vault.NewTransitKeyProvider(client, "transit", "ballot-sealing")

		t.Run("data key round trip", func(t *testing.T) {
			plaintext, wrapped, err := provider.GenerateDataKey(ctx)
			require.NoError(t, err)
			assert.Len(t, plaintext, 32)
			assert.NotEmpty(t, wrapped)
			assert.NotEqual(t, plaintext, wrapped)

			unwrapped, err := provider.UnwrapDataKey(ctx, wrapped)
			require.NoError(t, err)
			assert.Equal(t, plaintext, unwrapped)
		})

		t.Run("distinct keys per call", func(t *testing.T) {
			first, _, err := provider.GenerateDataKey(ctx)
			require.NoError(t, err)
			second, _, err := provider.GenerateDataKey(ctx)
			require.NoError(t, err)
			assert.NotEqual(t, first, second)
		})

		t.Run("seal and unseal through transit", func(t *testing.T) {
			sealer := seal.New(provider)
			ballot := seal.Ballot{
				ElectionID:  "election-1",
				VoterID:     "voter-1",
				CandidateID: "candidate-1",
				CastAt:      time.Now().UTC(),
			}

			sealed, err := sealer.Seal(ctx, ballot)
			require.NoError(t, err)
			assert.NotEmpty(t, sealed.Ciphertext)
			assert.NotEmpty(t, sealed.WrappedKey)
			assert.NotEmpty(t, sealed.Hash)
			assert.True(t, sealer.Verify(ctx, "vote-1", sealed))

			opened, err := sealer.Unseal(ctx, "vote-1", sealed)
			require.NoError(t, err)
			assert.Equal(t, ballot.ElectionID, opened.ElectionID)
			assert.Equal(t, ballot.VoterID, opened.VoterID)
			assert.Equal(t, ballot.CandidateID, opened.CandidateID)
		})

		t.Run("tampered wrapped key fails unseal", func(t *testing.T) {
			sealer := seal.New(provider)
			sealed, err := sealer.Seal(ctx, seal.Ballot{
				ElectionID:  "election-1",
				VoterID:     "voter-2",
				CandidateID: "candidate-2",
				CastAt:      time.Now().UTC(),
			})
			require.NoError(t, err)

			sealed.WrappedKey = []byte("vault:v1:garbage")
			_, err = sealer.Unseal(ctx, "vote-2", sealed)
			require.Error(t, err)
		})
	})
}
