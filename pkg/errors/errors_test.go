// Package errors_test contains tests for error types.
package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgErrors "github.com/Om7972/votesecure-online-sub000/pkg/errors"
)

func TestValidationError(t *testing.T) {
	t.Run("creates validation error", func(t *testing.T) {
		err := pkgErrors.NewValidationError("voter_id", "must not be empty")

		assert.Equal(t, "voter_id", err.Field)
		assert.Equal(t, "must not be empty", err.Message)
		assert.Contains(t, err.Error(), "voter_id")
		assert.Contains(t, err.Error(), "must not be empty")
	})
}

func TestValidationFailedError(t *testing.T) {
	t.Run("carries failed check types", func(t *testing.T) {
		err := pkgErrors.NewValidationFailedError([]string{"candidate_valid", "time_window"})

		assert.Equal(t, []string{"candidate_valid", "time_window"}, err.FailedChecks)
		assert.Contains(t, err.Error(), "candidate_valid")
	})

	t.Run("unwraps to the validation sentinel", func(t *testing.T) {
		err := pkgErrors.NewValidationFailedError([]string{"voter_eligible"})

		assert.ErrorIs(t, err, pkgErrors.ErrValidationFailed)
	})

	t.Run("recoverable from a wrapped chain", func(t *testing.T) {
		err := fmt.Errorf("cast rejected: %w", pkgErrors.NewValidationFailedError([]string{"duplicate_vote"}))

		var vfe *pkgErrors.ValidationFailedError
		require.ErrorAs(t, err, &vfe)
		assert.Equal(t, []string{"duplicate_vote"}, vfe.FailedChecks)
	})
}

func TestIntegrityError(t *testing.T) {
	t.Run("creates integrity error with cause", func(t *testing.T) {
		cause := errors.New("cipher: message authentication failed")
		err := pkgErrors.NewIntegrityError("vote-1", "decrypt failed", cause)

		assert.Equal(t, "vote-1", err.VoteID)
		assert.Equal(t, cause, err.Cause)
		assert.Contains(t, err.Error(), "vote-1")
		assert.Contains(t, err.Error(), "decrypt failed")
	})

	t.Run("matches the integrity sentinel even with a cause", func(t *testing.T) {
		cause := errors.New("hash mismatch")
		err := pkgErrors.NewIntegrityError("vote-1", "content hash mismatch", cause)

		assert.ErrorIs(t, err, pkgErrors.ErrIntegrity)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("matches the sentinel without a cause", func(t *testing.T) {
		err := pkgErrors.NewIntegrityError("vote-2", "missing sealed payload", nil)

		assert.ErrorIs(t, err, pkgErrors.ErrIntegrity)
	})
}

func TestTransitionError(t *testing.T) {
	t.Run("describes the rejected transition", func(t *testing.T) {
		err := pkgErrors.NewTransitionError("vote-1", "cast", "counted")

		assert.Contains(t, err.Error(), "vote-1")
		assert.Contains(t, err.Error(), "cast")
		assert.Contains(t, err.Error(), "counted")
	})

	t.Run("unwraps to the transition sentinel", func(t *testing.T) {
		err := pkgErrors.NewTransitionError("vote-1", "invalidated", "verified")

		assert.ErrorIs(t, err, pkgErrors.ErrInvalidTransition)
	})
}

func TestSentinelWrapping(t *testing.T) {
	t.Run("wrapped sentinels survive fmt.Errorf chains", func(t *testing.T) {
		err := fmt.Errorf("update vote: %w",
			fmt.Errorf("vote changed concurrently: %w", pkgErrors.ErrStorageConflict))

		assert.ErrorIs(t, err, pkgErrors.ErrStorageConflict)
		assert.False(t, errors.Is(err, pkgErrors.ErrConflict))
	})

	t.Run("helpers delegate to the standard library", func(t *testing.T) {
		err := fmt.Errorf("lookup: %w", pkgErrors.ErrNotFound)

		assert.True(t, pkgErrors.Is(err, pkgErrors.ErrNotFound))

		var vfe *pkgErrors.ValidationFailedError
		assert.False(t, pkgErrors.As(err, &vfe))
	})
}
