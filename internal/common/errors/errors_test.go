package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "monad-deathmatch-backend/internal/common/errors"
)

func TestAsAppError_SeesThroughWrapping(t *testing.T) {
	base := apperrors.NewPreconditionError("join", "You have already joined this arena")
	wrapped := fmt.Errorf("join flow: %w", base)

	got, ok := apperrors.AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodePrecondition, got.Code)
	assert.Equal(t, "You have already joined this arena", got.Message)
	assert.True(t, apperrors.HasCode(wrapped, apperrors.ErrCodePrecondition))
}

func TestAsAppError_PlainError(t *testing.T) {
	_, ok := apperrors.AsAppError(stderrors.New("boom"))
	assert.False(t, ok)

	_, ok = apperrors.AsAppError(nil)
	assert.False(t, ok)
}

func TestWriteRejected_KeepsChainMessageVerbatim(t *testing.T) {
	chainErr := stderrors.New("execution reverted: pool is full")
	appErr := apperrors.NewWriteRejectedError("bet", chainErr)

	assert.Equal(t, "execution reverted: pool is full", appErr.Message)
	assert.ErrorIs(t, appErr, chainErr)
	assert.Equal(t, "bet", appErr.Details["action"])
}

func TestClassification(t *testing.T) {
	assert.True(t, apperrors.NewMountNotFoundError("m1").IsNotFound())
	assert.True(t, apperrors.NewIdentityAbsentError("wallet").IsUnauthorized())
	assert.True(t, apperrors.NewPreconditionError("bet", "Minimum bet is 0.1 MON").IsValidation())
	assert.True(t, apperrors.NewDatabaseError("upsert", stderrors.New("x")).IsInternal())
}

func TestWrap_CauseAndMessage(t *testing.T) {
	cause := stderrors.New("dial tcp: refused")
	appErr := apperrors.Wrap(cause, apperrors.ErrCodeInternal, "Failed to build arena view")

	assert.Equal(t, "[INTERNAL_ERROR] Failed to build arena view: dial tcp: refused", appErr.Error())
	assert.ErrorIs(t, appErr, cause)
	assert.False(t, appErr.Timestamp.IsZero())
}
