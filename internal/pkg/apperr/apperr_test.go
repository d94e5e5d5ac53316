package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_MatchesCategory(t *testing.T) {
	assert.True(t, errors.Is(ErrQuotaExceeded, ErrConflict))
	assert.True(t, errors.Is(ErrQuotaExceeded, ErrQuotaExceeded))
	assert.False(t, errors.Is(ErrQuotaExceeded, ErrNotFound))
	assert.False(t, errors.Is(ErrQuotaExceeded, ErrSubscriptionNotActive))
}

func TestError_WrappedWithContext(t *testing.T) {
	err := fmt.Errorf("redeem 42: %w", ErrQuotaExceeded)

	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, ErrConflict, CategoryOf(err))
}

func TestWrap(t *testing.T) {
	base := errors.New("connection refused")
	err := Wrap(ErrTransient, base, "list subscriptions")

	assert.ErrorIs(t, err, base)
	assert.ErrorIs(t, err, ErrTransient)
	assert.True(t, IsTransient(err))
	assert.Equal(t, "list subscriptions: connection refused", err.Error())

	assert.NoError(t, Wrap(ErrTransient, nil, "noop"))
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{ErrInvalidQuantity, ErrValidation},
		{ErrQuantityOverLimit, ErrValidation},
		{ErrPlanUnavailable, ErrNotFound},
		{ErrOrderAlreadySettled, ErrConflict},
		{ErrInvalidPayload, ErrDecode},
		{ErrCustomerUnauthenticated, ErrUnauthorized},
		{ErrStaffOnly, ErrForbidden},
		{errors.New("boom"), nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CategoryOf(tt.err), tt.err.Error())
	}
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(ErrQuotaExceeded))
	assert.False(t, IsRetryable(fmt.Errorf("settle: %w", ErrAmountMismatch)))
	assert.True(t, IsRetryable(errors.New("database is locked")))
	assert.True(t, IsRetryable(Wrap(ErrTransient, errors.New("dial tcp"), "gateway")))
}
