package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRejectionUnwrapsToReason(t *testing.T) {
	err := Reject(ErrMassBalanceViolation, "input %s < output %s", "100", "105")
	require.ErrorIs(t, err, ErrMassBalanceViolation)
	assert.Equal(t, "mass balance violation: input 100 < output 105", err.Error())

	wrapped := fmt.Errorf("admit printing: %w", err)
	assert.ErrorIs(t, wrapped, ErrMassBalanceViolation)

	var rej *Rejection
	require.True(t, errors.As(wrapped, &rej))
	assert.Equal(t, "input 100 < output 105", rej.Detail)
}

func TestRejectionWithoutDetail(t *testing.T) {
	err := &Rejection{Reason: ErrOrderNotReady}
	assert.Equal(t, ErrOrderNotReady.Error(), err.Error())
}

func TestRejectionCode(t *testing.T) {
	cases := map[error]string{
		ErrInvalidDateRange:                        "invalid_date_range",
		fmt.Errorf("x: %w", ErrDependencyConflict): "dependency_conflict",
		Reject(ErrMachineDisabled, "M-01"):         "machine_disabled",
		ErrIdempotencyConflict:                     "duplicate",
		errors.New("unrelated"):                    "",
	}
	for err, want := range cases {
		assert.Equal(t, want, RejectionCode(err), err.Error())
	}
}

func TestPagination(t *testing.T) {
	p := NewPagination(0, 0, 45)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 0, p.Offset())

	p = NewPagination(3, 10, 45)
	assert.Equal(t, 20, p.Offset())
	assert.Equal(t, 5, p.TotalPages)
}
