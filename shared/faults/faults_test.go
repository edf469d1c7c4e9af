package faults

import (
	"errors"
	"io"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name         string
		err          error
		isValidation bool
		isConflict   bool
		isTransient  bool
	}{
		{"validation", Validation(base), true, false, false},
		{"conflict", Conflict(base), false, true, false},
		{"transient", Transient(base), false, false, true},
		{"plain error", base, false, false, false},
		{"formatted validation", Validationf("missing %s", "orderId"), true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isValidation, IsValidation(tt.err))
			assert.Equal(t, tt.isConflict, IsConflict(tt.err))
			assert.Equal(t, tt.isTransient, IsTransient(tt.err))
		})
	}
}

func TestNilPassthrough(t *testing.T) {
	assert.NoError(t, Validation(nil))
	assert.NoError(t, Conflict(nil))
	assert.NoError(t, Transient(nil))
}

func TestUnwrapPreservesCause(t *testing.T) {
	err := Transient(pkgerrors.Wrap(io.EOF, "reading payment response"))

	assert.True(t, IsTransient(err))
	assert.ErrorIs(t, err, io.EOF)
	assert.Contains(t, err.Error(), "reading payment response")
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	err := pkgerrors.Wrap(Conflict(errors.New("order already cancelled")), "handling payment.response")

	assert.True(t, IsConflict(err))
	assert.False(t, IsTransient(err))
}
