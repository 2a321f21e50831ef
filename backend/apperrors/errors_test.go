package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFollowsWrappedSentinel(t *testing.T) {
	err := fmt.Errorf("enroll course 42: %w", ErrAlreadyEnrolled)

	assert.True(t, errors.Is(err, ErrAlreadyEnrolled))
	assert.Equal(t, http.StatusBadRequest, Status(err))
	assert.True(t, IsKind(err, KindConflict))
}

func TestStatusDefaultsToInternal(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("boom")))
	assert.Nil(t, As(errors.New("boom")))
}

func TestExplicitStatusOverridesKind(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, Status(ErrAlreadyReviewed))
	assert.Equal(t, http.StatusNotFound, Status(ErrSubSectionNotFound))
	assert.Equal(t, "ExternalServiceError", ErrEmailDelivery.Kind.String())
}
