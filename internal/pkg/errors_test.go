package pkg

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
	}{
		{Validation("bad"), KindValidation},
		{fmt.Errorf("wrap: %w", Forbidden("no")), KindForbidden},
		{gorm.ErrRecordNotFound, KindNotFound},
		{fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), KindConflict},
		{errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, KindOf(tc.err), tc.err.Error())
	}
}

func TestPublicMessageHidesInternals(t *testing.T) {
	assert.Equal(t, "failed", PublicMessage(errors.New("dial tcp 10.0.0.1: refused"), "failed"))
	assert.Equal(t, "text is required", PublicMessage(Validation("text is required"), "failed"))
	assert.Equal(t, "not found", PublicMessage(gorm.ErrRecordNotFound, "failed"))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, KindValidation.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, KindUnauthenticated.HTTPStatus())
	assert.Equal(t, http.StatusForbidden, KindForbidden.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, KindNotFound.HTTPStatus())
	assert.Equal(t, http.StatusConflict, KindConflict.HTTPStatus())
	assert.Equal(t, http.StatusServiceUnavailable, KindUnavailable.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, KindInternal.HTTPStatus())
}
