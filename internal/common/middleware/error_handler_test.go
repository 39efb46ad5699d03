package middleware_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"monad-deathmatch-backend/internal/common/errors"
	"monad-deathmatch-backend/internal/common/middleware"
)

func TestHTTPStatus(t *testing.T) {
	cause := stderrors.New("x")
	cases := []struct {
		err  *errors.AppError
		want int
	}{
		{errors.NewValidationError("body", "bad"), http.StatusBadRequest},
		{errors.NewPreconditionError("join", "Arena is full"), http.StatusUnprocessableEntity},
		{errors.NewMountNotFoundError("m1"), http.StatusNotFound},
		{errors.NewIdentityAbsentError("wallet"), http.StatusUnauthorized},
		{errors.NewForbiddenError("invalid bridge secret"), http.StatusForbidden},
		{errors.NewActionBusyError("join", "submitting"), http.StatusConflict},
		{errors.NewWriteRejectedError("bet", cause), http.StatusBadGateway},
		{errors.NewReadFailureError("participants", cause), http.StatusServiceUnavailable},
		{errors.NewCacheError("get", cause), http.StatusServiceUnavailable},
		{errors.NewDatabaseError("upsert", cause), http.StatusInternalServerError},
		{errors.New(errors.ErrCodeInternal, "boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, middleware.HTTPStatus(tc.err), string(tc.err.Code))
	}
}
