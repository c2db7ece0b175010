package errors_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/oggyb/matchbot/internal/errors"
	"github.com/oggyb/matchbot/internal/store"
	"github.com/oggyb/matchbot/internal/utils/pagination"
)

func TestMap(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{store.ErrNotFound, codes.NotFound},
		{fmt.Errorf("wrapped: %w", store.ErrNotFound), codes.NotFound},
		{store.ErrSelfReaction, codes.InvalidArgument},
		{store.ErrInvalidReaction, codes.InvalidArgument},
		{fmt.Errorf("list: %w", pagination.ErrInvalidToken), codes.InvalidArgument},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{context.Canceled, codes.Canceled},
		{fmt.Errorf("boom"), codes.Internal},
		{apperrors.InvalidArgument("bad id"), codes.InvalidArgument},
	}
	for _, c := range cases {
		assert.Equal(t, c.code, status.Code(apperrors.Map(c.err)), c.err.Error())
	}
	assert.NoError(t, apperrors.Map(nil))
}
