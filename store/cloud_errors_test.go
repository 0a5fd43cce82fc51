package store

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestS3ErrorMapping(t *testing.T) {
	require.True(t, isS3NotFound(&types.NoSuchKey{}))
	require.True(t, isS3NotFound(fmt.Errorf("get: %w", &smithy.GenericAPIError{Code: "NotFound"})))
	require.False(t, isS3NotFound(errors.New("timeout")))

	for _, code := range []string{"PreconditionFailed", "ConditionalRequestConflict"} {
		err := fmt.Errorf("put: %w", &smithy.GenericAPIError{Code: code})
		require.True(t, isS3PreconditionFailed(err), code)
	}
	require.False(t, isS3PreconditionFailed(&smithy.GenericAPIError{Code: "AccessDenied"}))
	require.False(t, isS3PreconditionFailed(errors.New("boom")))
}

func TestGCSErrorMapping(t *testing.T) {
	require.True(t, isGCSPreconditionFailed(fmt.Errorf("close: %w", &googleapi.Error{Code: http.StatusPreconditionFailed})))
	require.False(t, isGCSPreconditionFailed(&googleapi.Error{Code: http.StatusForbidden}))
	require.False(t, isGCSPreconditionFailed(errors.New("boom")))
}
