package api

import (
	"errors"
	"net/http"

	"github.com/solatis/mmdsgate/internal/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// HTTPStatusTrailer carries the HTTP status the front end should answer with
// when a request is rejected.
const HTTPStatusTrailer = "x-mmds-http-status"

// statusFromError maps a translation failure to the HTTP status for the front
// end and the gRPC status returned to the caller. Anything that is not a
// request error or an oversized body is a queue failure.
func statusFromError(err error) (int, error) {
	var reqErr *types.RequestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.HTTPStatus(), status.Error(codes.InvalidArgument, reqErr.Error())
	case errors.Is(err, types.ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, status.Error(codes.ResourceExhausted, err.Error())
	default:
		return http.StatusServiceUnavailable, status.Error(codes.Unavailable, err.Error())
	}
}
