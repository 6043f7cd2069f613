package mmds

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/solatis/mmdsgate/internal/types"
)

// RoutePrefix is the first path segment of every MMDS control-plane request.
const RoutePrefix = "mmds"

// SplitPath tokenizes an MMDS request path, dropping empty segments.
// ok is false when the first segment is not RoutePrefix. token is the
// second segment, nil for the bare path; later segments are not consulted.
func SplitPath(path string) (token *string, ok bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 || segments[0] != RoutePrefix {
		return nil, false
	}
	if len(segments) == 1 {
		return nil, true
	}
	second := segments[1]
	return &second, true
}

// Translate dispatches a full request by method and path.
// Methods other than GET, PUT and PATCH are rejected without touching counters.
func (t *Translator) Translate(method, path string, body []byte) (types.ParsedRequest, error) {
	token, ok := SplitPath(path)
	if !ok {
		return types.ParsedRequest{}, invalidPathMethod(method, path)
	}

	switch strings.ToUpper(method) {
	case http.MethodGet:
		return t.TranslateGet(token)
	case http.MethodPut:
		return t.TranslatePut(body, token)
	case http.MethodPatch:
		if token != nil {
			return types.ParsedRequest{}, invalidPathMethod(method, path)
		}
		return t.TranslatePatch(body)
	default:
		return types.ParsedRequest{}, invalidPathMethod(method, path)
	}
}

func invalidPathMethod(method, path string) *types.RequestError {
	return types.NewMalformed(
		http.StatusBadRequest,
		fmt.Sprintf("Invalid request method and/or path: %s %s.", strings.ToUpper(method), path),
	)
}
