package metrics

import (
	"errors"
	"strings"

	"github.com/plustik/kasten/pkg/kv"
	"github.com/plustik/kasten/pkg/metadata"
)

// Status maps an operation error to a low-cardinality label value:
// "success", a snake_case error code such as "no_such_file", "conflict" for
// exhausted transaction retries, or "error" for anything else.
func Status(err error) string {
	if err == nil {
		return "success"
	}
	if code, ok := metadata.CodeOf(err); ok {
		return strings.ReplaceAll(code.String(), " ", "_")
	}
	if errors.Is(err, kv.ErrConflict) {
		return "conflict"
	}
	return "error"
}
