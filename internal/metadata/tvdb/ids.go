package tvdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

var ErrBadID = errors.New("unusable TVDB identifier")

// decodeID normalizes the heterogeneous identifier encodings TVDB uses:
// a JSON number, a numeric string, or a composite string such as
// "series-81189". Failure to extract a positive integer is a decode
// error, never a silent zero.
func decodeID(raw json.RawMessage, objectID string) (int, error) {
	if len(raw) > 0 {
		var value interface{}
		if err := json.Unmarshal(raw, &value); err == nil {
			if id, err := cast.ToIntE(value); err == nil && id > 0 {
				return id, nil
			}
			if s, ok := value.(string); ok {
				if id, err := compositeID(s); err == nil {
					return id, nil
				}
			}
		}
	}

	if objectID != "" {
		if id, err := compositeID(objectID); err == nil {
			return id, nil
		}
	}

	return 0, fmt.Errorf("%w: id=%s objectID=%q", ErrBadID, string(raw), objectID)
}

// compositeID extracts the trailing numeric component from composite
// identifiers like "series-81189" or "episode-42".
func compositeID(s string) (int, error) {
	part := s
	if idx := strings.LastIndex(s, "-"); idx >= 0 {
		part = s[idx+1:]
	}
	id, err := cast.ToIntE(part)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadID, s)
	}
	return id, nil
}
