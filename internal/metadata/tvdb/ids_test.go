package tvdb

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeID(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		objectID string
		want     int
		wantErr  bool
	}{
		{"json number", `81189`, "", 81189, false},
		{"numeric string", `"81189"`, "", 81189, false},
		{"composite string", `"series-81189"`, "", 81189, false},
		{"object id fallback", `null`, "series-81189", 81189, false},
		{"missing raw uses object id", ``, "episode-42", 42, false},
		{"zero id rejected", `0`, "", 0, true},
		{"negative id rejected", `-5`, "", 0, true},
		{"garbage string", `"not-an-id"`, "", 0, true},
		{"nothing usable", `null`, "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw json.RawMessage
			if tt.raw != "" {
				raw = json.RawMessage(tt.raw)
			}

			got, err := decodeID(raw, tt.objectID)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("decodeID(%s, %q) expected error, got %d", tt.raw, tt.objectID, got)
				}
				if !errors.Is(err, ErrBadID) {
					t.Errorf("decodeID error = %v, want ErrBadID", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeID(%s, %q) error = %v", tt.raw, tt.objectID, err)
			}
			if got != tt.want {
				t.Errorf("decodeID(%s, %q) = %d, want %d", tt.raw, tt.objectID, got, tt.want)
			}
		})
	}
}
