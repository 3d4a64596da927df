package scanner

import (
	"path/filepath"
	"strings"
)

// VideoExtensions contains supported video file extensions.
var VideoExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".avi":  true,
	".m4v":  true,
	".mov":  true,
	".webm": true,
	".wmv":  true,
	".ts":   true,
}

// IsVideoFile checks if a filename has a video extension. Matching is
// case-insensitive and extension-only.
func IsVideoFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return VideoExtensions[ext]
}
