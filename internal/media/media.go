// Package media stores uploaded viewer audio and hands back a reference
// the ASR service can read.
package media

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// objectName — уникальное безопасное имя: <ulid>-<name>.
func objectName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = unsafeChars.ReplaceAllString(base, "_")
	if base == "" || base == "." || base == "_" {
		base = "audio.wav"
	}
	return ulid.Make().String() + "-" + base
}
