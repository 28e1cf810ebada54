// Package assets embeds the default topic list and translation bundles so the
// bot can run without any files next to the binary.
package assets

import (
	"embed"

	"github.com/spf13/afero"
)

const (
	TopicsFile = "languages"
	LangDir    = "lang"
)

//go:embed languages lang/*.json
var files embed.FS

// FS exposes the embedded files as a read-only afero filesystem.
func FS() afero.Fs {
	return afero.FromIOFS{FS: files}
}
