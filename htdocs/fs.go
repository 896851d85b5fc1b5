package htdocs

import (
	"embed"
	"io/fs"
)

//go:embed templates static
var static embed.FS

func FS() fs.FS {
	return &static
}
