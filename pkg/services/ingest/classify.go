// Package ingest turns uploaded files into prompt text.
package ingest

import (
	"path/filepath"
	"strings"
)

// Kind of an uploaded file, decided by extension only
type Kind string

const (
	KindImage       Kind = "image"
	KindAudio       Kind = "audio"
	KindText        Kind = "text"
	KindUnsupported Kind = "unsupported"
)

var kindByExt = map[string]Kind{
	"png": KindImage, "jpg": KindImage, "jpeg": KindImage, "gif": KindImage,
	"bmp": KindImage, "webp": KindImage, "tif": KindImage, "tiff": KindImage,

	"mp3": KindAudio, "wav": KindAudio, "ogg": KindAudio, "oga": KindAudio,
	"flac": KindAudio, "m4a": KindAudio, "aac": KindAudio, "webm": KindAudio,
	"opus": KindAudio,

	"txt": KindText, "md": KindText, "csv": KindText, "json": KindText, "log": KindText,
}

// Ext returns the lowercased extension without dot
func Ext(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Classify maps a file name to its Kind
func Classify(name string) Kind {
	if k, ok := kindByExt[Ext(name)]; ok {
		return k
	}
	return KindUnsupported
}

// Supported reports whether the file would be extracted
func (k Kind) Supported() bool {
	return k == KindImage || k == KindAudio || k == KindText
}

func (k Kind) String() string { return string(k) }
