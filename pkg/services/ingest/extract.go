package ingest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // decoder
	_ "image/jpeg" // decoder
	"image/png"
	"io"
	"os"
	"strings"

	_ "golang.org/x/image/bmp"  // decoder
	_ "golang.org/x/image/tiff" // decoder
	_ "golang.org/x/image/webp" // decoder

	"github.com/cupogo/andvari/utils/zlog"
)

// OCR recognizes text in an encoded image
type OCR interface {
	Recognize(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Transcriber converts speech in an audio file to text
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// UploadedFile lives for one request
type UploadedFile struct {
	Name string
	Kind Kind
	Path string // in the scratch dir, empty for unsupported
	Size int64
}

// DefaultMaxPixels bounds the decoded size of an image, about 200 MiB as RGBA
const DefaultMaxPixels = 50_000_000

// Extractor dispatches a file to the reader of its kind
type Extractor struct {
	OCR         OCR
	Transcriber Transcriber
	Transcoder  Transcoder
	AudioFormat string // container required by the transcriber
	MaxPixels   int64  // width*height accepted for decoding, DefaultMaxPixels if <= 0
}

func (e *Extractor) maxPixels() int64 {
	if e.MaxPixels > 0 {
		return e.MaxPixels
	}
	return DefaultMaxPixels
}

// Extract returns prompt text for f. Unreadable content and remote service failures
// become placeholder text, only local I/O errors are returned.
func (e *Extractor) Extract(ctx context.Context, f *UploadedFile) (string, error) {
	switch f.Kind {
	case KindText:
		b, err := os.ReadFile(f.Path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", f.Name, err)
		}
		return string(b), nil
	case KindImage:
		return e.extractImage(ctx, f)
	case KindAudio:
		return e.extractAudio(ctx, f)
	}
	return UnsupportedFile, nil
}

// ocr backends take these as they are
var passThrough = map[string]bool{"png": true, "jpeg": true, "webp": true}

func (e *Extractor) extractImage(ctx context.Context, f *UploadedFile) (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f.Name, err)
	}
	// 先读尺寸, 拒绝解码炸弹
	ic, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		logger().Infow("decode image config fail", "name", f.Name, "err", err)
		return UnreadableImage, nil
	}
	if px := int64(ic.Width) * int64(ic.Height); px > e.maxPixels() {
		logger().Infow("image too large", "name", f.Name, "width", ic.Width, "height", ic.Height)
		return UnreadableImage, nil
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		logger().Infow("decode image fail", "name", f.Name, "err", err)
		return UnreadableImage, nil
	}
	if !passThrough[format] {
		var buf bytes.Buffer
		if err = png.Encode(&buf, img); err != nil {
			logger().Infow("encode png fail", "name", f.Name, "format", format, "err", err)
			return UnreadableImage, nil
		}
		data, format = buf.Bytes(), "png"
	}

	text, err := e.OCR.Recognize(ctx, data, "image/"+format)
	if err != nil {
		logger().Infow("ocr fail", "name", f.Name, "err", err)
		return OCRServiceFailure(err), nil
	}
	if text = strings.TrimSpace(text); len(text) == 0 {
		return NoTextInImage, nil
	}
	return text, nil
}

func (e *Extractor) extractAudio(ctx context.Context, f *UploadedFile) (string, error) {
	path := f.Path
	if want := strings.ToLower(e.AudioFormat); len(want) > 0 && Ext(path) != want {
		dst, err := e.Transcoder.Transcode(ctx, path, want)
		if err != nil {
			logger().Infow("transcode fail", "name", f.Name, "err", err)
			return UnintelligibleAudio, nil
		}
		defer os.Remove(dst)
		path = dst
	}

	text, err := e.Transcriber.Transcribe(ctx, path)
	if err != nil {
		logger().Infow("transcribe fail", "name", f.Name, "err", err)
		return SpeechServiceFailure(err), nil
	}
	if text = strings.TrimSpace(text); len(text) == 0 {
		return UnintelligibleAudio, nil
	}
	return text, nil
}

// Scratch stores uploads on local disk
type Scratch struct {
	Dir string
}

// Save classifies name and writes r into the scratch dir, unsupported files are not written
func (s *Scratch) Save(name string, r io.Reader) (*UploadedFile, error) {
	f := &UploadedFile{Name: name, Kind: Classify(name)}
	if !f.Kind.Supported() {
		return f, nil
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	out, err := os.CreateTemp(s.Dir, "upload-*."+Ext(name))
	if err != nil {
		return nil, fmt.Errorf("create upload: %w", err)
	}
	defer out.Close()
	f.Path = out.Name()
	if f.Size, err = io.Copy(out, r); err != nil {
		_ = os.Remove(f.Path)
		return nil, fmt.Errorf("write upload: %w", err)
	}
	return f, nil
}

func logger() zlog.Logger {
	return zlog.Get()
}
