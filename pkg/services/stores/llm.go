package stores

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/liut/parley/pkg/models/aigc"
	"github.com/liut/parley/pkg/settings"
)

var (
	ErrEmptyResponse = errors.New("empty response from model")
	ErrNoCredential  = errors.New("missing api key")
)

const (
	ocrInstruction        = "Extrae todo el texto visible en esta imagen, tal cual aparece. Si no hay texto, responde con una cadena vacía."
	transcribeInstruction = "Transcribe literalmente el audio. Si no se entiende nada, responde con una cadena vacía."
)

// answerOf rejects a blank answer, as from a filtered candidate
func answerOf(text string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if len(strings.TrimSpace(text)) == 0 {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Generator sends a composed prompt to a generative model
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// InteractAI covers text generation, image text recognition and speech to text
type InteractAI interface {
	Generator
	Recognize(ctx context.Context, data []byte, mimeType string) (string, error)
	Transcribe(ctx context.Context, path string) (string, error)
	Close() error
}

// NewInteractAI 按配置创建客户端
func NewInteractAI(ctx context.Context, cfg *settings.Config, preset *aigc.Preset) (InteractAI, error) {
	if len(cfg.APIKey()) == 0 {
		return nil, fmt.Errorf("%w for provider %s", ErrNoCredential, cfg.Provider())
	}
	switch cfg.Provider() {
	case settings.ProviderOpenAI:
		return newOpenAIInteract(cfg, preset), nil
	}
	g, err := newGeminiInteract(ctx, cfg, preset)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func audioMIMEType(path string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "wav":
		return "audio/wav"
	case "mp3":
		return "audio/mp3"
	case "ogg", "oga", "opus":
		return "audio/ogg"
	case "flac":
		return "audio/flac"
	case "aac", "m4a":
		return "audio/aac"
	case "webm":
		return "audio/webm"
	}
	return "application/octet-stream"
}
