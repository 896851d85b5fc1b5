package stores

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/liut/parley/pkg/models/aigc"
	"github.com/liut/parley/pkg/settings"
)

type geminiInteract struct {
	client      *genai.Client
	chatModel   string
	visionModel string
	temperature float32
}

func newGeminiInteract(ctx context.Context, cfg *settings.Config, preset *aigc.Preset) (*geminiInteract, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	g := &geminiInteract{
		client:      client,
		chatModel:   cfg.ChatModel,
		visionModel: cfg.GetVisionModel(),
	}
	if preset != nil {
		if len(preset.Model) > 0 {
			g.chatModel = preset.Model
		}
		g.temperature = preset.Temperature
	}
	return g, nil
}

func (g *geminiInteract) Name() string { return "Gemini" }

func (g *geminiInteract) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.chatModel)
	if g.temperature > 0 {
		model.SetTemperature(g.temperature)
	}
	return answerOf(g.generate(ctx, model, genai.Text(prompt)))
}

func (g *geminiInteract) Recognize(ctx context.Context, data []byte, mimeType string) (string, error) {
	format := strings.TrimPrefix(mimeType, "image/")
	model := g.client.GenerativeModel(g.visionModel)
	return g.generate(ctx, model, genai.ImageData(format, data), genai.Text(ocrInstruction))
}

func (g *geminiInteract) Transcribe(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	model := g.client.GenerativeModel(g.chatModel)
	blob := genai.Blob{MIMEType: audioMIMEType(path), Data: data}
	return g.generate(ctx, model, blob, genai.Text(transcribeInstruction))
}

func (g *geminiInteract) generate(ctx context.Context, model *genai.GenerativeModel, parts ...genai.Part) (string, error) {
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return geminiText(resp), nil
}

// geminiText joins the text parts of the first candidate
func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

func (g *geminiInteract) Close() error {
	return g.client.Close()
}
