package stores

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/liut/parley/pkg/models/aigc"
	"github.com/liut/parley/pkg/settings"
)

const (
	openaiTimeout = time.Second * 60
)

func NewOpenAIClient(cfg *settings.Config) *openai.Client {
	occ := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if len(cfg.OpenAIAPIBase) > 0 {
		occ.BaseURL = cfg.OpenAIAPIBase
	}
	occ.HTTPClient = &http.Client{
		Timeout:   openaiTimeout,
		Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
	}
	return openai.NewClientWithConfig(occ)
}

type openaiInteract struct {
	oc          *openai.Client
	chatModel   string
	visionModel string
	sttModel    string
	language    string
	temperature float32
}

func newOpenAIInteract(cfg *settings.Config, preset *aigc.Preset) *openaiInteract {
	o := &openaiInteract{
		oc:          NewOpenAIClient(cfg),
		chatModel:   cfg.ChatModel,
		visionModel: cfg.GetVisionModel(),
		sttModel:    cfg.STTModel,
		language:    cfg.STTLanguage,
	}
	if strings.HasPrefix(o.chatModel, "gemini") {
		o.chatModel = openai.GPT4oMini
	}
	if strings.HasPrefix(o.visionModel, "gemini") {
		o.visionModel = openai.GPT4oMini
	}
	if preset != nil {
		if len(preset.Model) > 0 {
			o.chatModel = preset.Model
		}
		o.temperature = preset.Temperature
	}
	return o
}

func (o *openaiInteract) Name() string { return "OpenAI" }

func (o *openaiInteract) Generate(ctx context.Context, prompt string) (string, error) {
	return answerOf(o.complete(ctx, o.chatModel, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	}))
}

func (o *openaiInteract) Recognize(ctx context.Context, data []byte, mimeType string) (string, error) {
	uri := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	return o.complete(ctx, o.visionModel, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: ocrInstruction},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: uri}},
		},
	})
}

func (o *openaiInteract) Transcribe(ctx context.Context, path string) (string, error) {
	res, err := o.oc.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.sttModel,
		FilePath: path,
		Language: o.language,
	})
	if err != nil {
		return "", err
	}
	logger().Infow("transcription done", "path", path, "text", len(res.Text))
	return res.Text, nil
}

func (o *openaiInteract) complete(ctx context.Context, model string, msg openai.ChatCompletionMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    []openai.ChatCompletionMessage{msg},
		Temperature: o.temperature,
	}
	res, err := o.oc.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return res.Choices[0].Message.Content, nil
}

func (o *openaiInteract) Close() error { return nil }
