package settings

import (
	"log"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// consts
const (
	Name = "Parley"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config ...
type Config struct {
	Name    string `ignored:"true"`
	Version string `ignored:"true"`
	Develop bool   `envconfig:"DEVELOP"`

	HTTPListen   string `envconfig:"HTTP_LISTEN" default:":5001"`
	CookieName   string `envconfig:"Cookie_Name" default:"parley_sid"`
	CookiePath   string `envconfig:"Cookie_Path" default:"/"`
	CookieDomain string `envconfig:"Cookie_Domain"`
	CookieMaxAge int    `envconfig:"Cookie_MaxAge" default:"2592000"`
	CookieSecure bool   `envconfig:"Cookie_Secure"`

	SessionBackend  string        `envconfig:"SESSION_BACKEND" default:"file"` // file | memory | redis
	SessionDir      string        `envconfig:"SESSION_DIR" default:"./flask_session"`
	SessionLifetime time.Duration `envconfig:"SESSION_LIFETIME" default:"720h"`
	RedisURI        string        `envconfig:"redis_uri" default:"redis://localhost:6379/1"`

	UploadDir   string `envconfig:"UPLOAD_DIR" default:"./uploads"`
	MaxUploadMB int64  `envconfig:"MAX_UPLOAD_MB" default:"16"`
	MaxPixels   int64  `envconfig:"MAX_IMAGE_PIXELS" default:"50000000"`
	AudioFormat string `envconfig:"AUDIO_FORMAT" default:"wav"` // 语音识别要求的容器格式
	FFmpegPath  string `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	PredictRate string `envconfig:"PREDICT_RATE" default:"30-M"`

	LLMProvider   string `envconfig:"LLM_PROVIDER" default:"gemini"` // gemini | openai
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	OpenAIAPIKey  string `envconfig:"openAi_Api_Key"`
	OpenAIAPIBase string `envconfig:"openAi_Api_Base"`
	ChatModel     string `envconfig:"CHAT_MODEL" default:"gemini-1.5-flash"`
	VisionModel   string `envconfig:"VISION_MODEL"`
	STTModel      string `envconfig:"STT_MODEL" default:"whisper-1"`
	STTLanguage   string `envconfig:"STT_LANGUAGE" default:"es"`

	PresetFile string `envconfig:"preset_file"`
}

var (
	// Current 当前配置
	Current = new(Config)
)

func init() {
	if err := envconfig.Process(Name, Current); err != nil {
		log.Printf("envconfig process fail: %s", err)
	}

	Current.Name = Name
	Current.Version = version
}

// Usage 打印配置帮助
func Usage() error {
	log.Printf("ver: %s", Current.Version)
	return envconfig.Usage(Current.Name, Current)
}

// InDevelop ...
func InDevelop() bool {
	return Current.Develop
}

// Provider returns the normalized provider name
func (c *Config) Provider() string {
	if strings.EqualFold(c.LLMProvider, ProviderOpenAI) {
		return ProviderOpenAI
	}
	return ProviderGemini
}

// APIKey returns the credential of the configured provider
func (c *Config) APIKey() string {
	if c.Provider() == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// GetVisionModel falls back to the chat model
func (c *Config) GetVisionModel() string {
	if len(c.VisionModel) > 0 {
		return c.VisionModel
	}
	return c.ChatModel
}

// MaxUploadBytes ...
func (c *Config) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 16 << 20
	}
	return c.MaxUploadMB << 20
}
