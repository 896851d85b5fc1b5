package aigc

import "strings"

type Message struct {
	Role    string `json:"role,omitempty" yaml:"role,omitempty"`
	Content string `json:"content" yaml:"content"`
}

type Messages []Message

// Preset loaded from yaml
type Preset struct {
	SystemPrompt string   `json:"systemPrompt,omitempty" yaml:"systemPrompt,omitempty"`
	Welcome      *Message `json:"welcome,omitempty" yaml:"welcome,omitempty"`
	Messages     Messages `json:"messages,omitempty" yaml:"messages,omitempty"`
	Model        string   `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature  float32  `json:"temperature,omitempty" yaml:"temperature,omitempty"`
}

// WelcomeText is shown to a session without history
func (p *Preset) WelcomeText() string {
	if p == nil || p.Welcome == nil {
		return ""
	}
	return strings.TrimSpace(p.Welcome.Content)
}

// Preamble is prepended to the composed context, empty without a preset
func (p *Preset) Preamble() string {
	if p == nil {
		return ""
	}
	var sb strings.Builder
	if s := strings.TrimSpace(p.SystemPrompt); len(s) > 0 {
		sb.WriteString(s)
		sb.WriteByte('\n')
	}
	for _, m := range p.Messages {
		if len(m.Content) == 0 {
			continue
		}
		switch m.Role {
		case "user":
			sb.WriteString(labelUser)
		case "assistant", "model":
			sb.WriteString(labelModel)
		}
		sb.WriteString(m.Content)
		sb.WriteByte('\n')
	}
	return sb.String()
}
