package aigc

import (
	"strings"
)

// MaxContextHistory 上下文中最多包含的历史条数
const MaxContextHistory = 4

const (
	labelUser  = "Usuario: "
	labelModel = "Modelo: "
)

// Attachment is text extracted from an uploaded file
type Attachment struct {
	Name    string
	Content string
}

// ComposeContext builds the text sent to the model: the recent window of history,
// then the attachment, then the current prompt.
func ComposeContext(history History, att *Attachment, prompt string) string {
	var sb strings.Builder
	for _, it := range history.Recently(MaxContextHistory) {
		sb.WriteString(labelUser)
		sb.WriteString(it.Prompt)
		sb.WriteByte('\n')
		sb.WriteString(labelModel)
		sb.WriteString(it.ResponseRaw)
		sb.WriteByte('\n')
	}
	if att != nil && len(att.Content) > 0 {
		sb.WriteString("Archivo ")
		sb.WriteString(att.Name)
		sb.WriteString(":\n")
		sb.WriteString(att.Content)
		if !strings.HasSuffix(att.Content, "\n") {
			sb.WriteByte('\n')
		}
	}
	sb.WriteString(labelUser)
	sb.WriteString(prompt)
	sb.WriteByte('\n')
	return sb.String()
}
