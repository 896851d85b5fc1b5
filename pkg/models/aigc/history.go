package aigc

import (
	"encoding/json"
	"errors"
)

var (
	ErrIndexOutOfRange = errors.New("history index out of range")
	ErrEmptyPrompt     = errors.New("empty prompt")
)

// Interaction 一次问答
type Interaction struct {
	Prompt       string `json:"prompt"`
	ResponseRaw  string `json:"response_raw"`
	ResponseHTML string `json:"response_html"`
	// uploaded file name, if any
	File string `json:"file,omitempty"`
	Time int64  `json:"time,omitempty"`
}

// History is ordered by append time
type History []Interaction

// MarshalBinary implements the encoding.BinaryMarshaler interface.
func (z History) MarshalBinary() (data []byte, err error) {
	data, err = json.Marshal(z)
	return
}

// UnmarshalBinary unmarshal a binary representation of itself.
func (z *History) UnmarshalBinary(data []byte) error {
	var t History
	err := json.Unmarshal(data, &t)
	if err == nil {
		*z = t
	}
	return err
}

// Valid reports whether i addresses an entry
func (z History) Valid(i int) bool {
	return i >= 0 && i < len(z)
}

// Get returns the entry at i
func (z History) Get(i int) (Interaction, error) {
	if !z.Valid(i) {
		return Interaction{}, ErrIndexOutOfRange
	}
	return z[i], nil
}

// Append returns a new history with item at the tail
func (z History) Append(item Interaction) History {
	out := make(History, len(z), len(z)+1)
	copy(out, z)
	return append(out, item)
}

// Edit returns a copy with the prompt of entry i replaced.
func (z History) Edit(i int, prompt string) (History, error) {
	if !z.Valid(i) {
		return z, ErrIndexOutOfRange
	}
	if len(prompt) == 0 {
		return z, ErrEmptyPrompt
	}
	out := make(History, len(z))
	copy(out, z)
	out[i].Prompt = prompt
	return out, nil
}

// Delete returns a copy without entry i.
func (z History) Delete(i int) (History, error) {
	if !z.Valid(i) {
		return z, ErrIndexOutOfRange
	}
	out := make(History, 0, len(z)-1)
	out = append(out, z[:i]...)
	return append(out, z[i+1:]...), nil
}

// Recently returns at most the last n entries
func (z History) Recently(n int) History {
	if n <= 0 {
		return nil
	}
	if len(z) > n {
		return z[len(z)-n:]
	}
	return z
}
