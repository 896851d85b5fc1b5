package stores

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/liut/parley/pkg/models/aigc"
)

type Conversation interface {
	GetID() string
	ListHistory(ctx context.Context) (aigc.History, error)
	GetHistory(ctx context.Context, idx int) (aigc.Interaction, error)
	AddHistory(ctx context.Context, item *aigc.Interaction) error
	EditHistory(ctx context.Context, idx int, prompt string) (aigc.History, error)
	DeleteHistory(ctx context.Context, idx int) (aigc.History, error)
	ClearHistory(ctx context.Context) error
}

// sessionIDSize is the entropy of a session key in bytes
const sessionIDSize = 32

var sessionEncoding = base64.RawURLEncoding

// NewSessionID returns a random url-safe session key
func NewSessionID() string {
	b := make([]byte, sessionIDSize)
	_, _ = rand.Read(b) // never fails since go1.24
	return sessionEncoding.EncodeToString(b)
}

// ValidSessionID reports whether id has the shape of a key from NewSessionID
func ValidSessionID(id string) bool {
	if len(id) != sessionEncoding.EncodedLen(sessionIDSize) {
		return false
	}
	_, err := sessionEncoding.DecodeString(id)
	return err == nil
}

// NewConversation returns the conversation of a session, a new id is made for an invalid one
func NewConversation(sto SessionStore, id string) Conversation {
	if !ValidSessionID(id) {
		id = NewSessionID()
	}
	return &conversation{id: id, sto: sto}
}

type conversation struct {
	id  string
	sto SessionStore
}

func (s *conversation) GetID() string {
	return s.id
}

func (s *conversation) ListHistory(ctx context.Context) (data aigc.History, err error) {
	b, err := s.sto.Load(ctx, s.getKey())
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		logger().Infow("load history fail", "key", s.getKey(), "err", err)
		return
	}
	err = data.UnmarshalBinary(b)
	return
}

func (s *conversation) GetHistory(ctx context.Context, idx int) (aigc.Interaction, error) {
	data, err := s.ListHistory(ctx)
	if err != nil {
		return aigc.Interaction{}, err
	}
	return data.Get(idx)
}

func (s *conversation) AddHistory(ctx context.Context, item *aigc.Interaction) error {
	data, err := s.ListHistory(ctx)
	if err != nil {
		return err
	}
	if item.Time == 0 {
		item.Time = time.Now().Unix()
	}
	data = data.Append(*item)
	if err = s.save(ctx, data); err != nil {
		logger().Infow("add history fail", "key", s.getKey(), "err", err)
		return err
	}
	logger().Debugw("add history ok", "size", len(data))
	return nil
}

func (s *conversation) EditHistory(ctx context.Context, idx int, prompt string) (aigc.History, error) {
	data, err := s.ListHistory(ctx)
	if err != nil {
		return nil, err
	}
	out, err := data.Edit(idx, prompt)
	if err != nil {
		return data, err
	}
	return out, s.save(ctx, out)
}

func (s *conversation) DeleteHistory(ctx context.Context, idx int) (aigc.History, error) {
	data, err := s.ListHistory(ctx)
	if err != nil {
		return nil, err
	}
	out, err := data.Delete(idx)
	if err != nil {
		return data, err
	}
	return out, s.save(ctx, out)
}

func (s *conversation) ClearHistory(ctx context.Context) error {
	return s.sto.Delete(ctx, s.getKey())
}

func (s *conversation) save(ctx context.Context, data aigc.History) error {
	b, err := data.MarshalBinary()
	if err != nil {
		return err
	}
	return s.sto.Save(ctx, s.getKey(), b)
}

func (s *conversation) getKey() string {
	return "convs-" + s.GetID()
}
