package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/marcsv/go-binder/binder"
	"github.com/spf13/cast"

	"github.com/liut/parley/pkg/models/aigc"
	"github.com/liut/parley/pkg/services/stores"
)

const (
	msgEmptyPrompt  = "Por favor, ingresa un texto válido."
	msgBadIndex     = "Índice de historial no válido."
	msgTooLarge     = "El archivo es demasiado grande."
	msgSessionFault = "No se pudo acceder al historial."
)

// page is the data of templates
type page struct {
	Prompt       string
	ResponseHTML string
	Error        string
	Welcome      string // rendered html
	History      aigc.History

	Index int
	Item  *aigc.Interaction
}

// PredictResult is the json body of /predict
type PredictResult struct {
	Prompt       string       `json:"prompt"`
	File         string       `json:"file,omitempty"`
	ResponseRaw  string       `json:"response_raw"`
	ResponseHTML string       `json:"response_html"`
	History      aigc.History `json:"history"`
}

type editReq struct {
	Prompt string `json:"prompt"`
}

func (s *server) renderPage(w http.ResponseWriter, r *http.Request, name string, status int, data *page) {
	var buf bytes.Buffer
	if err := s.tpl.ExecuteTemplate(&buf, name, data); err != nil {
		logger().Warnw("execute template fail", "name", name, "err", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	render.Status(r, status)
	render.HTML(w, r, buf.String())
}

func (s *server) conversation(r *http.Request) stores.Conversation {
	cs, ok := ConversationFromContext(r.Context())
	if !ok {
		cs = stores.NewConversation(s.sto, "")
	}
	return cs
}

func (s *server) getHome(w http.ResponseWriter, r *http.Request) {
	history, err := s.conversation(r).ListHistory(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgSessionFault, nil)
		return
	}
	if wantJSON(r) {
		apiOk(w, r, history, len(history))
		return
	}
	data := &page{History: history}
	if len(history) == 0 {
		if text := s.preset.WelcomeText(); len(text) > 0 {
			data.Welcome = stores.RenderMarkdown(text)
		}
	}
	s.renderPage(w, r, "index.html", http.StatusOK, data)
}

// fail answers json clients with apiFail, others with the page and an error banner
func (s *server) fail(w http.ResponseWriter, r *http.Request, status int, msg string, history aigc.History) {
	if wantJSON(r) {
		apiFail(w, r, status, msg)
		return
	}
	s.renderPage(w, r, "index.html", status, &page{Error: msg, History: history})
}

func (s *server) postPredict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cs := s.conversation(r)
	history, err := cs.ListHistory(ctx)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgSessionFault, nil)
		return
	}

	if r.ContentLength > s.cfg.MaxUploadBytes {
		s.fail(w, r, http.StatusRequestEntityTooLarge, msgTooLarge, history)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		err = r.ParseMultipartForm(s.cfg.MaxUploadBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.fail(w, r, http.StatusRequestEntityTooLarge, msgTooLarge, history)
			return
		}
		s.fail(w, r, http.StatusBadRequest, err.Error(), history)
		return
	}

	prompt := strings.TrimSpace(r.FormValue("prompt"))
	if len(prompt) == 0 {
		// in-band for pages
		status := http.StatusOK
		if wantJSON(r) {
			status = http.StatusBadRequest
		}
		s.fail(w, r, status, msgEmptyPrompt, history)
		return
	}

	att, err := s.attachment(ctx, r)
	if err != nil {
		logger().Warnw("attachment fail", "err", err)
		s.fail(w, r, http.StatusInternalServerError, err.Error(), history)
		return
	}

	text := s.preset.Preamble() + aigc.ComposeContext(history, att, prompt)
	logger().Infow("predict", "csid", cs.GetID(), "history", len(history), "context", len(text),
		"prompt", prompt, "ip", r.RemoteAddr)

	answer, err := s.ai.Generate(ctx, text)
	if err != nil {
		logger().Infow("generate fail", "csid", cs.GetID(), "err", err)
		msg := fmt.Sprintf("Error al conectarse a %s: %s", s.ai.Name(), err)
		status := http.StatusOK
		if wantJSON(r) {
			status = http.StatusBadGateway
		}
		s.fail(w, r, status, msg, history)
		return
	}

	item := &aigc.Interaction{
		Prompt:       prompt,
		ResponseRaw:  answer,
		ResponseHTML: stores.RenderMarkdown(answer),
		Time:         time.Now().Unix(),
	}
	if att != nil {
		item.File = att.Name
	}
	if err = cs.AddHistory(ctx, item); err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgSessionFault, history)
		return
	}
	history = history.Append(*item)

	if wantJSON(r) {
		apiOk(w, r, &PredictResult{
			Prompt:       item.Prompt,
			File:         item.File,
			ResponseRaw:  item.ResponseRaw,
			ResponseHTML: item.ResponseHTML,
			History:      history,
		})
		return
	}
	s.renderPage(w, r, "index.html", http.StatusOK, &page{
		Prompt:       prompt,
		ResponseHTML: item.ResponseHTML,
		History:      history,
	})
}

// attachment saves and extracts the optional "file" field, nil without upload
func (s *server) attachment(ctx context.Context, r *http.Request) (*aigc.Attachment, error) {
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if len(header.Filename) == 0 {
		return nil, nil
	}

	uf, err := s.sc.Save(header.Filename, file)
	if err != nil {
		return nil, err
	}
	logger().Infow("uploaded", "name", uf.Name, "kind", uf.Kind, "size", FormatBytes(float64(uf.Size), ""))

	content, err := s.ext.Extract(ctx, uf)
	if err != nil {
		return nil, err
	}
	return &aigc.Attachment{Name: uf.Name, Content: content}, nil
}

func parseIndex(r *http.Request) (int, error) {
	idx, err := cast.ToIntE(chi.URLParam(r, "index"))
	if err != nil {
		return 0, aigc.ErrIndexOutOfRange
	}
	return idx, nil
}

func (s *server) getHistoryItem(w http.ResponseWriter, r *http.Request) {
	cs := s.conversation(r)
	history, err := cs.ListHistory(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgSessionFault, nil)
		return
	}
	idx, err := parseIndex(r)
	if err == nil {
		var item aigc.Interaction
		if item, err = history.Get(idx); err == nil {
			if wantJSON(r) {
				apiOk(w, r, &item)
				return
			}
			s.renderPage(w, r, "view.html", http.StatusOK, &page{Index: idx, Item: &item, History: history})
			return
		}
	}
	s.fail(w, r, http.StatusBadRequest, msgBadIndex, history)
}

func (s *server) postEditHistory(w http.ResponseWriter, r *http.Request) {
	var param editReq
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := binder.BindBody(r, &param); err != nil {
			apiFail(w, r, http.StatusBadRequest, err)
			return
		}
	} else {
		param.Prompt = r.FormValue("prompt")
	}
	param.Prompt = strings.TrimSpace(param.Prompt)

	s.mutateHistory(w, r, func(ctx context.Context, cs stores.Conversation, idx int) (aigc.History, error) {
		return cs.EditHistory(ctx, idx, param.Prompt)
	})
}

func (s *server) postDeleteHistory(w http.ResponseWriter, r *http.Request) {
	s.mutateHistory(w, r, func(ctx context.Context, cs stores.Conversation, idx int) (aigc.History, error) {
		return cs.DeleteHistory(ctx, idx)
	})
}

type mutateFunc func(ctx context.Context, cs stores.Conversation, idx int) (aigc.History, error)

func (s *server) mutateHistory(w http.ResponseWriter, r *http.Request, fn mutateFunc) {
	cs := s.conversation(r)
	idx, err := parseIndex(r)
	var history aigc.History
	if err == nil {
		history, err = fn(r.Context(), cs, idx)
	}
	switch {
	case errors.Is(err, aigc.ErrIndexOutOfRange):
		if history == nil {
			history, _ = cs.ListHistory(r.Context())
		}
		s.fail(w, r, http.StatusBadRequest, msgBadIndex, history)
		return
	case errors.Is(err, aigc.ErrEmptyPrompt):
		s.fail(w, r, http.StatusBadRequest, msgEmptyPrompt, history)
		return
	case err != nil:
		logger().Infow("update history fail", "csid", cs.GetID(), "idx", idx, "err", err)
		s.fail(w, r, http.StatusInternalServerError, msgSessionFault, history)
		return
	}
	logger().Infow("history updated", "csid", cs.GetID(), "path", r.URL.Path, "size", len(history))
	if wantJSON(r) {
		apiOk(w, r, history, len(history))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) postClearHistory(w http.ResponseWriter, r *http.Request) {
	cs := s.conversation(r)
	if err := cs.ClearHistory(r.Context()); err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgSessionFault, nil)
		return
	}
	if wantJSON(r) {
		apiOk(w, r, aigc.History{}, 0)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
