package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liut/parley/pkg/models/aigc"
	"github.com/liut/parley/pkg/services/ingest"
	"github.com/liut/parley/pkg/services/stores"
)

type fakeAI struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (f *fakeAI) Name() string { return "Gemini" }

func (f *fakeAI) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func (f *fakeAI) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type fakeOCR struct{ text string }

func (f fakeOCR) Recognize(ctx context.Context, data []byte, mimeType string) (string, error) {
	return f.text, nil
}

type fakeTranscriber struct{ text string }

func (f fakeTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return f.text, nil
}

// copyTranscoder pretends to convert by copying src
type copyTranscoder struct{}

func (copyTranscoder) Transcode(ctx context.Context, src, format string) (string, error) {
	b, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	dst := strings.TrimSuffix(src, filepath.Ext(src)) + ".conv." + format
	return dst, os.WriteFile(dst, b, 0o600)
}

type testEnv struct {
	ai     *fakeAI
	sto    stores.SessionStore
	ts     *httptest.Server
	client *http.Client
}

func newTestEnv(t *testing.T, mutators ...func(*Config)) *testEnv {
	t.Helper()
	env := &testEnv{
		ai:  &fakeAI{answer: "**Hola**"},
		sto: stores.NewMemoryStore(time.Hour),
	}
	cfg := Config{
		AI:        env.ai,
		Sessions:  env.sto,
		Extractor: &ingest.Extractor{
			OCR:         fakeOCR{text: "texto de la imagen"},
			Transcriber: fakeTranscriber{text: "audio transcrito"},
			Transcoder:  copyTranscoder{},
			AudioFormat: "wav",
		},
		Scratch:   &ingest.Scratch{Dir: t.TempDir()},
	}
	for _, fn := range mutators {
		fn(&cfg)
	}
	srv, err := New(cfg)
	require.NoError(t, err)

	env.ts = httptest.NewServer(srv.Handler())
	t.Cleanup(env.ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	env.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.ts.URL+path, body)
	require.NoError(t, err)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	res, err := e.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

var (
	formHeader = http.Header{"Content-Type": {"application/x-www-form-urlencoded"}}
	jsonAccept = http.Header{"Accept": {"application/json"}}
)

func (e *testEnv) predict(t *testing.T, prompt string) *http.Response {
	form := url.Values{"prompt": {prompt}}
	return e.do(t, http.MethodPost, "/predict", strings.NewReader(form.Encode()), formHeader)
}

func (e *testEnv) history(t *testing.T) aigc.History {
	t.Helper()
	res := e.do(t, http.MethodGet, "/", nil, jsonAccept)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var body struct {
		Data aigc.History `json:"data"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return body.Data
}

func doc(t *testing.T, res *http.Response) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(res.Body)
	require.NoError(t, err)
	return d
}

func TestHomeIssuesSession(t *testing.T) {
	env := newTestEnv(t)
	res := env.do(t, http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/html")

	var found bool
	for _, c := range res.Cookies() {
		if c.Name == "parley_sid" {
			found = true
			assert.True(t, c.HttpOnly)
		}
	}
	assert.True(t, found)

	d := doc(t, res)
	assert.Equal(t, 0, d.Find(".history .item").Length())
	assert.Equal(t, 1, d.Find("form.ask").Length())
}

func sessionCookie(res *http.Response) string {
	for _, c := range res.Cookies() {
		if c.Name == "parley_sid" {
			return c.Value
		}
	}
	return ""
}

func TestSessionCookieIsRandom(t *testing.T) {
	env := newTestEnv(t)
	env.predict(t, "mi contraseña es hunter2")

	var prev string
	for i := 0; i < 3; i++ {
		jar, err := cookiejar.New(nil)
		require.NoError(t, err)
		env.client.Jar = jar
		sid := sessionCookie(env.do(t, http.MethodGet, "/", nil, nil))
		assert.True(t, stores.ValidSessionID(sid), sid)
		assert.NotEqual(t, prev, sid)
		prev = sid
	}

	// an id not issued by the server is replaced, never adopted
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	u, err := url.Parse(env.ts.URL)
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{{Name: "parley_sid", Value: "ev-5fco7a3t9ce8", Path: "/"}})
	env.client.Jar = jar
	res := env.do(t, http.MethodGet, "/", nil, jsonAccept)
	sid := sessionCookie(res)
	assert.True(t, stores.ValidSessionID(sid))
	assert.NotEqual(t, "ev-5fco7a3t9ce8", sid)
}

func TestHomeWelcome(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.Preset = &aigc.Preset{Welcome: &aigc.Message{Role: "assistant", Content: "¡Hola! Soy **Parley**."}}
	})
	d := doc(t, env.do(t, http.MethodGet, "/", nil, nil))
	assert.Equal(t, "Parley", d.Find(".welcome strong").Text())

	env.predict(t, "hi")
	d = doc(t, env.do(t, http.MethodGet, "/", nil, nil))
	assert.Equal(t, 0, d.Find(".welcome").Length())
	assert.Equal(t, 1, d.Find(".history .item").Length())
}

func TestPredictAppendsHistory(t *testing.T) {
	env := newTestEnv(t)

	res := env.predict(t, "hi")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Usuario: hi\n", env.ai.lastPrompt())

	d := doc(t, res)
	assert.Equal(t, "Hola", d.Find(".answer .response strong").Text())
	assert.Equal(t, 1, d.Find(".history .item").Length())

	env.ai.answer = "segunda"
	env.predict(t, "otra")
	assert.Equal(t, "Usuario: hi\nModelo: **Hola**\nUsuario: otra\n", env.ai.lastPrompt())

	h := env.history(t)
	require.Len(t, h, 2)
	assert.Equal(t, "hi", h[0].Prompt)
	assert.Equal(t, "**Hola**", h[0].ResponseRaw)
	assert.Equal(t, "<p><strong>Hola</strong></p>\n", h[0].ResponseHTML)
	assert.Equal(t, "otra", h[1].Prompt)
}

func TestPredictContextWindow(t *testing.T) {
	env := newTestEnv(t)
	for _, p := range []string{"a", "b", "c", "d", "e", "f"} {
		env.predict(t, p)
	}
	last := env.ai.lastPrompt()
	assert.Equal(t, aigc.MaxContextHistory, strings.Count(last, "Modelo: "))
	assert.NotContains(t, last, "Usuario: a\n")
	assert.True(t, strings.HasPrefix(last, "Usuario: b\n"))
	assert.Len(t, env.history(t), 6)
}

func TestPredictEmptyPrompt(t *testing.T) {
	env := newTestEnv(t)
	res := env.predict(t, "   ")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, doc(t, res).Find(".error").Text(), msgEmptyPrompt)
	assert.Empty(t, env.ai.prompts)
	assert.Empty(t, env.history(t))

	form := url.Values{"prompt": {""}}
	h := http.Header{"Content-Type": formHeader["Content-Type"], "Accept": jsonAccept["Accept"]}
	res = env.do(t, http.MethodPost, "/predict", strings.NewReader(form.Encode()), h)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestPredictModelFailure(t *testing.T) {
	env := newTestEnv(t)
	env.ai.err = errors.New("connection refused")

	res := env.predict(t, "hola")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, doc(t, res).Find(".error").Text(), "Error al conectarse a Gemini: connection refused")
	assert.Empty(t, env.history(t))

	form := url.Values{"prompt": {"hola"}}
	h := http.Header{"Content-Type": formHeader["Content-Type"], "Accept": jsonAccept["Accept"]}
	res = env.do(t, http.MethodPost, "/predict", strings.NewReader(form.Encode()), h)
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
}

func multipartBody(t *testing.T, prompt, filename string, data []byte) (io.Reader, http.Header) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("prompt", prompt))
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, http.Header{"Content-Type": {mw.FormDataContentType()}, "Accept": {"application/json"}}
}

func TestPredictWithTextFile(t *testing.T) {
	env := newTestEnv(t)
	body, h := multipartBody(t, "resume", "notes.txt", []byte("uno\ndos"))
	res := env.do(t, http.MethodPost, "/predict", body, h)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Archivo notes.txt:\nuno\ndos\nUsuario: resume\n", env.ai.lastPrompt())

	var out struct {
		Data PredictResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	assert.Equal(t, "notes.txt", out.Data.File)
	assert.Len(t, out.Data.History, 1)
}

func TestPredictWithUnsupportedFile(t *testing.T) {
	env := newTestEnv(t)
	body, h := multipartBody(t, "mira", "data.bin", []byte{0, 1, 2})
	res := env.do(t, http.MethodPost, "/predict", body, h)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, env.ai.lastPrompt(), ingest.UnsupportedFile)
}

func pngOf(t *testing.T, w, h int) []byte {
	img := image.NewGray(image.Rect(0, 0, w, h))
	img.SetGray(0, 0, color.Gray{Y: 200})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPredictWithImage(t *testing.T) {
	env := newTestEnv(t)
	body, h := multipartBody(t, "lee esto", "foto.png", pngOf(t, 8, 8))
	res := env.do(t, http.MethodPost, "/predict", body, h)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Archivo foto.png:\ntexto de la imagen\nUsuario: lee esto\n", env.ai.lastPrompt())
	h0 := env.history(t)
	require.Len(t, h0, 1)
	assert.Equal(t, "foto.png", h0[0].File)

	env = newTestEnv(t, func(c *Config) { c.Extractor.MaxPixels = 100 })
	body, h = multipartBody(t, "lee esto", "grande.png", pngOf(t, 20, 20))
	res = env.do(t, http.MethodPost, "/predict", body, h)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Archivo grande.png:\n"+ingest.UnreadableImage+"\nUsuario: lee esto\n", env.ai.lastPrompt())
}

func TestPredictWithAudio(t *testing.T) {
	env := newTestEnv(t)
	for _, name := range []string{"nota.wav", "nota.mp3"} {
		body, h := multipartBody(t, "transcribe", name, []byte("RIFF....WAVE"))
		res := env.do(t, http.MethodPost, "/predict", body, h)
		require.Equal(t, http.StatusOK, res.StatusCode, name)
		assert.Equal(t, "Archivo "+name+":\naudio transcrito\nUsuario: transcribe\n", env.ai.lastPrompt())
	}
}

func TestPredictTooLarge(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.MaxUploadBytes = 64 })
	body, h := multipartBody(t, "big", "notes.txt", bytes.Repeat([]byte("x"), 1024))
	res := env.do(t, http.MethodPost, "/predict", body, h)
	assert.Equal(t, http.StatusRequestEntityTooLarge, res.StatusCode)
	assert.Empty(t, env.ai.prompts)
}

func TestViewHistory(t *testing.T) {
	env := newTestEnv(t)
	env.predict(t, "uno")

	res := env.do(t, http.MethodGet, "/view-history/0", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	d := doc(t, res)
	assert.Contains(t, d.Find(".interaction .prompt").Text(), "uno")
	assert.Equal(t, "**Hola**", d.Find("pre.raw").Text())

	res = env.do(t, http.MethodGet, "/view-history/0", nil, jsonAccept)
	require.Equal(t, http.StatusOK, res.StatusCode)

	for _, p := range []string{"1", "-1", "abc"} {
		res = env.do(t, http.MethodGet, "/view-history/"+p, nil, nil)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode, p)
	}
}

func TestEditHistory(t *testing.T) {
	env := newTestEnv(t)
	env.predict(t, "uno")
	env.predict(t, "dos")
	env.predict(t, "tres")

	form := url.Values{"prompt": {"DOS"}}
	res := env.do(t, http.MethodPost, "/edit-history/1", strings.NewReader(form.Encode()), formHeader)
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/", res.Header.Get("Location"))

	h := env.history(t)
	require.Len(t, h, 3)
	assert.Equal(t, []string{"uno", "DOS", "tres"}, []string{h[0].Prompt, h[1].Prompt, h[2].Prompt})

	res = env.do(t, http.MethodPost, "/edit-history/3", strings.NewReader(form.Encode()), formHeader)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	empty := url.Values{"prompt": {" "}}
	res = env.do(t, http.MethodPost, "/edit-history/0", strings.NewReader(empty.Encode()), formHeader)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	assert.Equal(t, h, env.history(t))
}

func TestDeleteHistory(t *testing.T) {
	env := newTestEnv(t)
	env.predict(t, "uno")
	env.predict(t, "dos")
	env.predict(t, "tres")

	res := env.do(t, http.MethodPost, "/delete-history/5", nil, jsonAccept)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Len(t, env.history(t), 3)

	res = env.do(t, http.MethodPost, "/delete-history/0", nil, jsonAccept)
	require.Equal(t, http.StatusOK, res.StatusCode)
	h := env.history(t)
	require.Len(t, h, 2)
	assert.Equal(t, "dos", h[0].Prompt)
	assert.Equal(t, "tres", h[1].Prompt)

	res = env.do(t, http.MethodPost, "/clear-history", nil, nil)
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Empty(t, env.history(t))
}

func TestSessionsAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	env.predict(t, "mío")

	other, err := cookiejar.New(nil)
	require.NoError(t, err)
	env.client.Jar = other
	assert.Empty(t, env.history(t))
}

func TestPredictRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.PredictRate = "2-M" })
	assert.Equal(t, http.StatusOK, env.predict(t, "a").StatusCode)
	assert.Equal(t, http.StatusOK, env.predict(t, "b").StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, env.predict(t, "c").StatusCode)
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)
	res := env.do(t, http.MethodGet, "/ping", nil, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res = env.do(t, http.MethodGet, "/static/style.css", nil, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512.00B", FormatBytes(512, ""))
	assert.Equal(t, "1.50KB/sec", FormatBytes(1536, "/sec"))
}
