package web

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/liut/parley/htdocs"
)

type M = render.M

func (s *server) strapRouter() error {
	limitMw, err := rateLimitMw(s.cfg.PredictRate, s.cfg.RedisClient)
	if err != nil {
		return err
	}

	s.ar.Get("/ping", handlerPing)

	static, err := fs.Sub(htdocs.FS(), "static")
	if err != nil {
		return err
	}
	s.ar.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	s.ar.Group(func(r chi.Router) {
		r.Use(s.sessionMw)
		r.Get("/", s.getHome)
		r.With(limitMw).Post("/predict", s.postPredict)
		r.Get("/view-history/{index}", s.getHistoryItem)
		r.Post("/edit-history/{index}", s.postEditHistory)
		r.Post("/delete-history/{index}", s.postDeleteHistory)
		r.Post("/clear-history", s.postClearHistory)
	})
	return nil
}

func handlerPing(w http.ResponseWriter, r *http.Request) {
	render.Data(w, r, []byte("Pong\n"))
}

func apiFail(w http.ResponseWriter, r *http.Request, status int, err any) {
	res := M{
		"status": status,
	}
	switch ret := err.(type) {
	case error:
		res["error"] = ret.Error()
	case string:
		res["error"] = ret
	}
	render.Status(r, status)
	render.JSON(w, r, res)
}

type RespDone struct {
	Status int `json:"status"`
	Data   any `json:"data,omitempty"`
	Count  int `json:"count,omitempty"`
}

func apiOk(w http.ResponseWriter, r *http.Request, args ...any) {
	res := &RespDone{}
	if len(args) > 0 && args[0] != nil {
		res.Data = args[0]
		if len(args) > 1 {
			if c, ok := args[1].(int); ok {
				res.Count = c
			}
		}
	}

	render.JSON(w, r, res)
}

func wantJSON(r *http.Request) bool {
	return render.GetAcceptedContentType(r) == render.ContentTypeJSON
}
