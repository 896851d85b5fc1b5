package web

import (
	"context"
	"net/http"

	"github.com/liut/parley/pkg/services/stores"
)

type ctxKey int

const csKey ctxKey = iota

// ContextWithConversation ...
func ContextWithConversation(ctx context.Context, cs stores.Conversation) context.Context {
	return context.WithValue(ctx, csKey, cs)
}

// ConversationFromContext ...
func ConversationFromContext(ctx context.Context) (stores.Conversation, bool) {
	cs, ok := ctx.Value(csKey).(stores.Conversation)
	return cs, ok
}

// sessionMw binds the browser session to its conversation, issuing a cookie on first visit
func (s *server) sessionMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sid string
		if c, err := r.Cookie(s.cfg.CookieName); err == nil {
			sid = c.Value
		}
		cs := stores.NewConversation(s.sto, sid)
		if cs.GetID() != sid {
			logger().Debugw("new session", "sid", cs.GetID(), "ip", r.RemoteAddr)
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.CookieName,
				Value:    cs.GetID(),
				Path:     s.cfg.CookiePath,
				Domain:   s.cfg.CookieDomain,
				MaxAge:   s.cfg.CookieMaxAge,
				Secure:   s.cfg.CookieSecure,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(ContextWithConversation(r.Context(), cs)))
	})
}
