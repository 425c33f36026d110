// internal/server/middleware.go
//
// HTTP 中介層：request id、panic 復原、結構化請求日誌、指標與登入驗證。
package server

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"aceitubank/internal/bank"
	"aceitubank/internal/logging"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userKey
	sessionKey
)

// RequestIDHeader 為 request id 的標頭名稱；用戶端帶入時沿用。
const RequestIDHeader = "X-Request-ID"

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestLog 回傳帶有 request_id 欄位的子 logger。
func (s *Server) requestLog(r *http.Request) *logging.Logger {
	return s.log.With(zap.String("request_id", requestID(r.Context())))
}

// currentUser 取得 requireUser 放入 context 的使用者。
func currentUser(ctx context.Context) *bank.User {
	u, _ := ctx.Value(userKey).(*bank.User)
	return u
}

func currentSession(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey).(string)
	return id
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.requestLog(r).Error("panic",
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()))
				s.writeStatus(w, r, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// statusResponseWriter 記錄實際寫出的狀態碼。
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// routeTemplate 回傳 mux 路由樣板（例如 /contacts/{id}/edit/），避免指標標籤爆量。
func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unmatched"
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return "unmatched"
	}
	return tpl
}

// observe 每個請求寫一行結構化日誌並記錄 HTTP 指標。
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(srw, r)

		elapsed := time.Since(start)
		route := routeTemplate(r)
		s.metrics.RecordHTTPRequest(r.Method, route, srw.statusCode, elapsed)
		s.requestLog(r).Info("http request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.String("path", r.URL.Path),
			zap.Int("status", srw.statusCode),
			zap.Duration("duration", elapsed))
	})
}

// bearerToken 依序從 Authorization: Bearer 標頭與 session cookie 取 token。
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// requireUser 驗證 token 並確認 session 仍有效（未登出、未過期）。
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			s.writeStatus(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		claims, err := s.tokens.Parse(tok)
		if err != nil {
			s.writeStatus(w, r, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		sess, err := s.bank.ActiveSession(r.Context(), claims.ID)
		if err != nil && !errors.Is(err, bank.ErrNotFound) {
			s.writeErr(w, r, err)
			return
		}
		if err != nil || sess.UserID != claims.UserID {
			s.writeStatus(w, r, http.StatusUnauthorized, "session expired, please log in again")
			return
		}
		ctx := context.WithValue(r.Context(), userKey, sess.User)
		ctx = context.WithValue(ctx, sessionKey, sess.ID)
		next(w, r.WithContext(ctx))
	}
}

// requireStaff 在 requireUser 之上另外要求管理員權限。
func (s *Server) requireStaff(next http.HandlerFunc) http.HandlerFunc {
	return s.requireUser(func(w http.ResponseWriter, r *http.Request) {
		if u := currentUser(r.Context()); u == nil || !u.IsStaff {
			s.writeStatus(w, r, http.StatusForbidden, "staff only")
			return
		}
		next(w, r)
	})
}
