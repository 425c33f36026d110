// internal/server/handler.go
//
// Package server 提供 HTTP JSON 介面，作為 bank 模組的應用層。
// 每個 handler 僅負責：解析請求、呼叫 bank 層、回傳 JSON；
// 錯誤一律交給 writeErr 轉成狀態碼。
package server

import (
	"net/http"
	"strconv"
	"time"

	"aceitubank/internal/auth"
	"aceitubank/internal/bank"
	"aceitubank/internal/logging"
	"aceitubank/internal/metrics"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SessionCookie 為存放 token 的 HttpOnly cookie 名稱。
const SessionCookie = "aceitu_session"

// Server 為 HTTP 層核心結構。
type Server struct {
	bank         *bank.Bank
	tokens       *auth.TokenIssuer
	log          *logging.Logger
	metrics      metrics.Collector
	exposition   http.Handler
	backupDir    string
	secureCookie bool
	now          func() time.Time
}

// Option 調整 Server 的可選設定。
type Option func(*Server)

func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics 設定 HTTP 指標收集器；h 非 nil 時掛在 /metrics。
func WithMetrics(c metrics.Collector, h http.Handler) Option {
	return func(s *Server) {
		if c != nil {
			s.metrics = c
		}
		s.exposition = h
	}
}

// WithBackupDir 設定 /admin/snapshot/ 寫入快照的目錄。
func WithBackupDir(dir string) Option {
	return func(s *Server) { s.backupDir = dir }
}

func WithSecureCookie(secure bool) Option {
	return func(s *Server) { s.secureCookie = secure }
}

// NewServer 建立 HTTP 伺服器。
func NewServer(b *bank.Bank, tokens *auth.TokenIssuer, opts ...Option) *Server {
	s := &Server{
		bank:      b,
		tokens:    tokens,
		log:       logging.L(),
		metrics:   metrics.NoOpCollector{},
		backupDir: "data/backups",
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("http")
	return s
}

// pathID 解析路由中的 {id}。
func pathID(r *http.Request) (uint, bool) {
	n, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// home 處理 GET /。
func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "aceitubank",
		"links": map[string]string{
			"signup":    "/signup/",
			"login":     "/login/",
			"dashboard": "/dashboard/",
		},
	})
}

// health 處理 GET /health。
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ─────────────────────────────────────────────
// 登入 / 註冊 / 登出
// ─────────────────────────────────────────────

type loginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *bank.User `json:"user"`
}

// startSession 建立 session、簽發 token 並寫入 cookie。
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, u *bank.User) (*loginResponse, error) {
	sess, err := s.bank.OpenSession(r.Context(), u.ID, s.tokens.TTL())
	if err != nil {
		return nil, err
	}
	tok, err := s.tokens.Issue(u.ID, sess.ID, sess.ExpiresAt)
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    tok,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return &loginResponse{Token: tok, ExpiresAt: sess.ExpiresAt, User: u}, nil
}

// signup 處理 POST /signup/：註冊後直接登入。
func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req bank.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	u, err := s.bank.Register(r.Context(), req)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	resp, err := s.startSession(w, r, u)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// login 處理 POST /login/。
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	u, err := s.bank.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	resp, err := s.startSession(w, r, u)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.requestLog(r).Info("login", zap.Uint("user_id", u.ID))
	writeJSON(w, http.StatusOK, resp)
}

// logout 處理 POST /logout/：撤銷目前 session 並清除 cookie。
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.bank.RevokeSession(r.Context(), currentSession(r.Context())); err != nil {
		s.writeErr(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// ─────────────────────────────────────────────
// 使用者功能
// ─────────────────────────────────────────────

// dashboard 處理 GET /dashboard/?page=N。
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())
	d, err := s.bank.Dashboard(r.Context(), u.ID, bank.PageNumber(r.URL.Query().Get("page")))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      u,
		"accounts":  accountViews(d.Accounts),
		"movements": newPageView(d.Movements),
	})
}

// listAccounts 處理 GET /accounts/。
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.bank.Accounts(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountViews(accounts))
}

// openAccount 處理 POST /accounts/：使用者自行開戶，初始餘額為 0。
func (s *Server) openAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type bank.AccountType `json:"account_type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	a, err := s.bank.OpenAccount(r.Context(), bank.OpenAccountRequest{
		OwnerID: currentUser(r.Context()).ID,
		Type:    req.Type,
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAccountView(*a))
}

// listContacts 處理 GET /contacts/。
func (s *Server) listContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.bank.Contacts(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contactViews(contacts))
}

// createContact 處理 POST /contacts/create/。
func (s *Server) createContact(w http.ResponseWriter, r *http.Request) {
	var req bank.ContactRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	c, err := s.bank.CreateContact(r.Context(), currentUser(r.Context()).ID, req)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newContactView(*c))
}

// editContact 處理 PUT|POST /contacts/{id}/edit/。
func (s *Server) editContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeStatus(w, r, http.StatusNotFound, "contact not found")
		return
	}
	var req bank.ContactRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	c, err := s.bank.UpdateContact(r.Context(), currentUser(r.Context()).ID, id, req)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newContactView(*c))
}

// deleteContact 處理 DELETE|POST /contacts/{id}/delete/。
func (s *Server) deleteContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeStatus(w, r, http.StatusNotFound, "contact not found")
		return
	}
	if err := s.bank.DeleteContact(r.Context(), currentUser(r.Context()).ID, id); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// createTransfer 處理 POST /transfers/create/。
func (s *Server) createTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OriginAccountID uint            `json:"origin_account_id"`
		ContactID       uint            `json:"contact_id"`
		Amount          decimal.Decimal `json:"amount"`
		Note            string          `json:"note"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	t, err := s.bank.Transfer(r.Context(), currentUser(r.Context()).ID, bank.TransferRequest{
		OriginAccountID: req.OriginAccountID,
		ContactID:       req.ContactID,
		Amount:          req.Amount,
		Note:            req.Note,
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	origin, err := s.bank.Account(r.Context(), t.OriginAccountID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"transfer": newTransferView(*t),
		"origin":   newAccountView(*origin),
	})
}

// listTransfers 處理 GET /transfers/。
func (s *Server) listTransfers(w http.ResponseWriter, r *http.Request) {
	list, err := s.bank.Transfers(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transferViews(list))
}

// listTransactions 處理 GET /transactions/?page=N。
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	p, err := s.bank.Ledger(r.Context(), currentUser(r.Context()).ID, bank.PageNumber(r.URL.Query().Get("page")))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageView(p))
}
