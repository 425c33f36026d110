// internal/server/admin.go
//
// 管理後台端點，全部要求 is_staff。
package server

import (
	"net/http"
	"path/filepath"

	"aceitubank/internal/bank"
	"aceitubank/internal/storage"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Server) adminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.bank.SearchUsers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// adminDeleteUser 處理 DELETE /admin/users/{id}/。
func (s *Server) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeStatus(w, r, http.StatusNotFound, "user not found")
		return
	}
	if err := s.bank.DeleteUser(r.Context(), id); err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.log.Info("user deleted by staff",
		zap.Uint("user_id", id),
		zap.Uint("staff_id", currentUser(r.Context()).ID))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) adminAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.bank.AllAccounts(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountViews(accounts))
}

// adminOpenAccount 處理 POST /admin/accounts/：可指定擁有者、帳號與初始餘額。
func (s *Server) adminOpenAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID uint             `json:"owner_id"`
		Type    bank.AccountType `json:"account_type"`
		Number  string           `json:"account_number"`
		Balance decimal.Decimal  `json:"balance"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	a, err := s.bank.OpenAccount(r.Context(), bank.OpenAccountRequest{
		OwnerID: req.OwnerID,
		Type:    req.Type,
		Number:  req.Number,
		Balance: req.Balance,
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAccountView(*a))
}

func (s *Server) adminContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.bank.AllContacts(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contactViews(contacts))
}

// adminTransfers 處理 GET /admin/transfers/?status=&q=。
func (s *Server) adminTransfers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.bank.AllTransfers(r.Context(), bank.TransferFilter{
		Status: bank.TransferStatus(q.Get("status")),
		Query:  q.Get("q"),
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transferViews(list))
}

// adminTransactions 處理 GET /admin/transactions/?type=&q=。
func (s *Server) adminTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.bank.AllTransactions(r.Context(), bank.TransactionFilter{
		Type:  bank.TransactionType(q.Get("type")),
		Query: q.Get("q"),
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionViews(list))
}

// adminSnapshot 處理 POST /admin/snapshot/：將帳本寫成 JSON 備份。
func (s *Server) adminSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.bank.Snapshot(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	snap.Meta.Note = "requested by " + currentUser(r.Context()).Username
	path := filepath.Join(s.backupDir, storage.SnapshotFileName(snap.Meta.Timestamp))
	if err := storage.SaveSnapshot(path, snap); err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.log.Info("snapshot written", zap.String("path", path), zap.Int("accounts", len(snap.Accounts)))
	writeJSON(w, http.StatusCreated, map[string]any{
		"path":          path,
		"accounts":      len(snap.Accounts),
		"lines":         snap.LineCount(),
		"transfers":     snap.Transfers,
		"total_balance": snap.TotalBalance(),
	})
}
