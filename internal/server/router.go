// internal/server/router.go
//
// 路由註冊。所有端點同時掛在根路徑與 /api/v1 之下。
package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Router 建立並回傳整個 HTTP 處理鏈。
func (s *Server) Router() http.Handler {
	root := mux.NewRouter()
	root.Use(s.withRequestID, s.observe, s.recoverer)
	// mux 不會對這兩個 handler 套用 Use 的中介層，需自行包裝
	root.NotFoundHandler = s.withRequestID(s.observe(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeStatus(w, r, http.StatusNotFound, "not found")
	})))
	root.MethodNotAllowedHandler = s.withRequestID(s.observe(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})))

	s.routes(root.PathPrefix("/api/v1").Subrouter())
	s.routes(root)
	return root
}

func (s *Server) routes(r *mux.Router) {
	r.HandleFunc("/", s.home).Methods(http.MethodGet)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	if s.exposition != nil {
		r.Handle("/metrics", s.exposition).Methods(http.MethodGet)
	}

	r.HandleFunc("/signup/", s.signup).Methods(http.MethodPost)
	r.HandleFunc("/login/", s.login).Methods(http.MethodPost)
	r.HandleFunc("/logout/", s.requireUser(s.logout)).Methods(http.MethodPost)

	r.HandleFunc("/dashboard/", s.requireUser(s.dashboard)).Methods(http.MethodGet)
	r.HandleFunc("/accounts/", s.requireUser(s.listAccounts)).Methods(http.MethodGet)
	r.HandleFunc("/accounts/", s.requireUser(s.openAccount)).Methods(http.MethodPost)

	r.HandleFunc("/contacts/", s.requireUser(s.listContacts)).Methods(http.MethodGet)
	r.HandleFunc("/contacts/create/", s.requireUser(s.createContact)).Methods(http.MethodPost)
	r.HandleFunc("/contacts/{id:[0-9]+}/edit/", s.requireUser(s.editContact)).Methods(http.MethodPut, http.MethodPost)
	r.HandleFunc("/contacts/{id:[0-9]+}/delete/", s.requireUser(s.deleteContact)).Methods(http.MethodDelete, http.MethodPost)

	r.HandleFunc("/transfers/", s.requireUser(s.listTransfers)).Methods(http.MethodGet)
	r.HandleFunc("/transfers/create/", s.requireUser(s.createTransfer)).Methods(http.MethodPost)
	r.HandleFunc("/transactions/", s.requireUser(s.listTransactions)).Methods(http.MethodGet)
	r.HandleFunc("/transactions/export/", s.requireUser(s.exportTransactions)).Methods(http.MethodGet)

	// 管理後台
	r.HandleFunc("/admin/users/", s.requireStaff(s.adminUsers)).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/{id:[0-9]+}/", s.requireStaff(s.adminDeleteUser)).Methods(http.MethodDelete)
	r.HandleFunc("/admin/accounts/", s.requireStaff(s.adminAccounts)).Methods(http.MethodGet)
	r.HandleFunc("/admin/accounts/", s.requireStaff(s.adminOpenAccount)).Methods(http.MethodPost)
	r.HandleFunc("/admin/contacts/", s.requireStaff(s.adminContacts)).Methods(http.MethodGet)
	r.HandleFunc("/admin/transfers/", s.requireStaff(s.adminTransfers)).Methods(http.MethodGet)
	r.HandleFunc("/admin/transactions/", s.requireStaff(s.adminTransactions)).Methods(http.MethodGet)
	r.HandleFunc("/admin/snapshot/", s.requireStaff(s.adminSnapshot)).Methods(http.MethodPost)
}
