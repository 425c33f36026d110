// internal/server/response.go
//
// 統一 HTTP 回應格式：成功回應為 JSON，錯誤回應為 {"error": "..."}。
// 領域錯誤在此集中對應到 HTTP 狀態碼。
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"aceitubank/internal/bank"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// errorBody 為錯誤回應的 JSON 結構。
type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// writeJSON 統一輸出成功回應。
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor 將領域錯誤對應到 HTTP 狀態碼。
func statusFor(err error) int {
	switch {
	case errors.Is(err, bank.ErrInvalidAmount),
		errors.Is(err, bank.ErrSameAccount),
		errors.Is(err, bank.ErrInvalidInput),
		errors.Is(err, bank.ErrContactMismatch):
		return http.StatusBadRequest
	case errors.Is(err, bank.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, bank.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, bank.ErrInsufficientFunds),
		errors.Is(err, bank.ErrDuplicateUser),
		errors.Is(err, bank.ErrDuplicateContact),
		errors.Is(err, bank.ErrContactInUse),
		errors.Is(err, bank.ErrProtected),
		errors.Is(err, bank.ErrInvalidTransition):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeErr 依錯誤類型輸出狀態碼；500 只回傳通用訊息，原因寫入日誌。
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.requestLog(r).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		msg = "internal server error"
	}
	s.writeStatus(w, r, code, msg)
}

// writeStatus 以指定狀態碼輸出錯誤訊息。
func (s *Server) writeStatus(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg, RequestID: requestID(r.Context())})
}

// decodeJSON 解析請求內容；格式錯誤時回傳 ErrInvalidInput。
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed json: %v", bank.ErrInvalidInput, err)
	}
	return nil
}
