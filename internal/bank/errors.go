// internal/bank/errors.go
//
// 本檔集中定義「領域錯誤（domain errors）」。
// 上層以 errors.Is 比對，再由 HTTP handler 轉成對應的狀態碼；
// 資料庫層級的錯誤則以 %w 包裝後原樣往上傳。

package bank

import "errors"

var (
	// ErrNotFound 代表帳戶、聯絡人或使用者不存在（或不屬於呼叫者）。
	// 對應 HTTP 404。
	ErrNotFound = errors.New("not found")

	// ErrInvalidAmount 代表金額非法（轉帳 <= 0、開戶餘額為負，
	// 或超過兩位小數／numeric(14,2) 上限）。對應 HTTP 400。
	ErrInvalidAmount = errors.New("amount must be greater than 0 with at most two decimals")

	// ErrInsufficientFunds 代表來源帳戶餘額不足。
	// 對應 HTTP 409。
	ErrInsufficientFunds = errors.New("insufficient funds for this transfer")

	// ErrSameAccount 代表轉帳來源與目的帳戶相同。
	ErrSameAccount = errors.New("origin and destination are the same account")

	// ErrContactMismatch：以 RUT + 帳號找不到對應帳戶。兩種情況刻意回傳同一訊息。
	ErrContactMismatch = errors.New("rut or account number do not match")

	// ErrDuplicateContact：同一使用者的別名或目的帳戶重複。
	ErrDuplicateContact = errors.New("contact alias or account already registered")

	// ErrContactInUse：聯絡人已被轉帳紀錄引用，不可刪除。
	ErrContactInUse = errors.New("contact is referenced by transfers")

	// ErrProtected：刪除使用者會連帶刪除其他使用者轉帳所引用的聯絡人。
	ErrProtected = errors.New("user is referenced by other users' transfers")

	ErrDuplicateUser      = errors.New("username or rut already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidInput       = errors.New("invalid input")

	// ErrInvalidTransition：轉帳狀態只能 Pending→Completed 或 Pending→Failed。
	ErrInvalidTransition = errors.New("invalid transfer status transition")
)
