// Package metrics 定義服務層的指標收集介面。
// 實作可輸出到 Prometheus（見 metrics/prometheus），測試則使用 metrics/memory。
package metrics

import "time"

// 轉帳結果標籤。
const (
	OutcomeCompleted         = "completed"
	OutcomeInvalidAmount     = "invalid_amount"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeSameAccount       = "same_account"
	OutcomeNotFound          = "not_found"
	OutcomeError             = "error"
)

// Collector 定義銀行指標的收集介面。
type Collector interface {
	// 轉帳
	RecordTransfer(outcome string, amount float64, duration time.Duration)

	// 登入
	RecordLogin(success bool)

	// HTTP
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// NoOpCollector 為預設實作，不做任何事。
type NoOpCollector struct{}

func (NoOpCollector) RecordTransfer(outcome string, amount float64, duration time.Duration) {}

func (NoOpCollector) RecordLogin(success bool) {}

func (NoOpCollector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {}
