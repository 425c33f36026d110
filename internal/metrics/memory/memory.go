// Package memory 提供記憶體內的 metrics.Collector，供測試斷言使用。
package memory

import (
	"sync"
	"time"

	"aceitubank/internal/metrics"
)

var _ metrics.Collector = (*MemoryCollector)(nil)

// HTTPKey 以 method + route + status 區分 HTTP 請求計數。
type HTTPKey struct {
	Method string
	Route  string
	Status int
}

// MemoryCollector 為測試用的記憶體 metrics.Collector。
type MemoryCollector struct {
	mu sync.RWMutex

	transfers       map[string]int64
	transferVolume  float64
	loginsOK        int64
	loginsFailed    int64
	httpRequests    map[HTTPKey]int64
	transferLatency []time.Duration
}

// NewMemoryCollector 建立記憶體指標收集器。
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{
		transfers:    make(map[string]int64),
		httpRequests: make(map[HTTPKey]int64),
	}
}

// RecordTransfer 記錄一次轉帳嘗試；金額只累計成功的轉帳。
func (mc *MemoryCollector) RecordTransfer(outcome string, amount float64, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.transfers[outcome]++
	if outcome == metrics.OutcomeCompleted {
		mc.transferVolume += amount
	}
	mc.transferLatency = append(mc.transferLatency, duration)
}

// RecordLogin 記錄一次登入嘗試。
func (mc *MemoryCollector) RecordLogin(success bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if success {
		mc.loginsOK++
	} else {
		mc.loginsFailed++
	}
}

// RecordHTTPRequest 記錄一個已處理的 HTTP 請求。
func (mc *MemoryCollector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.httpRequests[HTTPKey{Method: method, Route: route, Status: status}]++
}

// Transfers 回傳指定結果的轉帳次數。
func (mc *MemoryCollector) Transfers(outcome string) int64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.transfers[outcome]
}

// TransferVolume 回傳成功轉帳的總金額。
func (mc *MemoryCollector) TransferVolume() float64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.transferVolume
}

// Logins 回傳登入成功與失敗次數。
func (mc *MemoryCollector) Logins() (ok, failed int64) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.loginsOK, mc.loginsFailed
}

// HTTPRequests 回傳某個 method、route 與 status 組合的次數。
func (mc *MemoryCollector) HTTPRequests(method, route string, status int) int64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.httpRequests[HTTPKey{Method: method, Route: route, Status: status}]
}

// Reset 清除所有紀錄。
func (mc *MemoryCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.transfers = make(map[string]int64)
	mc.httpRequests = make(map[HTTPKey]int64)
	mc.transferVolume = 0
	mc.loginsOK, mc.loginsFailed = 0, 0
	mc.transferLatency = nil
}
