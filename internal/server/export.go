// internal/server/export.go
package server

import (
	"fmt"
	"net/http"

	"aceitubank/internal/bank"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const ledgerSheet = "Ledger"

var ledgerHeaders = []any{"Date", "Account", "Type", "Amount", "Description"}

// 欄寬依 A..E 順序。
var ledgerColWidths = []float64{20, 16, 10, 14, 40}

// exportTransactions 處理 GET /transactions/export/：以 XLSX 下載使用者全部明細。
// 活頁簿完整建立並序列化後才寫出標頭，失敗時回傳 JSON 錯誤。
func (s *Server) exportTransactions(w http.ResponseWriter, r *http.Request) {
	lines, err := s.bank.LedgerAll(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	f, err := ledgerWorkbook(lines)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		s.writeErr(w, r, fmt.Errorf("encode xlsx: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"ledger_%s.xlsx\"", s.now().Format("20060102")))
	if _, err := buf.WriteTo(w); err != nil {
		s.requestLog(r).Error("write xlsx", zap.Error(err))
	}
}

// ledgerWorkbook 建立單一工作表的明細活頁簿；任何儲存格寫入失敗都會回傳錯誤。
func ledgerWorkbook(lines []bank.Transaction) (*excelize.File, error) {
	f := excelize.NewFile()
	fail := func(err error) (*excelize.File, error) {
		f.Close()
		return nil, err
	}
	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return fail(fmt.Errorf("rename sheet: %w", err))
	}
	if err := f.SetSheetRow(ledgerSheet, "A1", &ledgerHeaders); err != nil {
		return fail(fmt.Errorf("write header: %w", err))
	}
	for i, l := range lines {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fail(err)
		}
		v := newTransactionView(l)
		row := []any{
			v.Date.Format("2006-01-02 15:04:05"),
			v.Account,
			string(v.Type),
			v.Signed.InexactFloat64(),
			v.Description,
		}
		if err := f.SetSheetRow(ledgerSheet, cell, &row); err != nil {
			return fail(fmt.Errorf("write row %d: %w", i+2, err))
		}
	}
	for i, width := range ledgerColWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fail(err)
		}
		if err := f.SetColWidth(ledgerSheet, col, col, width); err != nil {
			return fail(fmt.Errorf("set width %s: %w", col, err))
		}
	}
	return f, nil
}
