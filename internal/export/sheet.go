package export

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/upi-extractor/constants"
	"github.com/joseph-ayodele/upi-extractor/internal/entity"
	"github.com/joseph-ayodele/upi-extractor/internal/normalize"
)

const DefaultSheet = "Transactions"

// Header is the fixed column schema. Append mode refuses any workbook whose
// first row differs from it.
var Header = []string{
	"Date",
	"Time",
	"Type",
	"Amount",
	"Direction",
	"Sender",
	"Receiver",
	"Account No",
	"IFSC",
	"Transaction ID",
	"Source",
	"Confidence",
}

const (
	colDate = iota
	colTime
	colType
	colAmount
	colDirection
	colSender
	colReceiver
	colAccount
	colIFSC
	colTxnID
	colSource
	colConfidence
	numCols
)

const (
	labelCredit = "Total Credit"
	labelDebit  = "Total Debit"
	labelNet    = "Net"
)

// row is one data line, whether read back from the sheet or built from a record.
type row struct {
	cells     [numCols]string
	amount    *decimal.Decimal
	direction constants.Direction
	key       entity.DuplicateKey
	hasKey    bool
	existing  bool
	duplicate bool
}

func recordRow(rec *entity.Record) row {
	r := row{direction: rec.Direction}
	r.cells[colDate] = rec.DateString()
	r.cells[colTime] = rec.TimeString()
	r.cells[colType] = string(rec.SourceType)
	r.cells[colDirection] = string(rec.Direction)
	r.cells[colSender] = entity.StrOrEmpty(rec.Counterparty.Sender)
	r.cells[colReceiver] = entity.StrOrEmpty(rec.Counterparty.Receiver)
	r.cells[colAccount] = entity.StrOrEmpty(rec.AccountNumber)
	r.cells[colIFSC] = entity.StrOrEmpty(rec.IFSC)
	r.cells[colTxnID] = entity.StrOrEmpty(rec.TransactionID)
	if rec.ImageRef != "" {
		r.cells[colSource] = filepath.Base(rec.ImageRef)
	}
	r.cells[colConfidence] = strconv.FormatFloat(math.Round(rec.Confidence()*100)/100, 'f', -1, 64)
	if rec.Amount != nil {
		a := rec.Amount.Round(2)
		r.amount = &a
		r.cells[colAmount] = a.String()
	}
	r.key, r.hasKey = rec.DuplicateKey()
	return r
}

func sheetRow(cells []string) row {
	r := row{existing: true}
	copy(r.cells[:], cells)
	r.direction = constants.CanonicalDirection(r.cells[colDirection])
	if raw := strings.TrimSpace(r.cells[colAmount]); raw != "" {
		if a, _, err := normalize.ParseAmount(raw); err == nil {
			r.amount = &a
			r.key = entity.NewDuplicateKey(a, r.direction, r.cells[colDate], r.cells[colSender], r.cells[colReceiver])
			r.hasKey = true
		}
	}
	return r
}

func checkHeader(got []string) error {
	if len(got) != len(Header) {
		return fmt.Errorf("header has %d columns, want %d", len(got), len(Header))
	}
	for i, h := range Header {
		if got[i] != h {
			return fmt.Errorf("column %d is %q, want %q", i+1, got[i], h)
		}
	}
	return nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func isSummary(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	switch strings.TrimSpace(cells[0]) {
	case labelCredit, labelDebit, labelNet:
		return true
	}
	return false
}

type styleKey struct {
	direction constants.Direction
	duplicate bool
	amount    bool
}

type styler struct {
	f     *excelize.File
	cache map[styleKey]int
}

const (
	numFmtAmount = 4 // #,##0.00
	colorHeader  = "1F3864"
	colorCredit  = "006100"
	colorDebit   = "C00000"
	colorDup     = "FFC000"
)

func (s *styler) get(k styleKey) (int, error) {
	if id, ok := s.cache[k]; ok {
		return id, nil
	}
	st := &excelize.Style{}
	switch k.direction {
	case constants.Credit:
		st.Font = &excelize.Font{Color: colorCredit}
	case constants.Debit:
		st.Font = &excelize.Font{Color: colorDebit}
	}
	if k.duplicate {
		st.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{colorDup}}
	}
	if k.amount {
		st.NumFmt = numFmtAmount
	}
	id, err := s.f.NewStyle(st)
	if err != nil {
		return 0, err
	}
	s.cache[k] = id
	return id, nil
}

// render builds the whole workbook in memory: header, data rows, one blank
// row, then the summary block.
func (e *Exporter) render(rows []row, totals Totals) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), e.sheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	sheet := e.sheet
	if err := writeHeader(f, sheet); err != nil {
		_ = f.Close()
		return nil, err
	}

	st := &styler{f: f, cache: map[styleKey]int{}}
	for i, r := range rows {
		if err := writeRow(f, st, sheet, i+2, r); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	if err := writeSummary(f, sheet, len(rows)+3, totals); err != nil {
		_ = f.Close()
		return nil, err
	}

	_ = f.SetColWidth(sheet, "A", "B", 12) // date, time
	_ = f.SetColWidth(sheet, "C", "C", 10) // type
	_ = f.SetColWidth(sheet, "D", "D", 14) // amount
	_ = f.SetColWidth(sheet, "E", "E", 10) // direction
	_ = f.SetColWidth(sheet, "F", "G", 26) // parties
	_ = f.SetColWidth(sheet, "H", "I", 18) // account, ifsc
	_ = f.SetColWidth(sheet, "J", "J", 24) // txn id
	_ = f.SetColWidth(sheet, "K", "K", 40) // source
	_ = f.SetColWidth(sheet, "L", "L", 11) // confidence
	return f, nil
}

func writeHeader(f *excelize.File, sheet string) error {
	values := make([]any, len(Header))
	for i, h := range Header {
		values[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &values); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{colorHeader}},
	})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(Header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeRow(f *excelize.File, st *styler, sheet string, n int, r row) error {
	values := make([]any, numCols)
	for i, c := range r.cells {
		values[i] = c
	}
	if r.amount != nil {
		values[colAmount] = r.amount.InexactFloat64()
	}
	if c, err := strconv.ParseFloat(r.cells[colConfidence], 64); err == nil {
		values[colConfidence] = c
	}
	first, _ := excelize.CoordinatesToCellName(1, n)
	if err := f.SetSheetRow(sheet, first, &values); err != nil {
		return err
	}

	base, err := st.get(styleKey{direction: r.direction, duplicate: r.duplicate})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(numCols, n)
	if err := f.SetCellStyle(sheet, first, last, base); err != nil {
		return err
	}
	amt, err := st.get(styleKey{direction: r.direction, duplicate: r.duplicate, amount: true})
	if err != nil {
		return err
	}
	cell, _ := excelize.CoordinatesToCellName(colAmount+1, n)
	return f.SetCellStyle(sheet, cell, cell, amt)
}

func writeSummary(f *excelize.File, sheet string, n int, t Totals) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: numFmtAmount})
	if err != nil {
		return err
	}
	lines := []struct {
		label string
		value decimal.Decimal
	}{
		{labelCredit, t.Credit},
		{labelDebit, t.Debit},
		{labelNet, t.Net},
	}
	for i, l := range lines {
		label, _ := excelize.CoordinatesToCellName(1, n+i)
		value, _ := excelize.CoordinatesToCellName(colAmount+1, n+i)
		if err := f.SetCellValue(sheet, label, l.label); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, value, l.value.InexactFloat64()); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, label, value, style); err != nil {
			return err
		}
	}
	return nil
}
