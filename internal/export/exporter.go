// Package export writes session records to an .xlsx workbook, either as a new
// file or appended to one produced earlier.
package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/upi-extractor/constants"
	"github.com/joseph-ayodele/upi-extractor/internal/common"
	"github.com/joseph-ayodele/upi-extractor/internal/entity"
)

// Totals are recomputed over every data row of the written sheet.
type Totals struct {
	Credit decimal.Decimal
	Debit  decimal.Decimal
	Net    decimal.Decimal
}

// DuplicateFlag marks a sheet row (1-based, header is row 1) that shares its
// duplicate key with at least one other row.
type DuplicateFlag struct {
	Row      int
	ImageRef string
	Existing bool
}

type Result struct {
	Path         string
	RowsWritten  int
	ExistingRows int
	Duplicates   []DuplicateFlag
	Totals       Totals
}

// Exporter serializes writes per target path, inside one process through a
// mutex and across processes through an advisory lock file next to the target.
type Exporter struct {
	sheet       string
	lockTimeout time.Duration
	retryDelay  time.Duration
	logger      *slog.Logger

	mu    sync.Mutex
	paths map[string]*sync.Mutex

	save func(f *excelize.File, target string) error
}

func New(cfg common.ExportConfig, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	sheet := cfg.Sheet
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &Exporter{
		sheet:       sheet,
		lockTimeout: cfg.LockTimeout,
		retryDelay:  cfg.RetryDelay,
		logger:      logger,
		paths:       map[string]*sync.Mutex{},
		save:        atomicWrite,
	}
}

// Export writes records to targetPath. In append mode an existing workbook
// must carry the exact column header; its data rows are kept, the records are
// added after them and the summary is recomputed. A missing target in append
// mode is written fresh. On any error the target is left as it was.
func (e *Exporter) Export(ctx context.Context, records []entity.Record, targetPath string, appendMode bool) (Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	abs, err := filepath.Abs(targetPath)
	if err != nil {
		return Result{}, common.ExportIO(targetPath, err)
	}

	unlock := e.lockPath(abs)
	defer unlock()

	release, err := acquireFileLock(ctx, abs, e.lockTimeout)
	if err != nil {
		return Result{}, err
	}
	defer release()

	var existing []row
	if appendMode {
		existing, err = e.readExisting(abs)
		if err != nil {
			return Result{}, err
		}
	}

	rows := make([]row, 0, len(existing)+len(records))
	rows = append(rows, existing...)
	for i := range records {
		rows = append(rows, recordRow(&records[i]))
	}
	dups := markDuplicates(rows)
	totals := computeTotals(rows)

	f, err := e.render(rows, totals)
	if err != nil {
		return Result{}, common.ExportIO(abs, err)
	}
	defer func() { _ = f.Close() }()

	if err := e.saveWithRetry(ctx, f, abs); err != nil {
		return Result{}, err
	}

	res := Result{
		Path:         abs,
		RowsWritten:  len(records),
		ExistingRows: len(existing),
		Duplicates:   dups,
		Totals:       totals,
	}
	e.logger.Info("export.xlsx.ok",
		"path", abs,
		"append", appendMode,
		"existing_rows", res.ExistingRows,
		"rows_written", res.RowsWritten,
		"duplicates", len(dups),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (e *Exporter) lockPath(abs string) func() {
	e.mu.Lock()
	m, ok := e.paths[abs]
	if !ok {
		m = &sync.Mutex{}
		e.paths[abs] = m
	}
	e.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func (e *Exporter) readExisting(path string) ([]row, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		e.logger.Debug("export.append.missing_target", "path", path)
		return nil, nil
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, common.ExportIO(path, common.WrapError(err, "open workbook"))
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(e.sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, common.SchemaMismatch(path, fmt.Sprintf("sheet %q not readable: %v", e.sheet, err))
	}
	if len(rows) == 0 {
		return nil, common.SchemaMismatch(path, "missing header row")
	}
	if err := checkHeader(rows[0]); err != nil {
		return nil, common.SchemaMismatch(path, err.Error())
	}

	var out []row
	for _, cells := range rows[1:] {
		if isBlank(cells) || isSummary(cells) {
			break
		}
		out = append(out, sheetRow(cells))
	}
	return out, nil
}

func (e *Exporter) saveWithRetry(ctx context.Context, f *excelize.File, target string) error {
	err := e.save(f, target)
	if err == nil {
		return nil
	}
	e.logger.Warn("export.write.retry", "path", target, "error", err, "delay_ms", e.retryDelay.Milliseconds())

	select {
	case <-ctx.Done():
		return common.ExportIO(target, errors.Join(err, ctx.Err()))
	case <-time.After(e.retryDelay):
	}
	if err := e.save(f, target); err != nil {
		e.logger.Error("export.write.failed", "path", target, "error", err)
		return common.ExportIO(target, err)
	}
	return nil
}

func computeTotals(rows []row) Totals {
	var t Totals
	for _, r := range rows {
		if r.amount == nil {
			continue
		}
		switch r.direction {
		case constants.Credit:
			t.Credit = t.Credit.Add(*r.amount)
		case constants.Debit:
			t.Debit = t.Debit.Add(*r.amount)
		}
	}
	t.Net = t.Credit.Sub(t.Debit)
	return t
}

// markDuplicates sets row.duplicate on every row whose key is shared and
// returns the flags in sheet order.
func markDuplicates(rows []row) []DuplicateFlag {
	count := map[entity.DuplicateKey]int{}
	for _, r := range rows {
		if r.hasKey {
			count[r.key]++
		}
	}
	var flags []DuplicateFlag
	for i := range rows {
		r := &rows[i]
		r.duplicate = r.hasKey && count[r.key] > 1
		if r.duplicate {
			flags = append(flags, DuplicateFlag{Row: i + 2, ImageRef: r.cells[colSource], Existing: r.existing})
		}
	}
	return flags
}
