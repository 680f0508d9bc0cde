package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/upi-extractor/internal/export"
	"github.com/joseph-ayodele/upi-extractor/internal/ingest"
	"github.com/joseph-ayodele/upi-extractor/internal/normalize"
	"github.com/joseph-ayodele/upi-extractor/internal/pipeline"
)

var (
	extractOut           string
	extractAppend        bool
	extractType          string
	extractConcurrency   int
	extractFromText      bool
	extractIncludeHidden bool
	extractExts          []string
)

var extractCmd = &cobra.Command{
	Use:   "extract <dir|image>...",
	Short: "Process images and write the transactions to a workbook",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		override, err := parseOverride(extractType)
		if err != nil {
			return err
		}
		a, err := newApp(cfg, logger, extractFromText)
		if err != nil {
			return err
		}

		exts := extractExts
		if extractFromText && len(exts) == 0 {
			exts = []string{"txt"}
		}
		refs, stats, perr, err := ingest.Discover(ctx, args, ingest.Options{IncludeExts: exts, IncludeHidden: extractIncludeHidden})
		if err != nil {
			return err
		}
		for _, p := range perr {
			logger.Warn("extract.discover.failed", "path", p.Path, "error", p.Err)
		}
		logger.Info("extract.discovered", "scanned", stats.Scanned, "matched", stats.Matched, "hidden", stats.Hidden)
		if len(refs) == 0 {
			return fmt.Errorf("no images found under %v", args)
		}

		outcomes, err := a.batch.Run(ctx, pipeline.Request{ImageRefs: refs, Override: override, Concurrency: extractConcurrency})
		if err != nil {
			return err
		}
		rep := pipeline.Collect(outcomes, a.store)

		// export even after an interrupt; whatever was processed is kept
		res, err := a.exporter.Export(cmd.Context(), a.store.List(), extractOut, extractAppend)
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), rep, res)
		return nil
	},
}

func init() {
	f := extractCmd.Flags()
	f.StringVarP(&extractOut, "out", "o", "transactions.xlsx", "output workbook")
	f.BoolVarP(&extractAppend, "append", "a", false, "append to an existing workbook instead of replacing it")
	f.StringVarP(&extractType, "type", "t", "auto", "force the document type: upi, passbook, unknown or auto")
	f.IntVarP(&extractConcurrency, "concurrency", "c", 0, "images processed at once (default from config)")
	f.BoolVar(&extractFromText, "from-text", false, "read pre-extracted OCR text (<image>.txt or .txt files) instead of running tesseract")
	f.BoolVar(&extractIncludeHidden, "include-hidden", false, "also process dot files and dot directories")
	f.StringSliceVar(&extractExts, "ext", nil, "file extensions to pick up (default: common image types)")
	rootCmd.AddCommand(extractCmd)
}

func printSummary(w io.Writer, rep pipeline.Report, res export.Result) {
	_, _ = fmt.Fprintf(w, "images:     %d (processed %d, skipped %d, failed %d, cancelled %d)\n",
		rep.Total(), rep.Processed, rep.Skipped, rep.Failed, rep.Cancelled)
	_, _ = fmt.Fprintf(w, "duplicates: %d in session, %d rows flagged in workbook\n", rep.Duplicates, len(res.Duplicates))
	for _, wn := range rep.Warnings {
		_, _ = fmt.Fprintf(w, "  %-10s %s: %s\n", wn.Code, wn.ImageRef, wn.Message)
	}
	_, _ = fmt.Fprintf(w, "workbook:   %s (%d existing + %d new rows)\n", res.Path, res.ExistingRows, res.RowsWritten)
	_, _ = fmt.Fprintf(w, "totals:     credit %s, debit %s, net %s\n",
		normalize.FormatAmount(res.Totals.Credit),
		normalize.FormatAmount(res.Totals.Debit),
		normalize.FormatAmount(res.Totals.Net))
}
