package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/upi-extractor/internal/common"
	"github.com/joseph-ayodele/upi-extractor/internal/entity"
	"github.com/joseph-ayodele/upi-extractor/internal/ingest"
)

var (
	watchOut      string
	watchType     string
	watchInitial  bool
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>...",
	Short: "Process images as they appear and append them to a workbook",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		override, err := parseOverride(watchType)
		if err != nil {
			return err
		}
		a, err := newApp(cfg, logger, false)
		if err != nil {
			return err
		}
		if err := a.processor.CheckEngine(ctx); err != nil {
			return err
		}
		events, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
			Roots:       args,
			InitialScan: watchInitial,
			Debounce:    watchDebounce,
		}, logger)
		if err != nil {
			return err
		}
		logger.Info("watch.start", "roots", args, "out", watchOut)

		for {
			select {
			case <-ctx.Done():
				logger.Info("watch.stop", "records", a.store.Len())
				return nil
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				logger.Warn("watch.error", "error", err)
			case path, ok := <-events:
				if !ok {
					return nil
				}
				rctx, cancel := common.WithTimeout(context.WithoutCancel(ctx), cfg.Batch.Timeout)
				rec, err := a.processor.ProcessImage(rctx, path, override)
				cancel()
				if err != nil {
					logger.Warn("watch.image.failed", "image", path, "error", err)
					continue
				}
				a.store.Add(rec)
				// the sheet recomputes duplicates itself; the store only holds this run
				res, err := a.exporter.Export(ctx, []entity.Record{rec.Clone()}, watchOut, true)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s %s row %d\n",
					path, rec.SourceType, rec.Direction, res.ExistingRows+2)
			}
		}
	},
}

func init() {
	f := watchCmd.Flags()
	f.StringVarP(&watchOut, "out", "o", "transactions.xlsx", "workbook to append to")
	f.StringVarP(&watchType, "type", "t", "auto", "force the document type: upi, passbook, unknown or auto")
	f.BoolVar(&watchInitial, "initial-scan", false, "process images already present before watching")
	f.DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "wait for writes to settle before processing a file")
	rootCmd.AddCommand(watchCmd)
}
