package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/upi-extractor/constants"
	"github.com/joseph-ayodele/upi-extractor/internal/classify"
	"github.com/joseph-ayodele/upi-extractor/internal/common"
	"github.com/joseph-ayodele/upi-extractor/internal/export"
	"github.com/joseph-ayodele/upi-extractor/internal/extract"
	"github.com/joseph-ayodele/upi-extractor/internal/normalize"
	"github.com/joseph-ayodele/upi-extractor/internal/ocr"
	"github.com/joseph-ayodele/upi-extractor/internal/pipeline"
	"github.com/joseph-ayodele/upi-extractor/internal/session"
)

// app wires one working session: engine, rules, batch runner, store and exporter.
type app struct {
	processor *pipeline.Processor
	batch     *pipeline.Batch
	store     *session.Store
	exporter  *export.Exporter
}

func newApp(c *common.Config, logger *slog.Logger, fromText bool) (*app, error) {
	var engine ocr.Engine
	if fromText {
		engine = ocr.NewTextEngine(logger)
	} else {
		engine = ocr.NewTesseract(ocr.Config{
			Tesseract:           c.OCR.Tesseract,
			Lang:                c.OCR.Lang,
			TessdataDir:         c.OCR.TessdataDir,
			HeicConverter:       c.OCR.HeicConverter,
			EnableTSVConfidence: c.OCR.EnableTSVConfidence,
			PSM:                 c.OCR.PSM,
			OEM:                 c.OCR.OEM,
		}, logger)
	}

	registry, err := extract.NewDefaultRegistry(c.Rules.Dir, logger)
	if err != nil {
		return nil, err
	}
	proc := pipeline.NewProcessor(logger, engine,
		classify.New(classify.WithMinScore(c.Classifier.MinScore)),
		registry,
		normalize.New(
			normalize.WithMinFieldConfidence(c.Normalize.MinFieldConfidence),
			normalize.WithLogger(logger),
		),
	)
	return &app{
		processor: proc,
		batch: pipeline.NewBatch(proc, logger,
			pipeline.WithWorkers(c.Batch.Workers),
			pipeline.WithImageTimeout(c.Batch.Timeout),
			pipeline.WithRateLimit(c.OCR.RatePerSecond),
		),
		store:    session.New(logger),
		exporter: export.New(c.Export, logger),
	}, nil
}

// parseOverride maps the --type flag to a classification override; "" and "auto" mean none.
func parseOverride(s string) (*constants.SourceType, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "auto") {
		return nil, nil
	}
	t, ok := constants.CanonicalSourceType(s)
	if !ok {
		return nil, fmt.Errorf("unknown --type %q (want upi, passbook, unknown or auto)", s)
	}
	return &t, nil
}
