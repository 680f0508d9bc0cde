package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/upi-extractor/internal/classify"
	"github.com/joseph-ayodele/upi-extractor/internal/common"
	"github.com/joseph-ayodele/upi-extractor/internal/ocr"
)

// runocr prints what the OCR engine sees for one image, before any field extraction.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <image-path>")
		os.Exit(2)
	}
	image := os.Args[1]

	cfg, err := common.LoadConfig(os.Getenv("UPIX_CONFIG"))
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	engine := ocr.NewTesseract(ocr.Config{
		Tesseract:           cfg.OCR.Tesseract,
		Lang:                cfg.OCR.Lang,
		TessdataDir:         cfg.OCR.TessdataDir,
		HeicConverter:       cfg.OCR.HeicConverter,
		EnableTSVConfidence: cfg.OCR.EnableTSVConfidence,
		PSM:                 cfg.OCR.PSM,
		OEM:                 cfg.OCR.OEM,
	}, logger)
	if err := engine.Check(ctx); err != nil {
		logger.Error("ocr engine unavailable", "error", err)
		os.Exit(1)
	}

	res, err := engine.Recognize(ctx, image)
	if err != nil {
		logger.Error("ocr failed", "image", image, "error", err)
		os.Exit(1)
	}
	cls := classify.New(classify.WithMinScore(cfg.Classifier.MinScore)).Classify(res.Text)

	logger.Info("ocr ok",
		"image", image,
		"chars", len(res.Text),
		"tokens", len(res.Tokens),
		"confidence", res.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{
		"image":          image,
		"text":           res.Text,
		"prepared":       ocr.Prepare(res.Text),
		"confidence":     res.Confidence,
		"warnings":       res.Warnings,
		"classification": cls,
	}); err != nil {
		logger.Error("encode", "error", err)
		os.Exit(1)
	}
}
