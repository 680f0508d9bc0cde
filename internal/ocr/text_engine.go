package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TextEngine treats each image reference as already recognized: it reads the sibling
// "<image>.txt" (or the reference itself when it is a .txt file). Useful to re-run
// extraction over OCR output captured earlier without a tesseract install.
type TextEngine struct {
	logger *slog.Logger
}

func NewTextEngine(logger *slog.Logger) *TextEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextEngine{logger: logger}
}

func (e *TextEngine) Check(context.Context) error { return nil }

func (e *TextEngine) Recognize(ctx context.Context, imageRef string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	start := time.Now()
	path := imageRef
	if !strings.EqualFold(filepath.Ext(imageRef), ".txt") {
		path = imageRef + ".txt"
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read text for %s: %w", imageRef, err)
	}
	txt := string(b)
	e.logger.Debug("text engine read", "image", imageRef, "path", path, "chars", len(txt))
	return Result{
		Text:       txt,
		Confidence: heuristicConfidence(txt),
		Duration:   time.Since(start),
	}, nil
}
