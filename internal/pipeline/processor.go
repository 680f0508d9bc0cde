// Package pipeline runs images through OCR, classification, extraction and
// normalization, one at a time or as a bounded concurrent batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/upi-extractor/constants"
	"github.com/joseph-ayodele/upi-extractor/internal/classify"
	"github.com/joseph-ayodele/upi-extractor/internal/common"
	"github.com/joseph-ayodele/upi-extractor/internal/entity"
	"github.com/joseph-ayodele/upi-extractor/internal/extract"
	"github.com/joseph-ayodele/upi-extractor/internal/normalize"
	"github.com/joseph-ayodele/upi-extractor/internal/ocr"
)

// Processor coordinates OCR (text) then rules (fields) for a single image.
type Processor struct {
	logger     *slog.Logger
	engine     ocr.Engine
	classifier *classify.Classifier
	registry   *extract.Registry
	normalizer *normalize.Normalizer
}

func NewProcessor(
	logger *slog.Logger,
	engine ocr.Engine,
	classifier *classify.Classifier,
	registry *extract.Registry,
	normalizer *normalize.Normalizer,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:     logger,
		engine:     engine,
		classifier: classifier,
		registry:   registry,
		normalizer: normalizer,
	}
}

// CheckEngine verifies the OCR engine can run. Any failure is reported as
// common.ErrOCRUnavailable.
func (p *Processor) CheckEngine(ctx context.Context) error {
	if err := p.engine.Check(ctx); err != nil {
		if !errors.Is(err, common.ErrOCRUnavailable) {
			err = common.OCRUnavailable(err)
		}
		p.logger.Error("processor.ocr.unavailable", "error", err)
		return err
	}
	return nil
}

// ProcessImage runs OCR for imageRef and turns the text into a record.
// Empty OCR output yields an error wrapping common.ErrNoTextDetected.
func (p *Processor) ProcessImage(ctx context.Context, imageRef string, override *constants.SourceType) (*entity.Record, error) {
	start := time.Now()
	res, err := p.engine.Recognize(ctx, imageRef)
	if err != nil {
		p.logger.Error("processor.ocr.failed", "image", imageRef, "err", err)
		return nil, common.WrapError(err, "ocr "+imageRef)
	}
	if res.Empty() {
		p.logger.Warn("processor.ocr.empty", "image", imageRef)
		return nil, common.NoTextDetected(imageRef)
	}
	p.logger.Debug("processor.ocr.ok",
		"image", imageRef,
		"confidence", res.Confidence,
		"tokens", len(res.Tokens),
		"duration_ms", res.Duration.Milliseconds(),
	)

	rec := p.ProcessText(res.Text, res.Tokens, imageRef, override)

	// flag weak OCR for review
	if res.Confidence > 0 && res.Confidence < constants.ImageConfidenceThreshold {
		p.logger.Warn("image ocr confidence low; needs review", "image", imageRef, "conf", res.Confidence)
		rec.AddWarning("", constants.WarnLowOCRConfidence,
			fmt.Sprintf("ocr confidence %.2f below %.2f", res.Confidence, constants.ImageConfidenceThreshold))
	}

	p.logger.Info("processor.record.ok",
		"image", imageRef,
		"source_type", rec.SourceType,
		"warnings", len(rec.Warnings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

// ProcessText classifies (unless override is set), extracts and normalizes text.
// It never fails.
func (p *Processor) ProcessText(text string, tokens []ocr.Token, imageRef string, override *constants.SourceType) *entity.Record {
	sourceType, confidence := constants.Unknown, 0.0
	var ambiguous, unclassified bool
	if override != nil {
		sourceType, confidence = *override, 1.0
	} else {
		c := p.classifier.Classify(text)
		sourceType, confidence, ambiguous, unclassified = c.Type, c.Confidence, c.Ambiguous, c.Unclassified
		p.logger.Debug("processor.classified", "image", imageRef, "type", c.Type, "confidence", c.Confidence, "matched", c.Matched)
	}

	res := p.registry.For(sourceType).Extract(extract.Input{Text: text, Tokens: tokens})
	res.ClassifierConfidence = confidence
	if ambiguous {
		res.Warnings = append(res.Warnings, entity.Warning{
			Field:   entity.FieldSourceType,
			Code:    constants.WarnClassificationAmbiguous,
			Message: common.ErrClassificationAmbiguous.Error(),
		})
	}
	if unclassified {
		res.Warnings = append(res.Warnings, entity.Warning{
			Field:   entity.FieldSourceType,
			Code:    constants.WarnUnclassified,
			Message: "no document type matched; only generic rules applied",
		})
	}
	return p.normalizer.Normalize(res, text, imageRef)
}
