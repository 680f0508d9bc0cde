package ocr

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/upi-extractor/internal/common"
)

// Check runs `tesseract --version`.
func (e *Tesseract) Check(ctx context.Context) error {
	if _, _, err := e.runner.Run(ctx, e.cfg.Tesseract, e.logger, "--version"); err != nil {
		return common.OCRUnavailable(err)
	}
	return nil
}

// Recognize OCRs a single image. Empty output is not an error; callers decide what "no text" means.
func (e *Tesseract) Recognize(ctx context.Context, imageRef string) (Result, error) {
	start := time.Now()
	e.logger.Debug("starting ocr", "image", imageRef, "lang", e.cfg.Lang)

	path := imageRef
	var warn []string
	if isHEIC(imageRef) {
		png, w, cleanup, err := convertHEICtoPNG(ctx, e.runner, e.logger, e.cfg.HeicConverter, imageRef)
		defer cleanup()
		if err != nil {
			return Result{Warnings: w}, err
		}
		path = png
	}

	txt, w, err := e.tesseractOCR(ctx, path)
	warn = append(warn, w...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Result{Warnings: warn}, common.OCRUnavailable(err)
		}
		return Result{Warnings: warn}, err
	}

	var tokens []Token
	if e.cfg.EnableTSVConfidence {
		toks, w, err2 := e.tesseractTSV(ctx, path)
		if err2 != nil {
			warn = append(warn, err2.Error())
		} else {
			tokens = toks
			warn = append(warn, w...)
		}
	}

	heurConf := heuristicConfidence(txt)

	// blend: weight OCR higher if present
	conf := heurConf
	if ocrConf := meanConfidence(tokens); ocrConf > 0 {
		conf = 0.7*ocrConf + 0.3*heurConf
	}
	if conf > 1.0 {
		conf = 1.0
	}

	res := Result{
		Text:       txt,
		Tokens:     tokens,
		Confidence: conf,
		Language:   e.cfg.Lang,
		Duration:   time.Since(start),
		Warnings:   warn,
	}
	e.logger.Debug("ocr done",
		"image", imageRef,
		"chars", len(txt),
		"tokens", len(tokens),
		"confidence", conf,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Tesseract) baseArgs(path string) []string {
	args := []string{path, "stdout", "-l", e.cfg.Lang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

func (e *Tesseract) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.logger, e.baseArgs(path)...)
	if err != nil {
		return "", []string{strings.TrimSpace(string(errb))}, fmt.Errorf("tesseract: %w", err)
	}

	// minor cleanup of obvious line noise
	txt := reBoxNoise.ReplaceAllString(string(out), "")
	return txt, nil, nil
}

// tesseractTSV runs tesseract in TSV mode and returns the word-level tokens.
func (e *Tesseract) tesseractTSV(ctx context.Context, path string) ([]Token, []string, error) {
	args := append(e.baseArgs(path), "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.logger, args...)
	if err != nil {
		return nil, []string{strings.TrimSpace(string(errb))}, fmt.Errorf("tesseract TSV: %w", err)
	}
	return parseTSV(string(out)), nil, nil
}

// parseTSV reads tesseract's TSV layout:
// level page_num block_num par_num line_num word_num left top width height conf text
func parseTSV(out string) []Token {
	var tokens []Token
	for i, ln := range strings.Split(out, "\n") {
		if i == 0 || len(ln) == 0 {
			continue
		} // skip header
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < 12 {
			continue
		}
		confStr, text := cols[10], strings.TrimSpace(cols[11])
		if text == "" || confStr == "" || confStr == "-1" {
			continue
		}
		v, err := strconv.ParseFloat(confStr, 64)
		if err != nil {
			continue
		}
		tokens = append(tokens, Token{Text: text, Confidence: clamp01(v / 100.0)})
	}
	return tokens
}

func meanConfidence(tokens []Token) float64 {
	if len(tokens) == 0 {
		return 0
	}
	var sum float64
	for _, t := range tokens {
		sum += t.Confidence
	}
	return sum / float64(len(tokens))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
