package ocr

import (
	"context"
	"log/slog"
	"time"
)

// Engine is the OCR collaborator: image in, raw text (possibly empty) plus optional token confidence out.
type Engine interface {
	// Check reports whether the engine can run at all. A failure is fatal for a batch
	// and wraps common.ErrOCRUnavailable.
	Check(ctx context.Context) error
	Recognize(ctx context.Context, imageRef string) (Result, error)
}

type Config struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Lang      string // default "eng"

	TessdataDir         string
	EnableTSVConfidence bool

	// HeicConverter converts .heic/.heif screenshots first: builtin (default) | heif-convert | magick | sips
	HeicConverter string

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default
}

// Token is one recognized word with the engine's confidence in [0,1].
type Token struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type Result struct {
	Text       string        `json:"text"`
	Tokens     []Token       `json:"tokens,omitempty"`
	Confidence float64       `json:"confidence"`
	Language   string        `json:"language"`
	Duration   time.Duration `json:"duration"`
	Warnings   []string      `json:"warnings,omitempty"`
}

// Empty reports whether no usable text was recognized.
func (r Result) Empty() bool {
	return len(Normalize(r.Text)) == 0
}

type Tesseract struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// Option customizes a Tesseract engine.
type Option func(*Tesseract)

// WithRunner swaps the command runner, mainly for tests.
func WithRunner(r Runner) Option {
	return func(t *Tesseract) {
		if r != nil {
			t.runner = r
		}
	}
}

func NewTesseract(cfg Config, logger *slog.Logger, opts ...Option) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	t := &Tesseract{cfg: cfg, runner: execRunner{}, logger: logger}
	for _, opt := range opts {
		opt(t)
	}
	return t
}
