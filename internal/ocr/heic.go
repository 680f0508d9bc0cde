package ocr

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/heic"
)

// BuiltinHEIC decodes in-process with the pure Go decoder; it is used when no converter is configured.
const BuiltinHEIC = "builtin"

// isHEIC reports whether path is an iPhone-style HEIC/HEIF image tesseract cannot read.
func isHEIC(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".heic", ".heif":
		return true
	}
	return false
}

// convertHEICtoPNG converts a HEIC/HEIF file to a PNG in a temp directory.
// The returned cleanup removes it and is never nil.
func convertHEICtoPNG(ctx context.Context, r Runner, logger *slog.Logger, converter, in string) (string, []string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "upix-heic-*")
	if err != nil {
		return "", nil, func() {}, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	out := filepath.Join(tmpDir, "page.png")

	var args []string
	switch converter {
	case "", BuiltinHEIC:
		if err := decodeHEIC(in, out); err != nil {
			return "", nil, cleanup, err
		}
		logger.Debug("heic decoded", "image", in, "png", out)
		return out, nil, cleanup, nil
	case "heif-convert", "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		return "", nil, cleanup, fmt.Errorf("unknown ocr.heic_converter %q: use builtin | heif-convert | magick | sips", converter)
	}
	if _, errb, err := r.Run(ctx, converter, logger, args...); err != nil {
		return "", []string{strings.TrimSpace(string(errb))}, cleanup, fmt.Errorf("%s convert failed: %w", converter, err)
	}
	if _, err := os.Stat(out); err != nil {
		return "", nil, cleanup, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}
	logger.Debug("heic converted", "image", in, "png", out, "converter", converter)
	return out, nil, cleanup, nil
}

func decodeHEIC(in, out string) error {
	src, err := os.Open(in)
	if err != nil {
		return err
	}
	defer src.Close()

	img, err := heic.Decode(src)
	if err != nil {
		return fmt.Errorf("decoding HEIC/HEIF image: %w", err)
	}

	dst, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := png.Encode(dst, img); err != nil {
		_ = dst.Close()
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return dst.Close()
}
