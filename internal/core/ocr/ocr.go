// Package ocr wraps the tesseract and pdftoppm command-line tools.
package ocr

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Language    string // default "eng"
	TessdataDir string
	DPI         int // rasterization DPI for PDFs, default 300
	MaxPages    int // 0 = no limit

	PSM int // 3 = fully automatic page segmentation
	OEM int // 1 = LSTM; leave 0 to use default

	Timeout time.Duration // per command
}

// ConfigFrom maps the application config section onto the extractor config.
func ConfigFrom(c common.OCRConfig) Config {
	return Config{
		Pdftoppm:    c.Pdftoppm,
		Tesseract:   c.Tesseract,
		Language:    c.Language,
		TessdataDir: c.TessdataDir,
		DPI:         c.DPI,
		MaxPages:    c.MaxPages,
		PSM:         c.PSM,
		OEM:         c.OEM,
		Timeout:     c.Timeout,
	}
}

// Token is one recognized word.
type Token struct {
	Text       string
	Confidence float64 // 0..1
}

// Recognition is tesseract's reading of one page image.
type Recognition struct {
	Text       string
	Tokens     []Token
	Confidence float64 // mean token confidence, 0..1
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	return newExtractor(cfg, execRunner{}, logger)
}

func newExtractor(cfg Config, runner Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: runner, logger: logger}
}

// RecognizeImage runs tesseract in TSV mode over img.
func (e *Extractor) RecognizeImage(ctx context.Context, img image.Image) (Recognition, error) {
	start := time.Now()
	tmpDir, err := os.MkdirTemp("", "ca-ocr-*")
	if err != nil {
		return Recognition{}, err
	}
	defer e.removeAll(tmpDir)

	path := filepath.Join(tmpDir, "page.png")
	if err := writePNG(path, img); err != nil {
		return Recognition{}, fmt.Errorf("write page image: %w", err)
	}

	args := []string{path, "stdout", "-l", e.cfg.Language}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.logger, args...)
	if err != nil {
		return Recognition{}, fmt.Errorf("tesseract: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}

	rec := ParseTSV(out)
	e.logger.Debug("ocr.recognize.ok",
		"tokens", len(rec.Tokens),
		"text_len", len(rec.Text),
		"confidence", rec.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

var rePageNum = regexp.MustCompile(`-(\d+)\.png$`)

// Rasterize renders every page of a PDF to PNG bytes, in page order, capped at
// MaxPages.
func (e *Extractor) Rasterize(ctx context.Context, pdf []byte) ([][]byte, error) {
	start := time.Now()
	tmpDir, err := os.MkdirTemp("", "ca-pp-*")
	if err != nil {
		return nil, err
	}
	defer e.removeAll(tmpDir)

	in := filepath.Join(tmpDir, "doc.pdf")
	if err := os.WriteFile(in, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	prefix := filepath.Join(tmpDir, "page")

	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, in, prefix)

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, e.logger, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}

	// pdftoppm zero-pads page numbers to the width of the page count
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Slice(matches, func(i, j int) bool { return pageNumber(matches[i]) < pageNumber(matches[j]) })
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, common.NewFormatError("pdf rendered no pages", nil)
	}

	pages := make([][]byte, 0, len(matches))
	for _, m := range matches {
		b, err := os.ReadFile(m)
		if err != nil {
			return nil, fmt.Errorf("read rendered page: %w", err)
		}
		pages = append(pages, b)
	}
	e.logger.Debug("ocr.rasterize.ok", "pages", len(pages), "dpi", e.cfg.DPI, "duration_ms", time.Since(start).Milliseconds())
	return pages, nil
}

func (e *Extractor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, e.cfg.Timeout)
	}
	return ctx, func() {}
}

func (e *Extractor) removeAll(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		e.logger.Warn("failed to remove temp dir", "dir", dir, "error", err)
	}
}

func pageNumber(path string) int {
	m := rePageNum.FindStringSubmatch(path)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
