// Package document turns an uploaded contract into page images.
package document

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for image.Decode
	_ "image/png"
	"log/slog"
	"path/filepath"

	"github.com/h2non/filetype"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/entity"
)

// Rasterizer renders PDF pages to encoded PNGs.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte) ([][]byte, error)
}

// Page is one decoded page image. Raw is the encoded page as rendered; vision
// models receive it unchanged.
type Page struct {
	Index    int
	Image    image.Image
	Raw      []byte
	MIMEType string
}

// Document is a loaded contract ready for per-page extraction.
type Document struct {
	Name  string
	Type  constants.DocumentType
	Pages []Page
	// TotalPages is the page count reported by the PDF, which can exceed
	// len(Pages) when MaxPages truncated it.
	TotalPages int
	Notes      []string
}

type Loader struct {
	rasterizer Rasterizer
	maxPages   int
	logger     *slog.Logger
}

func NewLoader(rasterizer Rasterizer, maxPages int, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{rasterizer: rasterizer, maxPages: maxPages, logger: logger}
}

// Sniff inspects the magic bytes and returns the actual format and MIME type.
// Anything other than PDF, PNG or JPEG is a FormatError.
func Sniff(data []byte) (constants.DocumentFormat, string, error) {
	if len(data) == 0 {
		return "", "", common.NewFormatError("document is empty", nil)
	}
	kind, err := filetype.Match(data)
	if err != nil {
		return "", "", common.NewFormatError("cannot sniff document type", err)
	}
	switch kind.MIME.Value {
	case "application/pdf":
		return constants.FormatPDF, kind.MIME.Value, nil
	case "image/png", "image/jpeg":
		return constants.FormatImage, kind.MIME.Value, nil
	case "":
		return "", "", common.NewFormatError("unrecognized document content", nil)
	default:
		return "", "", common.NewFormatError(fmt.Sprintf("unsupported content type %s", kind.MIME.Value), nil)
	}
}

// DeclaredFormat resolves the format a caller claimed for in: the explicit
// Format first, then the MIME type, then the file extension.
func DeclaredFormat(in entity.DocumentInput) constants.DocumentFormat {
	if in.Format != "" {
		return in.Format
	}
	if f := constants.MapMIMEToFormat(in.MIMEType); f != "" {
		return f
	}
	return constants.MapExtToFormat(filepath.Ext(in.Name))
}

// Load sniffs, validates and decodes in into pages. A declared PDF that is
// actually an image (or the reverse) is a FormatError.
func (l *Loader) Load(ctx context.Context, in entity.DocumentInput) (*Document, error) {
	actual, mime, err := Sniff(in.Data)
	if err != nil {
		return nil, err
	}
	if declared := DeclaredFormat(in); declared != "" && declared != actual {
		return nil, common.NewFormatError(fmt.Sprintf("declared %s but content is %s (%s)", declared, actual, mime), nil)
	}

	log := common.LoggerFrom(ctx, l.logger)
	switch actual {
	case constants.FormatPDF:
		doc, err := l.loadPDF(ctx, in)
		if err != nil {
			return nil, err
		}
		log.Info("document.load.ok", "type", doc.Type, "pages", len(doc.Pages), "total_pages", doc.TotalPages)
		return doc, nil
	default:
		img, err := decodeImage(in.Data)
		if err != nil {
			return nil, err
		}
		log.Info("document.load.ok", "type", constants.DocumentImage, "pages", 1, "mime", mime)
		return &Document{
			Name:       in.Name,
			Type:       constants.DocumentImage,
			Pages:      []Page{{Index: 0, Image: img, Raw: in.Data, MIMEType: mime}},
			TotalPages: 1,
		}, nil
	}
}

func (l *Loader) loadPDF(ctx context.Context, in entity.DocumentInput) (*Document, error) {
	info, err := InspectPDF(in.Data)
	if err != nil {
		return nil, err
	}
	docType := constants.DocumentScannedPDF
	if info.HasText {
		docType = constants.DocumentNativePDF
	}

	if l.rasterizer == nil {
		return nil, common.NewAppError(common.CodeConfig, "no pdf rasterizer configured", common.ErrInternal)
	}
	rendered, err := l.rasterizer.Rasterize(ctx, in.Data)
	if err != nil {
		return nil, fmt.Errorf("rasterize pdf: %w", err)
	}

	doc := &Document{Name: in.Name, Type: docType, TotalPages: info.PageCount}
	if l.maxPages > 0 && len(rendered) > l.maxPages {
		rendered = rendered[:l.maxPages]
	}
	if info.PageCount > len(rendered) {
		doc.Notes = append(doc.Notes, fmt.Sprintf("Only the first %d of %d pages were processed", len(rendered), info.PageCount))
	}

	for i, raw := range rendered {
		img, err := decodeImage(raw)
		if err != nil {
			return nil, common.AtPage(constants.StagePreprocessing, i, err)
		}
		mime := "image/png"
		if kind, err := filetype.Match(raw); err == nil && kind.MIME.Value != "" {
			mime = kind.MIME.Value
		}
		doc.Pages = append(doc.Pages, Page{Index: i, Image: img, Raw: raw, MIMEType: mime})
	}
	if len(doc.Pages) == 0 {
		return nil, common.NewFormatError("pdf has no renderable pages", nil)
	}
	return doc, nil
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, common.NewFormatError("cannot decode image", err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, common.NewFormatError("image has zero size", nil)
	}
	return img, nil
}
