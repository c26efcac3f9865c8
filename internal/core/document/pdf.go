package document

import (
	"bytes"
	"io"
	"regexp"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
)

// PDFInfo is what the loader learns from the PDF structure without rendering it.
type PDFInfo struct {
	PageCount int
	// HasText is true when any page content stream shows text (BT ... Tj/TJ),
	// i.e. the PDF is native rather than a scan.
	HasText bool
}

var (
	reBeginText = regexp.MustCompile(`(^|\s)BT(\s|$)`)
	reShowText  = regexp.MustCompile(`(\)|\])\s*T[jJ]\b`)
)

// InspectPDF parses and validates data with pdfcpu. Corrupt PDFs are a FormatError.
func InspectPDF(data []byte) (PDFInfo, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return PDFInfo{}, common.NewFormatError("invalid pdf", err)
	}
	if ctx.PageCount == 0 {
		return PDFInfo{}, common.NewFormatError("pdf has no pages", nil)
	}

	info := PDFInfo{PageCount: ctx.PageCount}
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		if pageHasText(ctx, pageNr) {
			info.HasText = true
			break
		}
	}
	return info, nil
}

func pageHasText(ctx *model.Context, pageNr int) bool {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil || r == nil {
		return false
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return false
	}
	return reBeginText.Match(data) && reShowText.Match(data)
}
