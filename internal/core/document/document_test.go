package document

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/entity"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 240
	}
	img.SetGray(1, 1, color.Gray{Y: 0})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// buildPDF writes a one-page PDF with correct xref offsets around content.
func buildPDF(content string) []byte {
	var b strings.Builder
	offsets := make([]int, 6)
	b.WriteString("%PDF-1.4\n")
	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n")
	offsets[4] = b.Len()
	fmt.Fprintf(&b, "4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(content), content)
	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")
	xref := b.Len()
	b.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return []byte(b.String())
}

type fakeRasterizer struct {
	pages [][]byte
	calls int
}

func (f *fakeRasterizer) Rasterize(context.Context, []byte) ([][]byte, error) {
	f.calls++
	return f.pages, nil
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    constants.DocumentFormat
		wantErr bool
	}{
		{"png", pngBytes(t, 4, 4), constants.FormatImage, false},
		{"jpeg", jpegBytes(t), constants.FormatImage, false},
		{"pdf", buildPDF("BT (x) Tj ET"), constants.FormatPDF, false},
		{"text", []byte("just some text"), "", true},
		{"empty", nil, "", true},
		{"gif", []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := Sniff(tt.data)
			if tt.wantErr {
				if !common.IsFormatError(err) {
					t.Fatalf("expected FormatError, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("Sniff = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestLoadImage(t *testing.T) {
	l := NewLoader(nil, 0, nil)
	data := pngBytes(t, 20, 30)
	doc, err := l.Load(context.Background(), entity.DocumentInput{Name: "scan.png", Data: data})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Type != constants.DocumentImage || len(doc.Pages) != 1 {
		t.Fatalf("doc = %+v", doc)
	}
	p := doc.Pages[0]
	if p.MIMEType != "image/png" || !bytes.Equal(p.Raw, data) || p.Image.Bounds().Dx() != 20 {
		t.Errorf("page = %+v", p)
	}
}

func TestLoadRejectsDeclaredMismatch(t *testing.T) {
	l := NewLoader(&fakeRasterizer{}, 0, nil)
	_, err := l.Load(context.Background(), entity.DocumentInput{Name: "contract.pdf", Data: pngBytes(t, 4, 4), Format: constants.FormatPDF})
	if !common.IsFormatError(err) {
		t.Errorf("pdf declared, png content: expected FormatError, got %v", err)
	}

	_, err = l.Load(context.Background(), entity.DocumentInput{Name: "photo.jpg", Data: buildPDF("BT (x) Tj ET")})
	if !common.IsFormatError(err) {
		t.Errorf("jpg declared, pdf content: expected FormatError, got %v", err)
	}
}

func TestLoadAllowsImageSubtypeMismatch(t *testing.T) {
	l := NewLoader(nil, 0, nil)
	doc, err := l.Load(context.Background(), entity.DocumentInput{Name: "photo.jpg", Data: pngBytes(t, 4, 4)})
	if err != nil {
		t.Fatalf("png bytes named .jpg should load: %v", err)
	}
	if doc.Pages[0].MIMEType != "image/png" {
		t.Errorf("mime = %s", doc.Pages[0].MIMEType)
	}
}

func TestLoadCorruptImage(t *testing.T) {
	data := pngBytes(t, 4, 4)
	_, err := NewLoader(nil, 0, nil).Load(context.Background(), entity.DocumentInput{Name: "x.png", Data: data[:20]})
	if !common.IsFormatError(err) {
		t.Errorf("expected FormatError, got %v", err)
	}
}

func TestInspectPDF(t *testing.T) {
	native, err := InspectPDF(buildPDF("BT\n/F1 12 Tf\n72 720 Td\n(MASTER SERVICES AGREEMENT) Tj\nET"))
	if err != nil {
		t.Fatalf("InspectPDF(native): %v", err)
	}
	if native.PageCount != 1 || !native.HasText {
		t.Errorf("native = %+v", native)
	}

	scanned, err := InspectPDF(buildPDF("q 0 0 m 100 100 l S Q"))
	if err != nil {
		t.Fatalf("InspectPDF(scanned): %v", err)
	}
	if scanned.HasText {
		t.Errorf("path-only page should not count as text: %+v", scanned)
	}

	if _, err := InspectPDF([]byte("%PDF-1.4\ngarbage")); !common.IsFormatError(err) {
		t.Errorf("expected FormatError for corrupt pdf, got %v", err)
	}
}

func TestLoadPDF(t *testing.T) {
	r := &fakeRasterizer{pages: [][]byte{pngBytes(t, 10, 10), pngBytes(t, 10, 10), pngBytes(t, 10, 10)}}
	l := NewLoader(r, 2, nil)

	doc, err := l.Load(context.Background(), entity.DocumentInput{Name: "msa.pdf", Data: buildPDF("BT (Hello) Tj ET"), MIMEType: "application/pdf"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Type != constants.DocumentNativePDF {
		t.Errorf("type = %s", doc.Type)
	}
	if len(doc.Pages) != 2 || doc.Pages[1].Index != 1 {
		t.Errorf("expected 2 pages after MaxPages, got %d", len(doc.Pages))
	}
	if r.calls != 1 {
		t.Errorf("rasterizer calls = %d", r.calls)
	}
}
