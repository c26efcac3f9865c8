package constants

import "strings"

// DocumentFormat is the declared format of an uploaded contract.
type DocumentFormat string

const (
	FormatPDF   DocumentFormat = "pdf"
	FormatImage DocumentFormat = "image"
)

// DocumentType is what the loader found after looking inside the bytes.
type DocumentType string

const (
	DocumentNativePDF  DocumentType = "native_pdf"
	DocumentScannedPDF DocumentType = "scanned_pdf"
	DocumentImage      DocumentType = "image"
)

// AllowedExtensions holds the file extensions accepted for contract ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the declared format for a file extension, or "" when unsupported.
func MapExtToFormat(ext string) DocumentFormat {
	switch NormalizeExt(ext) {
	case "pdf":
		return FormatPDF
	case "jpg", "jpeg", "png":
		return FormatImage
	default:
		return ""
	}
}

// MapMIMEToFormat is the content-type counterpart of MapExtToFormat.
func MapMIMEToFormat(mimeType string) DocumentFormat {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case "application/pdf":
		return FormatPDF
	case "image/png", "image/jpeg", "image/jpg":
		return FormatImage
	default:
		return ""
	}
}
