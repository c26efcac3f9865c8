package ocr

import (
	"strconv"
	"strings"
)

// tesseract TSV columns
const (
	colLevel = iota
	colPage
	colBlock
	colPar
	colLine
	colWord
	colLeft
	colTop
	colWidth
	colHeight
	colConf
	colText
	tsvColumns
)

// ParseTSV turns tesseract TSV output into text and per-word confidences.
// Words keep their line structure; a new paragraph or block starts a blank
// line. Confidence is the mean of conf/100 over words with conf >= 0 and
// non-empty text, clamped to [0,1].
func ParseTSV(out []byte) Recognition {
	var (
		rec       Recognition
		b         strings.Builder
		line      []string
		sum       float64
		lastLine  = [3]int{-1, -1, -1}
		lineCount int
	)
	flush := func() {
		if len(line) > 0 {
			b.WriteString(strings.Join(line, " "))
			b.WriteByte('\n')
			line = line[:0]
			lineCount++
		}
	}

	for i, ln := range strings.Split(string(out), "\n") {
		if i == 0 && strings.HasPrefix(ln, "level") {
			continue
		}
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < tsvColumns {
			continue
		}
		if cols[colLevel] != "5" {
			continue
		}
		text := strings.TrimSpace(cols[colText])
		conf, err := strconv.ParseFloat(cols[colConf], 64)
		if err != nil || conf < 0 || text == "" {
			continue
		}

		key := [3]int{atoi(cols[colBlock]), atoi(cols[colPar]), atoi(cols[colLine])}
		if key != lastLine {
			flush()
			if lineCount > 0 && (key[0] != lastLine[0] || key[1] != lastLine[1]) {
				b.WriteByte('\n')
			}
			lastLine = key
		}
		line = append(line, text)

		c := clamp01(conf / 100)
		rec.Tokens = append(rec.Tokens, Token{Text: text, Confidence: c})
		sum += c
	}
	flush()

	rec.Text = Normalize(b.String())
	if n := len(rec.Tokens); n > 0 {
		rec.Confidence = clamp01(sum / float64(n))
	}
	return rec
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
