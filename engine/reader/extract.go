package reader

import (
	"bytes"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractText runs the extraction cascade documented in SPEC_FULL.md: a real
// PDF library first, then two zero-dependency byte-scanners adapted from the
// teacher's manuals.ExtractTextFromPDF. A PDF that defeats all three tiers
// yields "" rather than an error, so one bad paper never fails the batch.
func extractText(path string) string {
	if text := extractWithLedongthuc(path); strings.TrimSpace(text) != "" {
		return text
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	if text := extractBTET(data); strings.TrimSpace(text) != "" {
		return text
	}
	return extractStreamScan(data)
}

// extractWithLedongthuc is the primary extractor: github.com/ledongthuc/pdf
// walks the PDF's content streams and text-showing operators properly,
// unlike the byte-scanning fallbacks below.
func extractWithLedongthuc(path string) string {
	f, r, err := pdf.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	var buf strings.Builder
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
		buf.WriteByte('\n')
	}
	return buf.String()
}

// extractBTET is fallback A: scan for text between BT...ET blocks, the same
// approach as the teacher's manuals.ExtractTextFromPDF, adapted to this
// package's naming.
func extractBTET(data []byte) string {
	var texts []string
	inText := false
	for i := 0; i < len(data)-1; i++ {
		if data[i] == 'B' && data[i+1] == 'T' && (i == 0 || !isAlpha(data[i-1])) {
			inText = true
			continue
		}
		if data[i] == 'E' && data[i+1] == 'T' && inText && (i+2 >= len(data) || !isAlpha(data[i+2])) {
			inText = false
			continue
		}
		if inText && data[i] == '(' {
			end := bytes.IndexByte(data[i+1:], ')')
			if end >= 0 {
				text := cleanPDFText(string(data[i+1 : i+1+end]))
				if text != "" {
					texts = append(texts, text)
				}
				i += end + 1
			}
		}
	}
	return strings.Join(texts, " ")
}

// extractStreamScan is fallback B, used only when the PDF has no BT/ET text
// blocks the scanner above can find (e.g. an object stream compresses them).
// It scans stream...endstream bodies for runs of printable ASCII, which
// recovers readable fragments from uncompressed content streams only.
func extractStreamScan(data []byte) string {
	var texts []string
	streamMarker, endMarker := []byte("stream"), []byte("endstream")

	pos := 0
	for {
		start := bytes.Index(data[pos:], streamMarker)
		if start == -1 {
			break
		}
		start += pos + len(streamMarker)
		end := bytes.Index(data[start:], endMarker)
		if end == -1 {
			break
		}
		end += start

		if text := printableRun(data[start:end]); text != "" {
			texts = append(texts, text)
		}
		pos = end + len(endMarker)
	}
	return strings.Join(texts, " ")
}

func printableRun(data []byte) string {
	var buf strings.Builder
	run := 0
	for _, b := range data {
		if b >= 0x20 && b < 0x7f {
			buf.WriteByte(b)
			run++
		} else {
			if run < 4 {
				trimLast(&buf, run)
			} else {
				buf.WriteByte(' ')
			}
			run = 0
		}
	}
	return strings.TrimSpace(buf.String())
}

// trimLast removes the last n bytes written to buf; used to discard short
// printable runs (PDF operator tokens, not prose) from the stream scan.
func trimLast(buf *strings.Builder, n int) {
	s := buf.String()
	if n > len(s) {
		n = len(s)
	}
	buf.Reset()
	buf.WriteString(s[:len(s)-n])
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func cleanPDFText(s string) string {
	s = strings.ReplaceAll(s, "\\n", "\n")
	s = strings.ReplaceAll(s, "\\r", "\r")
	s = strings.ReplaceAll(s, "\\t", "\t")
	s = strings.ReplaceAll(s, "\\(", "(")
	s = strings.ReplaceAll(s, "\\)", ")")
	s = strings.ReplaceAll(s, "\\\\", "\\")
	return strings.TrimSpace(s)
}
