package reader

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAbsToPDFURL(t *testing.T) {
	got := absToPDFURL("http://arxiv.org/abs/2108.09112")
	want := "http://arxiv.org/pdf/2108.09112"
	if got != want {
		t.Errorf("absToPDFURL = %q, want %q", got, want)
	}
}

func TestExtractBTET(t *testing.T) {
	data := []byte("garbage BT (Hello) (World) ET more garbage")
	got := extractBTET(data)
	if got != "Hello World" {
		t.Errorf("extractBTET = %q, want %q", got, "Hello World")
	}
}

func TestExtractBTETIgnoresTextOutsideBlocks(t *testing.T) {
	data := []byte("(Outside) BT (Inside) ET (AlsoOutside)")
	got := extractBTET(data)
	if got != "Inside" {
		t.Errorf("extractBTET = %q, want %q", got, "Inside")
	}
}

func TestCleanPDFTextUnescapes(t *testing.T) {
	got := cleanPDFText(`Line one\nLine two \(escaped\)`)
	want := "Line one\nLine two (escaped)"
	if got != want {
		t.Errorf("cleanPDFText = %q, want %q", got, want)
	}
}

func TestVerifyPDFHeaderRejectsNonPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-a-pdf.pdf")
	if err := os.WriteFile(path, []byte("plain text file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := verifyPDFHeader(path); err == nil {
		t.Error("expected verifyPDFHeader to reject a non-PDF file")
	}
}

func TestVerifyPDFHeaderAcceptsPDFMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "real.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4\n..."), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := verifyPDFHeader(path); err != nil {
		t.Errorf("expected valid PDF header to pass, got %v", err)
	}
}

func TestExtractStreamScanRecoversPrintableRuns(t *testing.T) {
	data := []byte("preamble stream\x00\x00Readable words here\x00\x00endstream trailer")
	got := extractStreamScan(data)
	if got == "" {
		t.Error("expected extractStreamScan to recover some text")
	}
}

func TestExtractTextFallsBackWhenFileMissing(t *testing.T) {
	if got := extractText(filepath.Join(t.TempDir(), "missing.pdf")); got != "" {
		t.Errorf("extractText on missing file = %q, want empty", got)
	}
}
