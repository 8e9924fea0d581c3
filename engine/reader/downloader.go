// Package reader implements PaperReader: download each paper's PDF and
// extract its text, with a three-tier extraction cascade so a single
// unparseable PDF never fails the whole batch.
package reader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// downloader fetches a paper's PDF to cacheDir/<id>.pdf, skipping the
// request entirely if the file is already there (resumable across runs, the
// same as the teacher's manuals.Downloader).
type downloader struct {
	client    *http.Client
	cacheDir  string
	userAgent string
}

func newDownloader(client *http.Client, cacheDir string) *downloader {
	return &downloader{client: client, cacheDir: cacheDir, userAgent: "paperflow/1.0"}
}

// download returns the local path to id's PDF, fetching it if necessary.
func (d *downloader) download(ctx context.Context, pdfURL, id string) (string, error) {
	finalPath := filepath.Join(d.cacheDir, id+".pdf")
	if _, err := os.Stat(finalPath); err == nil {
		return finalPath, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return "", fmt.Errorf("reader: build request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reader: download %s: %w", pdfURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reader: download %s: status %d", pdfURL, resp.StatusCode)
	}

	tmpPath := finalPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("reader: create temp file: %w", err)
	}

	n, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("reader: write pdf: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("reader: close pdf: %w", closeErr)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		os.Remove(tmpPath)
		return "", fmt.Errorf("reader: incomplete download for %s: got %d of %d bytes", id, n, resp.ContentLength)
	}

	if err := verifyPDFHeader(tmpPath); err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("reader: rename %s: %w", tmpPath, err)
	}
	return finalPath, nil
}

func verifyPDFHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	header := make([]byte, 5)
	n, err := f.Read(header)
	if err != nil && err != io.EOF {
		return err
	}
	if n < 4 || string(header[:4]) != "%PDF" {
		return fmt.Errorf("reader: not a valid PDF file: %s", path)
	}
	return nil
}

// absToPDFURL turns an arXiv abstract-page URL into its PDF URL, the same
// string substitution the original implementation does.
func absToPDFURL(absURL string) string {
	return strings.Replace(absURL, "/abs/", "/pdf/", 1)
}
