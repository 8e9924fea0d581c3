package reader

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/paperflow/paperflow/engine/paper"
)

// PaperReader downloads each input paper's PDF and extracts its text,
// producing []paper.WithSummary whose Summary field is (for now) the raw
// extracted text — LLMSummarizer downstream overwrites it with the model's
// summary. A paper whose download or extraction fails entirely gets an
// empty string rather than aborting the batch, mirroring the original
// _process_single_paper's catch-and-continue behavior.
type PaperReader struct {
	CacheDir    string
	MaxWorkers  int

	client *http.Client
	dl     *downloader
	log    *slog.Logger
}

// NewPaperReader builds a PaperReader. cacheDir holds the downloaded PDFs
// across runs, so a paper already on disk is never re-fetched.
func NewPaperReader(cacheDir string, maxWorkers int, log *slog.Logger) *PaperReader {
	if log == nil {
		log = slog.Default()
	}
	if maxWorkers <= 0 {
		maxWorkers = 20
	}
	return &PaperReader{
		CacheDir:   cacheDir,
		MaxWorkers: maxWorkers,
		client:     &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// Setup creates the cache directory.
func (r *PaperReader) Setup(ctx context.Context) error {
	if err := os.MkdirAll(r.CacheDir, 0o755); err != nil {
		return err
	}
	r.dl = newDownloader(r.client, r.CacheDir)
	return nil
}

func (r *PaperReader) Cleanup(context.Context) error { return nil }

// Process downloads and extracts text for every input paper, bounded to
// MaxWorkers concurrent downloads, preserving input order.
func (r *PaperReader) Process(ctx context.Context, input any) (any, error) {
	papers := input.([]paper.Paper)
	out := make([]paper.WithSummary, len(papers))

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.MaxWorkers)
	for i, p := range papers {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, p paper.Paper) {
			defer func() { <-sem; wg.Done() }()
			out[i] = paper.WithSummary{Paper: p, Summary: r.readOne(ctx, p)}
		}(i, p)
	}
	wg.Wait()
	return out, nil
}

// downloadWithRetry retries a transient download failure with exponential
// backoff, the same kind of retry loop webhook push uses — a network blip
// shouldn't immediately give up and
// degrade to an empty summary for the paper.
func (r *PaperReader) downloadWithRetry(ctx context.Context, pdfURL, id string) (string, error) {
	const maxAttempts = 3
	wait := time.Second

	var path string
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		path, err = r.dl.download(ctx, pdfURL, id)
		if err == nil {
			return path, nil
		}
		if attempt == maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return "", err
}

func (r *PaperReader) readOne(ctx context.Context, p paper.Paper) string {
	pdfURL := absToPDFURL(p.URL)

	path, err := r.downloadWithRetry(ctx, pdfURL, p.ID)
	if err != nil {
		r.log.Warn("reader: download failed", "id", p.ID, "error", err)
		return ""
	}

	text := extractText(path)
	if text == "" {
		r.log.Warn("reader: extraction yielded no text", "id", p.ID, "path", path)
	}
	return text
}
