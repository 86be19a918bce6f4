package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/straye-as/offers-api/internal/config"
	"go.uber.org/zap"
)

const (
	defaultPDFTimeout = 30 * time.Second
	// A4 in inches
	a4Width  = 8.27
	a4Height = 11.69
	// 15mm
	pdfMargin = 0.59
)

// ErrEmptyPDF is returned when Chrome produced no output
var ErrEmptyPDF = errors.New("generated PDF is empty")

// PDFRenderer prints the HTML document to PDF with headless Chrome, either
// launched locally or reached through a DevTools URL
type PDFRenderer struct {
	html        *HTMLRenderer
	timeout     time.Duration
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewPDFRenderer creates a PDFRenderer. Close releases the browser allocator.
func NewPDFRenderer(cfg *config.PDFConfig, html *HTMLRenderer, logger *zap.Logger) *PDFRenderer {
	r := &PDFRenderer{
		html:    html,
		timeout: cfg.TimeoutDuration(),
		logger:  logger,
	}
	if r.timeout <= 0 {
		r.timeout = defaultPDFTimeout
	}

	if cfg.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
		return r
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return r
}

// ContentType implements Renderer
func (r *PDFRenderer) ContentType() string {
	return "application/pdf"
}

// Render implements Renderer
func (r *PDFRenderer) Render(ctx context.Context, doc *Document) ([]byte, error) {
	markup, err := r.html.Render(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render html: %w", err)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			r.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer browserCancel()

	// chromedp runs on browserCtx; stop it when the caller gives up
	stop := context.AfterFunc(ctx, browserCancel)
	defer stop()

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(markup)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4Width).
				WithPaperHeight(a4Height).
				WithMarginTop(pdfMargin).
				WithMarginBottom(pdfMargin).
				WithMarginLeft(pdfMargin).
				WithMarginRight(pdfMargin).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("pdf rendering aborted after %v: %w", time.Since(start), ctxErr)
		}
		r.logger.Error("chromedp rendering failed", zap.Error(err))
		return nil, fmt.Errorf("chromedp execution failed: %w", err)
	}
	if len(pdf) == 0 {
		return nil, ErrEmptyPDF
	}

	r.logger.Debug("pdf rendered",
		zap.String("number", doc.Number()),
		zap.Int("bytes", len(pdf)),
		zap.Duration("duration", time.Since(start)),
	)
	return pdf, nil
}

// Close releases the browser allocator
func (r *PDFRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}
