package templating

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexclassroom/woocommerce/internal/domain/templating"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	defaultPDFTimeout = 30 * time.Second
	// A4 in inches
	a4Width  = 8.27
	a4Height = 11.69
)

// ChromedpConfig contains configuration for the HTML to PDF converter
type ChromedpConfig struct {
	// Timeout for one conversion. Default: 30s
	Timeout time.Duration
	// RemoteURL of a running Chrome DevTools endpoint. When empty a local
	// headless browser is started.
	RemoteURL string
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	// MarginMM is applied to every side of the page
	MarginMM float64
	// Logger for debug output
	Logger *zap.Logger
}

// ChromedpConverter converts rendered HTML to PDF with headless Chrome
type ChromedpConverter struct {
	config      ChromedpConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromedpConverter creates a converter and its browser allocator
func NewChromedpConverter(cfg ChromedpConfig) *ChromedpConverter {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultPDFTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &ChromedpConverter{config: cfg, logger: logger}

	if cfg.RemoteURL != "" {
		c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-first-run", true),
			chromedp.Flag("disable-extensions", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-background-networking", true),
		)
		if cfg.NoSandbox {
			opts = append(opts, chromedp.Flag("no-sandbox", true))
		}
		c.allocCtx, c.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	return c
}

// Convert renders an HTML document to an A4 portrait PDF
func (c *ChromedpConverter) Convert(ctx context.Context, html string) ([]byte, error) {
	if strings.TrimSpace(html) == "" {
		return nil, templating.Errorf(templating.ErrCodeRenderFailed, "HTML content is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(c.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			c.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer browserCancel()

	// Stop the browser tab when the caller's context ends.
	stop := context.AfterFunc(ctx, browserCancel)
	defer stop()

	margin := c.config.MarginMM / 25.4
	var pdf []byte

	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4Width).
				WithPaperHeight(a4Height).
				WithMarginTop(margin).
				WithMarginRight(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, templating.NewError(templating.ErrCodeRenderFailed,
				fmt.Sprintf("PDF conversion timed out after %v", c.config.Timeout), err)
		}
		c.logger.Error("chromedp conversion failed", zap.Error(err))
		return nil, templating.NewError(templating.ErrCodeRenderFailed, "PDF conversion failed", err)
	}

	if len(pdf) == 0 {
		return nil, templating.Errorf(templating.ErrCodeRenderFailed, "generated PDF is empty")
	}
	return pdf, nil
}

// Close releases the browser allocator
func (c *ChromedpConverter) Close() error {
	if c.allocCancel != nil {
		c.allocCancel()
	}
	return nil
}
