// Package pdf renders contract HTML to paginated PDF through a headless
// browser. One browser process is shared across all renders; each render gets
// its own tab, cleaned up whether or not the render succeeds.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// RenderTimeout bounds both browser startup and a single render.
const RenderTimeout = 30 * time.Second

// paginationFlag is set by the contract template's script once it has split
// content into pages. Waiting for it is best-effort: a render that never
// signals still proceeds after the timeout rather than failing.
const paginationFlag = "window.__paginationDone === true"

// Renderer turns a self-contained HTML document into a PDF.
type Renderer interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

// ChromeRenderer owns a long-lived headless Chrome allocator. Construct it at
// startup, inject it where needed, and Close it at shutdown.
type ChromeRenderer struct {
	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewChromeRenderer launches the shared browser allocator and verifies a tab
// can start within the render timeout.
func NewChromeRenderer(ctx context.Context, execPath string) (*ChromeRenderer, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-gpu", true),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)

	// Start a throwaway tab so a broken Chrome install fails fast.
	probeCtx, cancelProbe := chromedp.NewContext(allocCtx)
	defer cancelProbe()
	probeCtx, cancelTimeout := context.WithTimeout(probeCtx, RenderTimeout)
	defer cancelTimeout()
	if err := chromedp.Run(probeCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("start headless browser: %w", err)
	}
	return &ChromeRenderer{allocCtx: allocCtx, cancel: cancel}, nil
}

// Close tears down the shared browser process.
func (r *ChromeRenderer) Close() {
	r.cancel()
}

// RenderPDF loads the HTML in a fresh tab, waits (best effort) for the
// pagination script, and prints to A4 PDF.
func (r *ChromeRenderer) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	tabCtx, cancelTab := chromedp.NewContext(r.allocCtx)
	defer cancelTab()

	deadline := RenderTimeout
	if d, ok := ctx.Deadline(); ok {
		if until := time.Until(d); until < deadline {
			deadline = until
		}
	}
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, deadline)
	defer cancelTimeout()

	if err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
	); err != nil {
		return nil, fmt.Errorf("load contract html: %w", err)
	}

	// Pagination wait. On timeout the print proceeds with whatever layout
	// the page reached.
	pollCtx, cancelPoll := context.WithTimeout(tabCtx, deadline)
	pollErr := chromedp.Run(pollCtx, chromedp.Poll(paginationFlag, nil, chromedp.WithPollingInterval(100*time.Millisecond)))
	cancelPoll()
	if pollErr != nil && !errors.Is(pollErr, context.DeadlineExceeded) && !errors.Is(pollErr, chromedp.ErrPollingTimeout) {
		return nil, fmt.Errorf("wait for pagination: %w", pollErr)
	}

	var buf []byte
	err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, _, err = page.PrintToPDF().
			WithPrintBackground(true).
			WithPaperWidth(8.27).  // A4 inches
			WithPaperHeight(11.69).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	return buf, nil
}
