package surface

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/rendis/placetap/internal/engine/extract"
)

const (
	viewportW = 1280
	viewportH = 800

	// Wheel events are dispatched over the results panel on the left.
	wheelX = 200
	wheelY = 500

	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// consentScript clicks through the cookie consent interstitial when shown.
const consentScript = `(() => {
  const labels = ["Accept all", "I agree", "Aceptar todo", "Terima semua", "Alle akzeptieren"];
  for (const b of document.querySelectorAll("button, input[type=submit]")) {
    const t = (b.innerText || b.value || b.getAttribute("aria-label") || "").trim();
    if (labels.some(l => t.startsWith(l))) { b.click(); return true; }
  }
  return false;
})()`

// ChromeOptions configures the headless browser.
type ChromeOptions struct {
	Headless  bool
	ExecPath  string
	UserAgent string
	Logger    *zap.Logger
}

// Chrome is a Surface backed by a Chrome instance driven over CDP.
type Chrome struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// NewChrome starts a browser. Close must be called to release it.
func NewChrome(parent context.Context, o ChromeOptions) (*Chrome, error) {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.UserAgent == "" {
		o.UserAgent = userAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", o.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.WindowSize(viewportW, viewportH),
		chromedp.UserAgent(o.UserAgent),
	)
	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	sugar := o.Logger.Sugar()
	ctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	// First Run launches the browser process.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	return &Chrome{ctx: ctx, cancel: cancel, allocCancel: allocCancel, logger: o.Logger}, nil
}

// tab binds the browser tab to the caller's deadline and cancellation.
func (c *Chrome) tab(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		tctx   context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		tctx, cancel = context.WithTimeout(c.ctx, timeout)
	} else {
		tctx, cancel = context.WithCancel(c.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return tctx, func() {
		stop()
		cancel()
	}
}

func (c *Chrome) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	tctx, cancel := c.tab(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(tctx, chromedp.Navigate(url)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %v", ErrNavigationTimeout, url, err)
	}

	var clicked bool
	if err := chromedp.Run(tctx, chromedp.Evaluate(consentScript, &clicked)); err == nil && clicked {
		c.logger.Debug("dismissed consent dialog")
		if err := chromedp.Run(tctx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
			return fmt.Errorf("%w: after consent: %v", ErrNavigationTimeout, err)
		}
	}
	return nil
}

func (c *Chrome) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	tctx, cancel := c.tab(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(tctx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrSelectorTimeout, selector)
		}
		return fmt.Errorf("%w: waiting for %s: %v", ErrEvaluation, selector, err)
	}
	return nil
}

func (c *Chrome) Scroll(ctx context.Context, deltaY int) error {
	tctx, cancel := c.tab(ctx, 10*time.Second)
	defer cancel()

	err := chromedp.Run(tctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseWheel, wheelX, wheelY).
			WithDeltaX(0).
			WithDeltaY(float64(deltaY)).
			Do(ctx)
	}))
	if err == nil {
		return nil
	}

	// Fall back to scrolling the results feed directly.
	c.logger.Debug("wheel event failed, scrolling feed", zap.Error(err))
	script := `(() => {
  const feed = document.querySelector('div[role="feed"]');
  if (feed) { feed.scrollBy(0, ` + strconv.Itoa(deltaY) + `); return true; }
  window.scrollBy(0, ` + strconv.Itoa(deltaY) + `);
  return false;
})()`
	var ok bool
	if err := chromedp.Run(tctx, chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("%w: scroll: %v", ErrEvaluation, err)
	}
	return nil
}

func (c *Chrome) Wait(ctx context.Context, d time.Duration) error {
	return Sleep(ctx, d)
}

func (c *Chrome) CountMatching(ctx context.Context, selector string) (int, error) {
	tctx, cancel := c.tab(ctx, 10*time.Second)
	defer cancel()

	var n int
	script := "document.querySelectorAll(" + strconv.Quote(selector) + ").length"
	if err := chromedp.Run(tctx, chromedp.Evaluate(script, &n)); err != nil {
		return 0, fmt.Errorf("%w: counting %s: %v", ErrEvaluation, selector, err)
	}
	return n, nil
}

func (c *Chrome) Activate(ctx context.Context, selector string, index int) error {
	tctx, cancel := c.tab(ctx, 10*time.Second)
	defer cancel()

	var nodes []*cdp.Node
	if err := chromedp.Run(tctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return fmt.Errorf("%w: locating %s: %v", ErrEvaluation, selector, err)
	}
	if index < 0 || index >= len(nodes) {
		return fmt.Errorf("%w: %s[%d] of %d", ErrNoSuchElement, selector, index, len(nodes))
	}
	node := nodes[index]

	return chromedp.Run(tctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return dom.ScrollIntoViewIfNeeded().WithNodeID(node.NodeID).Do(ctx)
		}),
		chromedp.MouseClickNode(node),
	)
}

func (c *Chrome) Snapshot(ctx context.Context) (extract.Snapshot, error) {
	tctx, cancel := c.tab(ctx, 15*time.Second)
	defer cancel()

	var snap extract.Snapshot
	if err := chromedp.Run(tctx,
		chromedp.Location(&snap.URL),
		chromedp.OuterHTML("html", &snap.HTML, chromedp.ByQuery),
	); err != nil {
		return extract.Snapshot{}, fmt.Errorf("%w: snapshot: %v", ErrEvaluation, err)
	}
	return snap, nil
}

// Close shuts the browser down.
func (c *Chrome) Close() error {
	err := chromedp.Cancel(c.ctx)
	c.cancel()
	c.allocCancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
