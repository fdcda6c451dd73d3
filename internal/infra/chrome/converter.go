// Package chrome renders markup locally with headless Chrome. It is the
// converter backend used when no hosted converter key is available.
package chrome

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"pdfrelay/internal/config"
	"pdfrelay/internal/domain"
)

// Service names the backend in errors, logs and metrics.
const Service = "chrome"

const (
	a4Width  = 8.27
	a4Height = 11.69

	cssPixelsPerInch = 96.0
	defaultTimeout   = 30 * time.Second
)

// Layout is the page setup handed to PrintToPDF. Sizes are in inches.
type Layout struct {
	Width           float64
	Height          float64
	MarginTop       float64
	MarginRight     float64
	MarginBottom    float64
	MarginLeft      float64
	Landscape       bool
	PrintBackground bool
}

// Converter starts a fresh browser per conversion.
type Converter struct {
	chromePath string
	noSandbox  bool
	timeout    time.Duration
	layout     Layout
}

func New(cfg config.Config) *Converter {
	timeout := cfg.Converter.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Converter{
		chromePath: cfg.Converter.ChromePath,
		noSandbox:  cfg.Converter.ChromeNoSandbox,
		timeout:    timeout,
		layout:     LayoutFromConfig(cfg),
	}
}

// LayoutFromConfig maps the converter options onto an A4 page. Margins are
// read as CSS pixels, the unit the hosted converter uses for bare numbers.
func LayoutFromConfig(cfg config.Config) Layout {
	m := cfg.Converter.Margin
	return Layout{
		Width:           a4Width,
		Height:          a4Height,
		MarginTop:       pxToInches(m.Top),
		MarginRight:     pxToInches(m.Right),
		MarginBottom:    pxToInches(m.Bottom),
		MarginLeft:      pxToInches(m.Left),
		Landscape:       cfg.Converter.Landscape,
		PrintBackground: cfg.Converter.UsePrint,
	}
}

func pxToInches(v string) float64 {
	px, err := strconv.ParseFloat(v, 64)
	if err != nil || px < 0 {
		return 0
	}
	return px / cssPixelsPerInch
}

// Convert renders markup into a PDF.
func (c *Converter) Convert(ctx context.Context, markup string) ([]byte, error) {
	pdf, err := c.render(ctx, markup)
	if err != nil {
		return nil, &domain.UpstreamError{Service: Service, Err: err}
	}
	return pdf, nil
}

func (c *Converter) render(ctx context.Context, markup string) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "chromedata-*")
	if err != nil {
		return nil, fmt.Errorf("cannot create temp profile dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	allocatorOptions := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(tmpDir),
		// Software rendering avoids Vulkan/ANGLE issues in minimal containers.
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-gpu-compositing", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if c.chromePath != "" {
		allocatorOptions = append(allocatorOptions, chromedp.ExecPath(c.chromePath))
	}
	if c.noSandbox {
		allocatorOptions = append(allocatorOptions, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions...)
	defer cancelAlloc()
	chromeCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	chromeCtx, cancelTimeout := context.WithTimeout(chromeCtx, c.timeout)
	defer cancelTimeout()

	return renderInTab(chromeCtx, markup, c.layout)
}

// renderInTab loads markup into a blank tab and prints it.
func renderInTab(ctx context.Context, markup string, l Layout) ([]byte, error) {
	var pdfBuf []byte

	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frame, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frame.Frame.ID, markup).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfBuf, _, err = page.PrintToPDF().
				WithLandscape(l.Landscape).
				WithPrintBackground(l.PrintBackground).
				WithPaperWidth(l.Width).
				WithPaperHeight(l.Height).
				WithMarginTop(l.MarginTop).
				WithMarginRight(l.MarginRight).
				WithMarginBottom(l.MarginBottom).
				WithMarginLeft(l.MarginLeft).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuf, nil
}
