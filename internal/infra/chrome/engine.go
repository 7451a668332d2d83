package chrome

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"svgrender/internal/config"
)

// Engine rasterizes SVG with a headless Chrome started per render.
type Engine struct {
	execPath  string
	noSandbox bool
}

// NewEngine returns a Chrome engine for the render config.
func NewEngine(cfg config.RenderConfig) *Engine {
	return &Engine{execPath: cfg.ChromePath, noSandbox: cfg.ChromeNoSandbox}
}

// Draw loads the SVG as an <img> in a blank tab sized to the target and
// captures exactly width x height pixels with a transparent background.
func (e *Engine) Draw(ctx context.Context, svg []byte, width, height int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "chromedata-*")
	if err != nil {
		return nil, fmt.Errorf("cannot create temp profile dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, e.allocatorOptions(tmpDir)...)
	defer cancelAlloc()
	chromeCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	return drawInTab(chromeCtx, svg, width, height)
}

// allocatorOptions forces software rendering so the engine runs in minimal
// containers without a GPU or a large /dev/shm.
func (e *Engine) allocatorOptions(profileDir string) []chromedp.ExecAllocatorOption {
	opts := make([]chromedp.ExecAllocatorOption, 0, len(chromedp.DefaultExecAllocatorOptions)+10)
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.UserDataDir(profileDir),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
	)
	if e.execPath != "" {
		opts = append(opts, chromedp.ExecPath(e.execPath))
	}
	if e.noSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	return opts
}

func drawInTab(ctx context.Context, svg []byte, width, height int) ([]byte, error) {
	var pngBuf []byte

	err := chromedp.Run(ctx,
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frame, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frame.Frame.ID, wrapperHTML(svg, width, height)).Do(ctx)
		}),
		chromedp.WaitReady("#svg", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetDefaultBackgroundColorOverride().
				WithColor(&cdp.RGBA{R: 0, G: 0, B: 0, A: 0}).
				Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pngBuf, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithClip(&page.Viewport{X: 0, Y: 0, Width: float64(width), Height: float64(height), Scale: 1}).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return pngBuf, nil
}

func wrapperHTML(svg []byte, width, height int) string {
	src := "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(svg)
	return fmt.Sprintf(`<!DOCTYPE html><html><head><style>html,body{margin:0;padding:0;background:transparent;overflow:hidden}img{display:block}</style></head>`+
		`<body><img id="svg" src="%s" width="%d" height="%d"></body></html>`, src, width, height)
}
