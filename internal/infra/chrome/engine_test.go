package chrome

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"svgrender/internal/config"
)

func TestWrapperHTML_EmbedsSizedDataURL(t *testing.T) {
	svg := []byte(`<svg width="4" height="2" viewBox="0 0 4 2"/>`)
	html := wrapperHTML(svg, 512, 256)

	if !strings.Contains(html, `width="512" height="256"`) {
		t.Fatalf("expected sized img, got %s", html)
	}
	if !strings.Contains(html, base64.StdEncoding.EncodeToString(svg)) {
		t.Fatalf("expected base64 svg payload")
	}
	if !strings.Contains(html, "data:image/svg+xml;base64,") {
		t.Fatalf("expected svg data url")
	}
}

func TestDraw_ErrorWhenBinaryMissing(t *testing.T) {
	e := NewEngine(config.RenderConfig{ChromePath: "/definitely/missing/chrome", ChromeNoSandbox: true})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := e.Draw(ctx, []byte(`<svg width="1" height="1" viewBox="0 0 1 1"/>`), 512, 512); err == nil {
		t.Fatalf("expected render error with missing chrome binary")
	}
}

func TestDrawInTab_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := drawInTab(ctx, []byte(`<svg width="1" height="1"/>`), 1, 1); err == nil {
		t.Fatalf("expected canceled-context error")
	}
}

func TestAllocatorOptions_AddsPathAndSandboxOnlyWhenConfigured(t *testing.T) {
	base := NewEngine(config.RenderConfig{}).allocatorOptions(t.TempDir())
	full := NewEngine(config.RenderConfig{ChromePath: "/usr/bin/chromium", ChromeNoSandbox: true}).allocatorOptions(t.TempDir())

	if len(full) != len(base)+2 {
		t.Fatalf("expected exec path and no-sandbox on top of %d options, got %d", len(base), len(full))
	}
}
