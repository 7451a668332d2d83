package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svgrender/internal/domain"
)

type stubRenderer struct {
	calls int
	got   domain.RenderRequest
	resp  domain.RenderResponse
	err   error
}

func (s *stubRenderer) Render(ctx context.Context, req domain.RenderRequest) (domain.RenderResponse, error) {
	s.calls++
	s.got = req
	if ctx.Done() != nil {
		return domain.RenderResponse{}, domain.New(domain.KindInternal, "context should be detached")
	}
	return s.resp, s.err
}

func renderApp(svc Renderer) *fiber.App {
	app := fiber.New()
	app.Post("/render", Render(svc))
	app.Get("/healthz", Health)
	return app
}

func post(t *testing.T, app *fiber.App, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", "/render", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func TestRender_Success(t *testing.T) {
	svc := &stubRenderer{resp: domain.RenderResponse{
		PNGURL:      "https://signed.example/renders/x.png",
		ObjectName:  "renders/x.png",
		Dimensions:  domain.Dimensions{Width: 512, Height: 320},
		PrunedFiles: 3,
		ExpiresAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}}

	status, body := post(t, renderApp(svc), `{"svg_url":"https://example.com/a.svg"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "https://example.com/a.svg", svc.got.SVGURL)
	assert.Equal(t, "https://signed.example/renders/x.png", body["png_url"])
	assert.Equal(t, "renders/x.png", body["object_name"])
	assert.Equal(t, map[string]any{"width": float64(512), "height": float64(320)}, body["dimensions"])
	assert.Equal(t, float64(3), body["pruned_files"])
}

func TestRender_MalformedBodyIsInvalidInput(t *testing.T) {
	svc := &stubRenderer{}

	status, body := post(t, renderApp(svc), `{"svg_url":`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "InvalidInput", body["error"].(map[string]any)["kind"])
	assert.Zero(t, svc.calls)
}

func TestRender_ErrorKindsMapToStatus(t *testing.T) {
	cases := []struct {
		kind   domain.Kind
		status int
	}{
		{domain.KindInvalidInput, 400},
		{domain.KindFetchTimeout, 400},
		{domain.KindPayloadTooLarge, 400},
		{domain.KindFetchFailed, 400},
		{domain.KindRenderFailed, 400},
		{domain.KindStoreFailure, 500},
		{domain.KindSigningFailed, 500},
		{domain.KindInternal, 500},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			svc := &stubRenderer{err: domain.New(tc.kind, "stage failed")}
			status, body := post(t, renderApp(svc), `{"svg_url":"https://example.com/a.svg"}`)
			assert.Equal(t, tc.status, status)
			errBody := body["error"].(map[string]any)
			assert.Equal(t, string(tc.kind), errBody["kind"])
			assert.Equal(t, float64(tc.status), errBody["code"])
			assert.Equal(t, "stage failed", errBody["message"])
		})
	}
}

func TestHealth(t *testing.T) {
	resp, err := renderApp(&stubRenderer{}).Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}
