// Package fetch downloads remote SVG documents under a size cap and a
// wall-clock timeout.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	neturl "net/url"
	"time"

	"svgrender/internal/config"
	"svgrender/internal/domain"
)

const maxRedirects = 5

// Fetcher retrieves SVG bytes over HTTP(S).
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	timeout  time.Duration
}

// New builds a Fetcher from the fetch section of the config. A nil transport
// uses http.DefaultTransport.
func New(cfg config.FetchConfig, transport http.RoundTripper) *Fetcher {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Fetcher{
		client: &http.Client{
			Transport:     transport,
			Timeout:       cfg.Timeout,
			CheckRedirect: checkRedirect,
		},
		maxBytes: cfg.MaxSVGBytes,
		timeout:  cfg.Timeout,
	}
}

// ValidateURL accepts only absolute http/https URLs with a host.
func ValidateURL(raw string) (*neturl.URL, error) {
	if raw == "" {
		return nil, domain.New(domain.KindInvalidInput, "svg_url must be a valid HTTP(S) URL")
	}
	u, err := neturl.Parse(raw)
	if err != nil {
		return nil, domain.Wrap(domain.KindInvalidInput, err, "svg_url must be a valid HTTP(S) URL")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, domain.New(domain.KindInvalidInput, "svg_url must be a valid HTTP(S) URL")
	}
	return u, nil
}

func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("redirect to unsupported scheme %q", req.URL.Scheme)
	}
	return nil
}

// Fetch downloads raw. The body is read through a limit so an oversized
// document is abandoned as soon as the cap is crossed.
func (f *Fetcher) Fetch(ctx context.Context, raw string) (domain.FetchedDocument, error) {
	u, err := ValidateURL(raw)
	if err != nil {
		return domain.FetchedDocument{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.FetchedDocument{}, domain.Wrap(domain.KindInvalidInput, err, "svg_url must be a valid HTTP(S) URL")
	}
	req.Header.Set("Accept", "image/svg+xml, */*;q=0.8")
	req.Header.Set("User-Agent", "svgrender/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.FetchedDocument{}, f.classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.FetchedDocument{}, domain.New(domain.KindFetchFailed, "unable to download SVG: upstream returned %s", resp.Status)
	}
	if resp.ContentLength > f.maxBytes {
		return domain.FetchedDocument{}, f.tooLarge()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return domain.FetchedDocument{}, f.classify(err)
	}
	if int64(len(body)) > f.maxBytes {
		return domain.FetchedDocument{}, f.tooLarge()
	}

	return domain.FetchedDocument{Bytes: body, ByteCount: int64(len(body))}, nil
}

func (f *Fetcher) tooLarge() error {
	return domain.New(domain.KindPayloadTooLarge, "SVG exceeds maximum allowed size of %d bytes", f.maxBytes)
}

func (f *Fetcher) classify(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return domain.Wrap(domain.KindFetchTimeout, err, "SVG download exceeded %s", f.timeout)
	}
	return domain.Wrap(domain.KindFetchFailed, err, "unable to download SVG")
}
