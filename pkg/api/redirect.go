package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"pan123/pkg/metrics"
	"pan123/pkg/types"
)

var hrefPattern = regexp.MustCompile(`href='(https?://[^']+)'`)

// ErrNoSignedURL is returned when a redirect page carries no usable link.
var ErrNoSignedURL = errors.New("no signed URL in redirect page")

// ResolveRedirect fetches the redirect page at pageURL without following
// redirects and extracts the signed URL from its href attribute. A bare
// Location header is accepted when the body has no link.
func (c *Client) ResolveRedirect(ctx context.Context, pageURL string) (string, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.metaTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &TransportError{Op: "resolve redirect", Err: err}
	}

	resp, err := c.noRedirect.Do(req)
	if err != nil {
		c.observe("resolve_redirect", metrics.OutcomeTransport, start)
		return "", &TransportError{Op: "resolve redirect", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.observe("resolve_redirect", metrics.OutcomeTransport, start)
		return "", &TransportError{Op: "resolve redirect", Err: err}
	}

	if m := hrefPattern.FindSubmatch(body); m != nil {
		c.observe("resolve_redirect", metrics.OutcomeOK, start)
		return string(m[1]), nil
	}
	if loc := resp.Header.Get("Location"); loc != "" && resp.StatusCode >= 300 && resp.StatusCode < 400 {
		c.observe("resolve_redirect", metrics.OutcomeOK, start)
		return loc, nil
	}

	c.observe("resolve_redirect", metrics.OutcomeTransport, start)
	return "", &TransportError{Op: "resolve redirect", Err: fmt.Errorf("%w (HTTP %d)", ErrNoSignedURL, resp.StatusCode)}
}

// ResolveDownloadURL resolves e to its final signed URL. Folders resolve to
// a zip of their contents.
func (c *Client) ResolveDownloadURL(ctx context.Context, e types.Entry) (string, error) {
	var (
		page string
		err  error
	)
	if e.IsFolder() {
		page, err = c.BatchDownloadInfo(ctx, e.ID)
	} else {
		page, err = c.DownloadInfo(ctx, e)
	}
	if err != nil {
		return "", err
	}
	return c.ResolveRedirect(ctx, page)
}
