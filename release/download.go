package release

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
)

// Download streams the artifact at rawURL into dir and returns the local
// path. The local filename is the basename of the URL path. Callers that
// treat the download as ephemeral remove the file after uploading it.
func (c *Client) Download(ctx context.Context, rawURL, dir string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing artifact URL: %w", err)
	}
	name := path.Base(parsed.Path)
	if name == "" || name == "/" || name == "." {
		return "", fmt.Errorf("artifact URL %q has no file name", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.options.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: status %d", name, resp.StatusCode)
	}

	localPath := filepath.Join(dir, name)
	out, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", localPath, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(localPath)
		return "", fmt.Errorf("writing %s: %w", localPath, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(localPath)
		return "", fmt.Errorf("writing %s: %w", localPath, err)
	}

	if c.options.logger != nil {
		c.options.logger.InfoContext(ctx, "downloaded artifact",
			"name", name,
			"path", localPath)
	}
	return localPath, nil
}
