// Package zenodo provides a Go client for the Zenodo deposition API.
//
// The client is a thin, stateless-per-call wrapper around the REST endpoints
// used by release publishing: deposition CRUD, file CRUD and the publish
// action. Every call retries transport failures and 5xx responses up to a
// fixed bound with a fixed inter-attempt delay; 4xx responses are surfaced
// immediately as caller errors.
//
// Example usage:
//
//	client, err := zenodo.New(token,
//	    zenodo.WithSandbox(),
//	    zenodo.WithLogger(slog.Default()),
//	)
//	if err != nil {
//	    return err
//	}
//	deps, err := client.ListDepositions(ctx)
package zenodo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// depositionsPath is the collection endpoint for depositions.
const depositionsPath = "/api/deposit/depositions"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// Client is a stateless-per-call wrapper around the archive deposition API.
// All methods are safe for sequential use; the workflow that drives the
// client is strictly single-threaded.
type Client struct {
	token   string
	options *clientOptions
}

// New creates a new archive client authenticating with the given token.
//
// By default the client targets the production host, authenticates via the
// Authorization header, and retries transient failures three times with a
// five second delay.
func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.httpClient == nil {
		options.httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	return &Client{token: token, options: options}, nil
}

// endpoint joins path elements onto the deposition collection URL.
func (c *Client) endpoint(elem ...string) string {
	u := c.options.baseURL + depositionsPath
	if len(elem) > 0 {
		u += "/" + path.Join(elem...)
	}
	return u
}

// authorize attaches the API token to the request, either as a bearer
// header or as the access_token query parameter.
func (c *Client) authorize(req *http.Request) {
	if c.options.tokenInQuery {
		q := req.URL.Query()
		q.Set("access_token", c.token)
		req.URL.RawQuery = q.Encode()
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
}

// jsonRequest returns a request factory for a JSON payload. The factory is
// re-invoked on every retry attempt so the body is always fresh.
func jsonRequest(ctx context.Context, method, rawURL string, payload any) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		var body io.Reader
		if payload != nil {
			data, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("encoding request body: %w", err)
			}
			body = bytes.NewReader(data)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}
}

// do performs one API operation with retry. newReq is invoked per attempt;
// a non-nil out receives the decoded JSON response.
func (c *Client) do(ctx context.Context, op string, newReq func() (*http.Request, error), out any) error {
	return retryOperation(ctx, c.options.maxAttempts, c.options.retryDelay, c.options.sleep, func() error {
		req, err := newReq()
		if err != nil {
			return &RequestError{Op: op, Err: err}
		}
		c.authorize(req)

		if c.options.logger != nil {
			c.options.logger.DebugContext(ctx, "archive request",
				"op", op,
				"method", req.Method,
				"url", req.URL.Redacted())
		}

		resp, err := c.options.httpClient.Do(req)
		if err != nil {
			return &RequestError{Op: op, Transient: true, Err: err}
		}
		defer func() { _ = resp.Body.Close() }()

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if readErr != nil {
			return &RequestError{Op: op, StatusCode: resp.StatusCode, Transient: true, Err: readErr}
		}

		switch {
		case resp.StatusCode >= http.StatusInternalServerError:
			return &RequestError{Op: op, StatusCode: resp.StatusCode, Body: excerpt(body), Transient: true}
		case resp.StatusCode == http.StatusNotFound:
			return &RequestError{Op: op, StatusCode: resp.StatusCode, Body: excerpt(body), Err: ErrNotFound}
		case resp.StatusCode >= http.StatusBadRequest:
			return &RequestError{Op: op, StatusCode: resp.StatusCode, Body: excerpt(body)}
		}

		if out != nil && len(body) > 0 {
			if err := json.Unmarshal(body, out); err != nil {
				return &RequestError{Op: op, StatusCode: resp.StatusCode, Body: excerpt(body),
					Err: fmt.Errorf("decoding response: %w", err)}
			}
		}
		return nil
	})
}

// ListDepositions returns every deposition visible to the authenticated
// identity.
func (c *Client) ListDepositions(ctx context.Context) ([]Deposition, error) {
	var deps []Deposition
	if err := c.do(ctx, "ListDepositions", jsonRequest(ctx, http.MethodGet, c.endpoint(), nil), &deps); err != nil {
		return nil, err
	}
	if c.options.logger != nil {
		c.options.logger.InfoContext(ctx, "listed depositions", "count", len(deps))
	}
	return deps, nil
}

// GetDeposition fetches a single deposition by id.
func (c *Client) GetDeposition(ctx context.Context, id int64) (*Deposition, error) {
	var dep Deposition
	u := c.endpoint(strconv.FormatInt(id, 10))
	if err := c.do(ctx, "GetDeposition", jsonRequest(ctx, http.MethodGet, u, nil), &dep); err != nil {
		return nil, err
	}
	return &dep, nil
}

// CreateDeposition creates a brand-new deposition (a new concept) with the
// given metadata. The returned deposition is an unsubmitted draft.
func (c *Client) CreateDeposition(ctx context.Context, meta DepositionMetadata) (*Deposition, error) {
	var dep Deposition
	payload := map[string]DepositionMetadata{"metadata": meta}
	if err := c.do(ctx, "CreateDeposition", jsonRequest(ctx, http.MethodPost, c.endpoint(), payload), &dep); err != nil {
		return nil, err
	}
	if c.options.logger != nil {
		c.options.logger.InfoContext(ctx, "created deposition",
			"deposition_id", dep.ID,
			"concept_id", dep.ConceptRecID)
	}
	return &dep, nil
}

// NewVersion opens a new draft version of an existing concept. Returns an
// error wrapping ErrNotFound when the concept no longer resolves, in which
// case callers should fall back to CreateDeposition.
func (c *Client) NewVersion(ctx context.Context, conceptID string) (*Deposition, error) {
	if conceptID == "" {
		return nil, fmt.Errorf("concept id cannot be empty")
	}

	deps, err := c.listByConcept(ctx, conceptID)
	if err != nil {
		return nil, err
	}
	if len(deps) == 0 {
		return nil, fmt.Errorf("concept %s: %w", conceptID, ErrNotFound)
	}

	latest := deps[0]
	var dep Deposition
	u := c.endpoint(strconv.FormatInt(latest.ID, 10), "actions", "newversion")
	if err := c.do(ctx, "NewVersion", jsonRequest(ctx, http.MethodPost, u, nil), &dep); err != nil {
		return nil, err
	}

	// The newversion action responds with the source record; the fresh
	// draft has to be followed through the latest_draft link.
	if dep.Links.LatestDraft != "" {
		draftID, idErr := idFromURL(dep.Links.LatestDraft)
		if idErr != nil {
			return nil, &RequestError{Op: "NewVersion", Err: idErr}
		}
		if draftID != dep.ID {
			draft, getErr := c.GetDeposition(ctx, draftID)
			if getErr != nil {
				return nil, getErr
			}
			dep = *draft
		}
	}

	if c.options.logger != nil {
		c.options.logger.InfoContext(ctx, "created new version",
			"concept_id", conceptID,
			"deposition_id", dep.ID)
	}
	return &dep, nil
}

// listByConcept queries the collection for all records of one concept.
func (c *Client) listByConcept(ctx context.Context, conceptID string) ([]Deposition, error) {
	u := c.endpoint() + "?q=" + url.QueryEscape("conceptrecid:"+conceptID)
	var deps []Deposition
	if err := c.do(ctx, "NewVersion", jsonRequest(ctx, http.MethodGet, u, nil), &deps); err != nil {
		return nil, err
	}
	return deps, nil
}

// ListFiles returns the files currently attached to a deposition.
func (c *Client) ListFiles(ctx context.Context, id int64) ([]File, error) {
	var files []File
	u := c.endpoint(strconv.FormatInt(id, 10), "files")
	if err := c.do(ctx, "ListFiles", jsonRequest(ctx, http.MethodGet, u, nil), &files); err != nil {
		return nil, err
	}
	return files, nil
}

// DeleteFile removes a single file from a draft deposition.
func (c *Client) DeleteFile(ctx context.Context, id int64, fileID string) error {
	u := c.endpoint(strconv.FormatInt(id, 10), "files", fileID)
	if err := c.do(ctx, "DeleteFile", jsonRequest(ctx, http.MethodDelete, u, nil), nil); err != nil {
		return err
	}
	if c.options.logger != nil {
		c.options.logger.InfoContext(ctx, "deleted file",
			"deposition_id", id,
			"file_id", fileID)
	}
	return nil
}

// UploadFile attaches a local file to a draft deposition. name is the
// display name on the archive and defaults to the file's basename.
//
// The multipart body is rebuilt from disk on every retry attempt.
func (c *Client) UploadFile(ctx context.Context, id int64, localPath, name string) error {
	if name == "" {
		name = filepath.Base(localPath)
	}

	u := c.endpoint(strconv.FormatInt(id, 10), "files")
	newReq := func() (*http.Request, error) {
		data, err := os.ReadFile(localPath)
		if err != nil {
			return nil, fmt.Errorf("reading artifact %s: %w", localPath, err)
		}

		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		if err := writer.WriteField("name", name); err != nil {
			return nil, err
		}
		part, err := writer.CreateFormFile("file", name)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(data); err != nil {
			return nil, err
		}
		if err := writer.Close(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return req, nil
	}

	if err := c.do(ctx, "UploadFile", newReq, nil); err != nil {
		return err
	}
	if c.options.logger != nil {
		c.options.logger.InfoContext(ctx, "uploaded file",
			"deposition_id", id,
			"name", name)
	}
	return nil
}

// UpdateMetadata merges the given metadata onto the deposition's existing
// remote metadata. Remote fields not present in meta are preserved; this is
// a shallow merge, not a replace.
//
// The remote metadata is fetched as a raw field map rather than through the
// typed model: the PUT replaces the whole metadata block, so fields the
// model does not know about (access rights, the pre-reserved DOI) must be
// carried through the merge untouched.
func (c *Client) UpdateMetadata(ctx context.Context, id int64, meta DepositionMetadata) error {
	u := c.endpoint(strconv.FormatInt(id, 10))

	var current struct {
		Metadata map[string]any `json:"metadata"`
	}
	if err := c.do(ctx, "UpdateMetadata", jsonRequest(ctx, http.MethodGet, u, nil), &current); err != nil {
		return err
	}

	merged, err := mergeMetadata(current.Metadata, meta)
	if err != nil {
		return &RequestError{Op: "UpdateMetadata", Err: err}
	}

	payload := map[string]any{"metadata": merged}
	if err := c.do(ctx, "UpdateMetadata", jsonRequest(ctx, http.MethodPut, u, payload), nil); err != nil {
		return err
	}
	if c.options.logger != nil {
		c.options.logger.InfoContext(ctx, "updated metadata", "deposition_id", id)
	}
	return nil
}

// Publish transitions a draft deposition to its terminal published state.
// The remote state is checked first: re-publishing an already-published
// deposition fails with ErrAlreadyPublished rather than depending on the
// upstream service to reject the call.
func (c *Client) Publish(ctx context.Context, id int64) (*Deposition, error) {
	current, err := c.GetDeposition(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Published() {
		return nil, fmt.Errorf("deposition %d: %w", id, ErrAlreadyPublished)
	}

	var dep Deposition
	u := c.endpoint(strconv.FormatInt(id, 10), "actions", "publish")
	if err := c.do(ctx, "Publish", jsonRequest(ctx, http.MethodPost, u, nil), &dep); err != nil {
		return nil, err
	}
	if c.options.logger != nil {
		c.options.logger.InfoContext(ctx, "published deposition",
			"deposition_id", dep.ID,
			"doi", dep.Metadata.DOI)
	}
	return &dep, nil
}

// mergeMetadata overlays the JSON fields of next onto the raw remote field
// map. Fields omitted from next (zero-valued, dropped by omitempty) keep
// their remote value, including fields outside the typed model.
func mergeMetadata(base map[string]any, next DepositionMetadata) (map[string]any, error) {
	merged := make(map[string]any, len(base))
	for k, v := range base {
		merged[k] = v
	}

	data, err := json.Marshal(next)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged, nil
}

// idFromURL extracts the trailing numeric record id from an API link.
func idFromURL(rawURL string) (int64, error) {
	trimmed := strings.TrimRight(rawURL, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return 0, fmt.Errorf("malformed record link %q", rawURL)
	}
	id, err := strconv.ParseInt(trimmed[idx+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed record link %q", rawURL)
	}
	return id, nil
}
