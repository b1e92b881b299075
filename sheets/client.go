package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxResponseSize = 4 * 1024 * 1024 // 4 MiB

// Client issues read and append operations against the remote sheet store.
// The store is a single HTTP endpoint multiplexing every sheet through query
// parameters; there are no transactions and no schema enforcement, so the
// client does not retry. Callers that need retries wrap Read themselves.
type Client struct {
	baseURL string
	http    *http.Client

	// now feeds the cache-busting token; overridable in tests.
	now func() time.Time
}

// New creates a Client for the given endpoint URL.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("sheets: empty base URL")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("sheets: invalid base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}, nil
}

// Read fetches every row of the named sheet. The remote side has no
// conditional-request support, so a timestamp token defeats any intermediate
// HTTP caches. A zero-row sheet returns an empty slice and no error.
func (c *Client) Read(ctx context.Context, sheet string) ([]Record, error) {
	q := url.Values{}
	q.Set("sheet", sheet)
	q.Set("t", strconv.FormatInt(c.now().UnixMilli(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, newError(KindTransport, sheet, err.Error(), err)
	}

	body, err := c.do(req, sheet)
	if err != nil {
		return nil, err
	}

	var rows []Record
	if err := json.Unmarshal(body, &rows); err == nil {
		if rows == nil {
			rows = []Record{}
		}
		return rows, nil
	}

	// Not an array; the endpoint reports failures as {"error": "..."}.
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, newError(KindMalformed, sheet, "response is neither rows nor an error object", err)
	}
	if payload.Error == "" {
		return nil, newError(KindMalformed, sheet, "unexpected response shape", nil)
	}
	return nil, newError(KindRemote, sheet, payload.Error, nil)
}

// Append adds one row to the end of the named sheet. Values are sent
// positionally; the remote side owns the positional-to-named mapping.
// Callers holding a cache must invalidate the sheet's entry on success.
func (c *Client) Append(ctx context.Context, sheet string, row []any) error {
	data, err := json.Marshal(row)
	if err != nil {
		return newError(KindMalformed, sheet, "row not serializable", err)
	}

	form := url.Values{}
	form.Set("sheet", sheet)
	form.Set("data", string(data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return newError(KindTransport, sheet, err.Error(), err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req, sheet)
	if err != nil {
		return err
	}

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return newError(KindMalformed, sheet, "append response is not JSON", err)
	}
	if resp.Error != "" {
		return newError(KindRemote, sheet, resp.Error, nil)
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "append not acknowledged"
		}
		return newError(KindRemote, sheet, msg, nil)
	}
	return nil
}

func (c *Client) do(req *http.Request, sheet string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, newError(KindTransport, sheet, err.Error(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, newError(KindTransport, sheet, "reading response body: "+err.Error(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(KindTransport, sheet, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	return body, nil
}
