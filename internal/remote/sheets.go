package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultSheetsBaseURL = "https://sheets.googleapis.com"

// SheetsClient talks to the Google Sheets v4 values API. The spreadsheet
// ID is the log identity; each named sheet is an independent append-only
// log.
type SheetsClient struct {
	httpClient *http.Client
	tokens     TokenProvider
	baseURL    string
}

// SheetsOption configures a SheetsClient.
type SheetsOption func(*SheetsClient)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(c *http.Client) SheetsOption {
	return func(s *SheetsClient) {
		s.httpClient = c
	}
}

// WithBaseURL points the client at a different endpoint. Tests use an
// httptest server.
func WithBaseURL(base string) SheetsOption {
	return func(s *SheetsClient) {
		s.baseURL = base
	}
}

// NewSheetsClient creates a Sheets-backed remote log using the given
// credential provider.
func NewSheetsClient(tokens TokenProvider, opts ...SheetsOption) *SheetsClient {
	c := &SheetsClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		baseURL:    defaultSheetsBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AppendRows appends rows to the end of the named sheet in one batch.
func (c *SheetsClient) AppendRows(ctx context.Context, logID, sheet string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s:append?valueInputOption=RAW&insertDataOption=INSERT_ROWS",
		c.baseURL, url.PathEscape(logID), url.PathEscape(sheet))

	body, err := json.Marshal(map[string]any{"values": rows})
	if err != nil {
		return fmt.Errorf("append rows: %w", err)
	}

	var resp appendResponse
	if err := c.do(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return fmt.Errorf("append rows: %w", err)
	}
	return nil
}

// FetchRows returns all rows from startRow (1-based) to the end of the
// sheet. A startRow past the end of the data returns an empty result.
func (c *SheetsClient) FetchRows(ctx context.Context, logID, sheet string, startRow int) ([][]string, error) {
	if startRow < 1 {
		startRow = 1
	}

	rangeRef := fmt.Sprintf("%s!A%d:D", sheet, startRow)
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s",
		c.baseURL, url.PathEscape(logID), url.PathEscape(rangeRef))

	var resp valuesResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch rows: %w", err)
	}
	return resp.Values, nil
}

type appendResponse struct {
	Updates struct {
		UpdatedRange string `json:"updatedRange"`
		UpdatedRows  int    `json:"updatedRows"`
	} `json:"updates"`
}

type valuesResponse struct {
	Range  string     `json:"range"`
	Values [][]string `json:"values"`
}

func (c *SheetsClient) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// apiError extracts the structured Google API error shape when present,
// falling back to the raw body.
func apiError(status int, body []byte) *Error {
	var wrapper struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Error.Code != 0 {
		return &Error{
			Status:  wrapper.Error.Code,
			Message: wrapper.Error.Message,
			Body:    string(body),
		}
	}
	return &Error{
		Status:  status,
		Message: http.StatusText(status),
		Body:    string(body),
	}
}
