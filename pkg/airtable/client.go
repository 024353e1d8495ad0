// Package airtable provides a lightweight Airtable REST client.
// Uses raw HTTP calls (no SDK); only the list/create/patch calls the service needs.
package airtable

import (
	"bytes"
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

// DefaultBaseURL は Airtable REST API のベース URL
const DefaultBaseURL = "https://api.airtable.com/v0"

// ErrNotConfigured は API キーまたはベース ID が未設定の場合のエラー
var ErrNotConfigured = errors.New("airtable: not configured")

// Record は Airtable の 1 レコード
type Record struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime,omitempty"`
	Fields      map[string]any `json:"fields"`
}

// APIError は Airtable が返したエラー応答
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("airtable: HTTP %d %s", e.StatusCode, e.Type)
	}
	return fmt.Sprintf("airtable: HTTP %d %s: %s", e.StatusCode, e.Type, e.Message)
}

// Client は Airtable API クライアント
type Client struct {
	APIKey     string
	BaseID     string
	BaseURL    string
	httpClient *http.Client
}

// NewClient は Client を生成する。timeout は 1 リクエストあたりの上限。
func NewClient(apiKey, baseID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		APIKey:     apiKey,
		BaseID:     baseID,
		BaseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient は差し替え用（テストで httptest サーバーを向ける）
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Configured は API キーとベース ID が揃っているかを返す
func (c *Client) Configured() bool {
	return c.APIKey != "" && c.BaseID != ""
}

// List は filterByFormula に一致するレコードを返す。maxRecords <= 0 は上限なし（1 ページ分）。
func (c *Client) List(ctx context.Context, table, formula string, maxRecords int) ([]Record, error) {
	q := url.Values{}
	if formula != "" {
		q.Set("filterByFormula", formula)
	}
	if maxRecords > 0 {
		q.Set("maxRecords", strconv.Itoa(maxRecords))
	}

	var result struct {
		Records []Record `json:"records"`
	}
	if err := c.do(ctx, http.MethodGet, c.tableURL(table)+"?"+q.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return result.Records, nil
}

// Create はレコードを 1 件作成する
func (c *Client) Create(ctx context.Context, table string, fields map[string]any) (Record, error) {
	var rec Record
	err := c.do(ctx, http.MethodPost, c.tableURL(table), map[string]any{"fields": fields}, &rec)
	return rec, err
}

// Update は指定フィールドだけを PATCH する（未指定フィールドは保持される）
func (c *Client) Update(ctx context.Context, table, id string, fields map[string]any) (Record, error) {
	var rec Record
	err := c.do(ctx, http.MethodPatch, c.tableURL(table)+"/"+url.PathEscape(id), map[string]any{"fields": fields}, &rec)
	return rec, err
}

// Get は ID でレコードを 1 件取得する
func (c *Client) Get(ctx context.Context, table, id string) (Record, error) {
	var rec Record
	err := c.do(ctx, http.MethodGet, c.tableURL(table)+"/"+url.PathEscape(id), nil, &rec)
	return rec, err
}

func (c *Client) tableURL(table string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	return base + "/" + url.PathEscape(c.BaseID) + "/" + url.PathEscape(table)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	// error は {"error": {"type": "...", "message": "..."}} か {"error": "NOT_FOUND"} のどちらか
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Error) > 0 {
		var detailed struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(envelope.Error, &detailed); err == nil {
			apiErr.Type = detailed.Type
			apiErr.Message = detailed.Message
		} else {
			var code string
			if err := json.Unmarshal(envelope.Error, &code); err == nil {
				apiErr.Type = code
			}
		}
	}
	if apiErr.Type == "" {
		apiErr.Type = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// IsNotFound は 404 応答かどうかを返す
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
