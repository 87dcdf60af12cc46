package remote

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

	"assetadmin/internal/catalog"
	"assetadmin/internal/reference"
	"assetadmin/internal/scope"
	"assetadmin/internal/store"
	"assetadmin/internal/submit"
)

// Client: доступ к внешнему сервису данных с тем же API, что отдаёт сервер
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var (
	_ catalog.Source     = (*Client)(nil)
	_ scope.Source       = (*Client)(nil)
	_ scope.RemoteSource = (*Client)(nil)
	_ store.Store        = (*Client)(nil)
)

type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("upstream: http %d: %s", e.StatusCode, msg)
}

// Unwrap сводит коды ответа к ошибкам хранилища
func (e *HTTPError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return store.ErrNotFound
	case http.StatusConflict:
		return store.ErrVersionConflict
	}
	return nil
}

func New(baseURL, token string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("upstream: missing base url")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.New("upstream: invalid base url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("upstream: invalid base url scheme")
	}
	if u.Host == "" {
		return nil, errors.New("upstream: invalid base url host")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{baseURL: baseURL, token: token, httpClient: &http.Client{Timeout: timeout}}, nil
}

// do выполняет запрос; out == nil, тело ответа не читается
func (c *Client) do(ctx context.Context, method, path string, in any, out any, hdr http.Header) (http.Header, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return resp.Header, readHTTPError(resp)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, fmt.Errorf("upstream: decode %s %s: %w", method, path, err)
		}
	}
	return resp.Header, nil
}

// readHTTPError понимает тело вида {"errors":[{"message":...}]}
func readHTTPError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Errors []struct {
			Code    string `json:"code"`
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	msg := strings.TrimSpace(string(b))
	if err := json.Unmarshal(b, &body); err == nil && len(body.Errors) > 0 {
		parts := make([]string, 0, len(body.Errors))
		for _, e := range body.Errors {
			parts = append(parts, e.Message)
		}
		msg = strings.Join(parts, "; ")
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: msg}
}

func esc(s string) string { return url.PathEscape(s) }

// ===== каталог =====

func (c *Client) ListModules(ctx context.Context) ([]catalog.ModuleDefinition, error) {
	var out []catalog.ModuleDefinition
	_, err := c.do(ctx, http.MethodGet, "/api/modules", nil, &out, nil)
	return out, err
}

func (c *Client) ListSections(ctx context.Context, moduleID string) ([]catalog.Section, error) {
	var out []catalog.Section
	_, err := c.do(ctx, http.MethodGet, "/api/modules/"+esc(moduleID)+"/sections", nil, &out, nil)
	var he *HTTPError
	if errors.As(err, &he) && he.StatusCode == http.StatusNotFound {
		return nil, catalog.ErrModuleNotFound
	}
	return out, err
}

func (c *Client) ListFields(ctx context.Context, sectionID string) ([]catalog.FieldDefinition, error) {
	var out []catalog.FieldDefinition
	_, err := c.do(ctx, http.MethodGet, "/api/sections/"+esc(sectionID)+"/fields", nil, &out, nil)
	var he *HTTPError
	if errors.As(err, &he) && he.StatusCode == http.StatusNotFound {
		return nil, catalog.ErrSectionNotFound
	}
	return out, err
}

// ===== маппинги и разрешение =====

func (c *Client) ListScopeMappings(ctx context.Context, companyID string) ([]scope.Mapping, error) {
	q := url.Values{}
	if companyID != "" {
		q.Set("company", companyID)
	}
	var out []scope.Mapping
	_, err := c.do(ctx, http.MethodGet, "/api/scope-mappings?"+q.Encode(), nil, &out, nil)
	return out, err
}

func (c *Client) GetScopeMapping(ctx context.Context, id string) (scope.Mapping, error) {
	var out scope.Mapping
	_, err := c.do(ctx, http.MethodGet, "/api/scope-mappings/"+esc(id), nil, &out, nil)
	return out, err
}

func (c *Client) CreateScopeMapping(ctx context.Context, m scope.Mapping) (scope.Mapping, error) {
	var out scope.Mapping
	_, err := c.do(ctx, http.MethodPost, "/api/scope-mappings", m, &out, nil)
	return out, err
}

func (c *Client) UpdateScopeMapping(ctx context.Context, id string, m scope.Mapping) (scope.Mapping, error) {
	var out scope.Mapping
	_, err := c.do(ctx, http.MethodPut, "/api/scope-mappings/"+esc(id), m, &out, nil)
	return out, err
}

func (c *Client) DeleteScopeMapping(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/scope-mappings/"+esc(id), nil, nil, nil)
	return err
}

func (c *Client) ResolveSelection(ctx context.Context, companyID, moduleID string, d scope.Dimensions) (scope.Selection, error) {
	q := url.Values{}
	q.Set("company", companyID)
	for _, dim := range scope.All {
		if v := d.Get(dim); v != "" {
			q.Set(string(dim)+"Id", v)
		}
	}
	var out scope.Selection
	_, err := c.do(ctx, http.MethodGet, "/api/modules/"+esc(moduleID)+"/resolve?"+q.Encode(), nil, &out, nil)
	return out, err
}

// ===== справочники =====

func (c *Client) ListRegions(ctx context.Context, country string) ([]reference.Region, error) {
	var out []reference.Region
	_, err := c.do(ctx, http.MethodGet, "/api/regions/"+esc(country), nil, &out, nil)
	return out, err
}

// ===== записи =====

// RecordInput: тело создания/обновления записи; сервер сам прогоняет нормализацию
type RecordInput struct {
	ModuleID  string `json:"moduleId"`
	CompanyID string `json:"companyId"`
	scope.Dimensions
	Status  string         `json:"status,omitempty"`
	Region  string         `json:"region,omitempty"`
	Values  map[string]any `json:"values"`
	Version int64          `json:"version,omitempty"`
}

func inputFromPayload(p submit.Payload) RecordInput {
	return RecordInput{
		ModuleID:   p.ModuleID,
		CompanyID:  p.CompanyID,
		Dimensions: p.Dimensions,
		Status:     p.Status,
		Region:     p.Region,
		Values:     p.Attributes,
	}
}

func actorHeader(actor string) http.Header {
	h := http.Header{}
	if actor != "" {
		h.Set("X-Actor", actor)
	}
	return h
}

func (c *Client) CreateRecord(ctx context.Context, p submit.Payload, actor string) (store.Record, error) {
	var out store.Record
	_, err := c.do(ctx, http.MethodPost, "/api/records", inputFromPayload(p), &out, actorHeader(actor))
	return out, err
}

func (c *Client) UpdateRecord(ctx context.Context, id string, expectedVersion int64, p submit.Payload, actor string) (store.Record, error) {
	h := actorHeader(actor)
	if expectedVersion > 0 {
		h.Set("If-Match", strconv.FormatInt(expectedVersion, 10))
	}
	var out store.Record
	_, err := c.do(ctx, http.MethodPut, "/api/records/"+esc(id), inputFromPayload(p), &out, h)
	return out, err
}

func (c *Client) DeleteRecord(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/records/"+esc(id), nil, nil, nil)
	return err
}

func (c *Client) GetRecord(ctx context.Context, id string) (store.Record, error) {
	var out store.Record
	_, err := c.do(ctx, http.MethodGet, "/api/records/"+esc(id), nil, &out, nil)
	return out, err
}

// ListRecords: total берётся из X-Total-Count
func (c *Client) ListRecords(ctx context.Context, lp store.ListParams) ([]store.Record, int, error) {
	q := url.Values{}
	q.Set("_limit", strconv.Itoa(lp.Limit))
	q.Set("_offset", strconv.Itoa(lp.Offset))
	if len(lp.Sort) > 0 {
		keys := make([]string, 0, len(lp.Sort))
		for _, k := range lp.Sort {
			if k.Desc {
				keys = append(keys, "-"+k.Field)
			} else {
				keys = append(keys, k.Field)
			}
		}
		q.Set("_sort", strings.Join(keys, ","))
	}
	if lp.Q != "" {
		q.Set("q", lp.Q)
	}
	if lp.ModuleID != "" {
		q.Set("module", lp.ModuleID)
	}
	if lp.CompanyID != "" {
		q.Set("company", lp.CompanyID)
	}
	var out []store.Record
	hdr, err := c.do(ctx, http.MethodGet, "/api/records?"+q.Encode(), nil, &out, nil)
	if err != nil {
		return nil, 0, err
	}
	total, convErr := strconv.Atoi(hdr.Get("X-Total-Count"))
	if convErr != nil {
		total = len(out)
	}
	return out, total, nil
}
