package budgetclient

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/klokku/salesbudget/internal/rest"
	"github.com/klokku/salesbudget/pkg/audit"
	"github.com/klokku/salesbudget/pkg/entry"
	"github.com/klokku/salesbudget/pkg/masterdata"
	"github.com/klokku/salesbudget/pkg/session"
)

const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx answer of the budget API.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("server error (%d): %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// Client talks to the budget API. It keeps the session id handed out by the server and sends it
// with every following request. It is safe for concurrent use.
type Client struct {
	httpClient *resty.Client

	mu        sync.Mutex
	sessionId string
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
	return &Client{httpClient: restyClient}
}

func (c *Client) SessionId() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionId
}

// SetSessionId resumes an existing session.
func (c *Client) SetSessionId(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionId = id
}

func (c *Client) State(ctx context.Context) (*entry.StateResponse, error) {
	result := new(entry.StateResponse)
	if err := c.do(c.request(ctx).SetResult(result), http.MethodGet, "/api/state"); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) Add(ctx context.Context, req entry.AddEntryRequest) (*entry.EntriesResponse, error) {
	return c.postEntries(ctx, "/api/add", req)
}

func (c *Client) Commit(ctx context.Context, req entry.CommitRequest) (*entry.EntriesResponse, error) {
	return c.postEntries(ctx, "/api/commit", req)
}

func (c *Client) Recalculate(ctx context.Context) (*entry.EntriesResponse, error) {
	return c.postEntries(ctx, "/api/recalc", nil)
}

func (c *Client) UpdateEntry(ctx context.Context, req entry.UpdateEntryRequest) (*entry.EntriesResponse, error) {
	return c.postEntries(ctx, "/api/update_entry", req)
}

func (c *Client) ClearData(ctx context.Context) (*entry.EntriesResponse, error) {
	return c.postEntries(ctx, "/api/clear_data", nil)
}

func (c *Client) AddMaster(ctx context.Context, req masterdata.AddMasterRequest) (*masterdata.MastersResponse, error) {
	result := new(masterdata.MastersResponse)
	if err := c.do(c.request(ctx).SetBody(req).SetResult(result), http.MethodPost, "/api/add_master"); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) LoadMasters(ctx context.Context, fileName string, file io.Reader) (*masterdata.MastersResponse, error) {
	result := new(masterdata.MastersResponse)
	req := c.request(ctx).SetFileReader("file", fileName, file).SetResult(result)
	if err := c.do(req, http.MethodPost, "/api/load_masters"); err != nil {
		return nil, err
	}
	return result, nil
}

// LoadBudget uploads a budget workbook; a blank sheet lets the server use its default.
func (c *Client) LoadBudget(ctx context.Context, fileName string, file io.Reader, sheet string) (*entry.EntriesResponse, error) {
	result := new(entry.EntriesResponse)
	req := c.request(ctx).SetFileReader("file", fileName, file).SetResult(result)
	if sheet != "" {
		req.SetFormData(map[string]string{"sheet": sheet})
	}
	if err := c.do(req, http.MethodPost, "/api/load_budget"); err != nil {
		return nil, err
	}
	return result, nil
}

// DownloadCurrent writes the exported workbook to w and returns the file name the server chose.
func (c *Client) DownloadCurrent(ctx context.Context, w io.Writer) (string, error) {
	req := c.request(ctx)
	resp, err := req.Get("/api/download_current")
	if err != nil {
		return "", fmt.Errorf("download budget: %w", err)
	}
	if err := c.check(resp); err != nil {
		return "", err
	}
	if _, err := w.Write(resp.Body()); err != nil {
		return "", fmt.Errorf("write budget: %w", err)
	}
	return fileName(resp.Header().Get("Content-Disposition")), nil
}

func (c *Client) Rates(ctx context.Context) (*entry.RatesResponse, error) {
	result := new(entry.RatesResponse)
	if err := c.do(c.request(ctx).SetResult(result), http.MethodGet, "/api/rates"); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) Audit(ctx context.Context, limit int) ([]audit.RecordDTO, error) {
	var result []audit.RecordDTO
	req := c.request(ctx).SetResult(&result)
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	if err := c.do(req, http.MethodGet, "/api/audit"); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) postEntries(ctx context.Context, path string, body any) (*entry.EntriesResponse, error) {
	result := new(entry.EntriesResponse)
	req := c.request(ctx).SetResult(result)
	if body != nil {
		req.SetBody(body)
	}
	if err := c.do(req, http.MethodPost, path); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.httpClient.R().SetContext(ctx).SetError(&rest.ErrorResponse{})
	if id := c.SessionId(); id != "" {
		req.SetHeader(session.Header, id)
	}
	return req
}

func (c *Client) do(req *resty.Request, method, path string) error {
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return c.check(resp)
}

// check remembers the session id of every answer and turns error statuses into *APIError.
func (c *Client) check(resp *resty.Response) error {
	if id := resp.Header().Get(session.Header); id != "" {
		c.SetSessionId(id)
	}
	if !resp.IsError() {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode(), Message: http.StatusText(resp.StatusCode())}
	if body, ok := resp.Error().(*rest.ErrorResponse); ok && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Details = body.Details
	}
	return apiErr
}

func fileName(contentDisposition string) string {
	_, params, err := mime.ParseMediaType(contentDisposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
