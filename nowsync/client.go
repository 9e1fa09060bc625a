package nowsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// tableClient talks to the remote system's generic Table API
// ({base}/api/now/table/{table}[/{sys_id}]). The bearer credential is
// supplied per call, never stored, so the remote system applies the
// caller's own authorization.
type tableClient struct {
	baseURL string
	http    *http.Client
}

// NewTableClient builds the remote entity client. timeout bounds every call;
// there is no automatic retry at this layer.
func NewTableClient(baseURL string, timeout time.Duration) RemoteClient {
	return &tableClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type tableEnvelope struct {
	Result json.RawMessage `json:"result"`
}

type tableErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	} `json:"error"`
	Status string `json:"status"`
}

func (c *tableClient) Create(ctx context.Context, table string, payload Document, cred Credential) (Document, error) {
	return c.doRecord(ctx, http.MethodPost, table, c.tableURL(table, ""), payload, cred)
}

func (c *tableClient) Get(ctx context.Context, table string, sysID string, cred Credential) (Document, error) {
	return c.doRecord(ctx, http.MethodGet, table, c.tableURL(table, sysID), nil, cred)
}

func (c *tableClient) Update(ctx context.Context, table string, sysID string, payload Document, cred Credential) (Document, error) {
	return c.doRecord(ctx, http.MethodPatch, table, c.tableURL(table, sysID), payload, cred)
}

func (c *tableClient) Delete(ctx context.Context, table string, sysID string, cred Credential) error {
	// 204 with empty body on success.
	_, _, err := c.do(ctx, http.MethodDelete, table, c.tableURL(table, sysID), nil, cred)
	return err
}

func (c *tableClient) List(ctx context.Context, table string, query url.Values, cred Credential) ([]Document, error) {
	endpoint := c.tableURL(table, "")
	if len(query) > 0 {
		endpoint = endpoint + "?" + query.Encode()
	}
	body, _, err := c.do(ctx, http.MethodGet, table, endpoint, nil, cred)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Result []Document `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &RemoteError{Kind: RemoteServerError, Table: table, Message: "malformed response", Err: err}
	}
	return envelope.Result, nil
}

func (c *tableClient) tableURL(table, sysID string) string {
	if sysID == "" {
		return fmt.Sprintf("%s/api/now/table/%s", c.baseURL, table)
	}
	return fmt.Sprintf("%s/api/now/table/%s/%s", c.baseURL, table, url.PathEscape(sysID))
}

func (c *tableClient) doRecord(ctx context.Context, method, table, endpoint string, payload Document, cred Credential) (Document, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(b)
	}
	body, _, err := c.do(ctx, method, table, endpoint, reqBody, cred)
	if err != nil {
		return nil, err
	}
	var envelope tableEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &RemoteError{Kind: RemoteServerError, Table: table, Message: "malformed response", Err: err}
	}
	var record Document
	if err := json.Unmarshal(envelope.Result, &record); err != nil {
		return nil, &RemoteError{Kind: RemoteServerError, Table: table, Message: "malformed result", Err: err}
	}
	return record, nil
}

func (c *tableClient) do(ctx context.Context, method, table, endpoint string, reqBody io.Reader, cred Credential) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport failure or timeout: the call may or may not have landed.
		return nil, 0, &RemoteError{Kind: RemoteUnavailable, Table: table, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &RemoteError{
			Kind:    classifyStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Table:   table,
			Message: remoteMessage(body, resp.StatusCode),
		}
	}
	return body, resp.StatusCode, nil
}

func remoteMessage(body []byte, status int) string {
	var parsed tableErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		if parsed.Error.Detail != "" && parsed.Error.Detail != parsed.Error.Message {
			return parsed.Error.Message + ": " + parsed.Error.Detail
		}
		return parsed.Error.Message
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed != "" {
		return trimmed
	}
	return http.StatusText(status)
}
