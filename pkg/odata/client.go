package odata

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/crosslogic/fieldmap-cli/internal/resilience"
)

// Client verifies resolved field targets against the backend OData service.
type Client interface {
	Verify(ctx context.Context, entries []Entry) ([]Result, error)
}

// Entry is one resolved target to confirm.
type Entry struct {
	Pos    int
	Entity string
	Field  string
}

// Result is the backend's verdict for one entry.
type Result struct {
	Entity    string
	Field     string
	Confirmed bool
	Message   string
}

type itemField struct {
	TabFdPos      string `json:"TabFdPos"`
	ToEntity      string `json:"ToEntity"`
	ToField       string `json:"ToField"`
	ReturnCode    int    `json:"ReturnCode,omitempty"`
	ReturnMessage string `json:"ReturnMessage,omitempty"`
}

type verifyPayload struct {
	ItemFields []itemField `json:"_ItemField"`
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	url      string
	username string
	password string
	http     *http.Client
}

// NewClient creates an OData verification client.
func NewClient(url, username, password string, opts ...Option) Client {
	c := &httpClient{
		url:      url,
		username: username,
		password: password,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Verify posts the entries to the service and returns per-entry verdicts.
// The service requires a CSRF token fetched with a priming GET first.
func (c *httpClient) Verify(ctx context.Context, entries []Entry) ([]Result, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	token, cookies, err := c.fetchCSRFToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := verifyPayload{ItemFields: make([]itemField, 0, len(entries))}
	for _, e := range entries {
		payload.ItemFields = append(payload.ItemFields, itemField{
			TabFdPos: strconv.Itoa(e.Pos),
			ToEntity: e.Entity,
			ToField:  e.Field,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "odata: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "odata: create request")
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-csrf-token", token)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "odata: send request"), 0)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "odata: read response")
	}

	if resp.StatusCode != http.StatusCreated {
		err := eris.Errorf("odata: status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var parsed verifyPayload
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, eris.Wrap(err, "odata: parse response")
	}

	results := make([]Result, 0, len(parsed.ItemFields))
	for _, item := range parsed.ItemFields {
		results = append(results, Result{
			Entity:    item.ToEntity,
			Field:     item.ToField,
			Confirmed: item.ReturnCode == 0,
			Message:   item.ReturnMessage,
		})
	}
	return results, nil
}

func (c *httpClient) fetchCSRFToken(ctx context.Context) (string, []*http.Cookie, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", nil, eris.Wrap(err, "odata: create token request")
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-csrf-token", "Fetch")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, resilience.NewTransientError(eris.Wrap(err, "odata: fetch csrf token"), 0)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	token := resp.Header.Get("x-csrf-token")
	if token == "" {
		return "", nil, eris.Errorf("odata: no csrf token in response (status %d)", resp.StatusCode)
	}
	return token, resp.Cookies(), nil
}
