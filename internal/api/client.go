// Package api is the HTTP client of the database management backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
	"github.com/rs/xid"

	"github.com/nhath/ezadmin/internal/resultset"
)

// Endpoint paths of the backend contract
const (
	LoginPath         = "/login"
	QueryPath         = "/query"
	BackupPath        = "/backup"
	CheckDBPath       = "/checkdb"
	DatabasesPath     = "/databases"
	BackupHistoryPath = "/backup-history"
)

// RequestIDHeader carries a per-request correlation id
const RequestIDHeader = "X-Request-ID"

// Options configures a Client
type Options struct {
	BaseURL string
	Timeout time.Duration
	Tunnel  *TunnelConfig
}

// TokenSource returns the current session credential, empty when logged out
type TokenSource func() string

// Client talks to the backend REST API
type Client struct {
	url    *url.URL
	client *http.Client
	tunnel *Tunnel

	mu          sync.RWMutex
	tokenSource TokenSource
}

// NewClient creates a new backend client
func NewClient(opts Options) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse a server URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid server URL %q", opts.BaseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create a cookie jar")
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
	}

	c := &Client{url: u}

	if opts.Tunnel != nil && opts.Tunnel.Host != "" {
		tunnel, err := NewTunnel(opts.Tunnel)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create SSH tunnel")
		}
		c.tunnel = tunnel
		transport.Proxy = nil
		transport.DialContext = tunnel.DialContext
	}

	c.client = &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   opts.Timeout,
	}

	return c, nil
}

// SetTokenSource sets where the session credential is read from
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenSource = ts
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokenSource == nil {
		return ""
	}
	return c.tokenSource()
}

// BaseURL returns the backend address
func (c *Client) BaseURL() string {
	return c.url.String()
}

// Close releases idle connections and the SSH tunnel
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	if c.tunnel != nil {
		return c.tunnel.Close()
	}
	return nil
}

// Login posts credentials. The returned token, when present, is the session
// credential for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	resp := &LoginResponse{}
	err := c.do(ctx, http.MethodPost, LoginPath, LoginRequest{Username: username, Password: password}, false,
		func(data []byte) error {
			if len(bytes.TrimSpace(data)) == 0 {
				return nil
			}
			return json.Unmarshal(data, resp)
		})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Query submits raw query text and returns the rows
func (c *Client) Query(ctx context.Context, query string) (resultset.ResultSet, error) {
	var rs resultset.ResultSet
	err := c.do(ctx, http.MethodPost, QueryPath, QueryRequest{Query: query}, true, decodeRows(&rs))
	return rs, err
}

// Backup requests a backup; an empty database name means server-wide
func (c *Client) Backup(ctx context.Context, database string) (*BackupResponse, error) {
	req := BackupRequest{}
	if database != "" {
		req.Database = pointer.ToString(database)
	}

	resp := &BackupResponse{}
	err := c.do(ctx, http.MethodPost, BackupPath, req, true, func(data []byte) error {
		data = bytes.TrimSpace(data)
		if len(data) == 0 {
			return nil
		}
		if data[0] != '{' {
			resp.Message = string(data)
			return nil
		}
		resp.Message, _ = jsonparser.GetString(data, "message")
		resp.ID, _ = jsonparser.GetString(data, "id")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// CheckDB runs the backend integrity check
func (c *Client) CheckDB(ctx context.Context) (resultset.ResultSet, error) {
	var rs resultset.ResultSet
	err := c.do(ctx, http.MethodPost, CheckDBPath, struct{}{}, true, decodeRows(&rs))
	return rs, err
}

// Databases lists the databases served by the backend
func (c *Client) Databases(ctx context.Context) ([]DatabaseRecord, error) {
	var records []DatabaseRecord
	err := c.do(ctx, http.MethodGet, DatabasesPath, nil, true, func(data []byte) error {
		return json.Unmarshal(data, &records)
	})
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []DatabaseRecord{}
	}
	return records, nil
}

// BackupHistory returns past backup events
func (c *Client) BackupHistory(ctx context.Context) (resultset.ResultSet, error) {
	var rs resultset.ResultSet
	err := c.do(ctx, http.MethodGet, BackupHistoryPath, nil, true, decodeRows(&rs))
	return rs, err
}

func decodeRows(rs *resultset.ResultSet) func([]byte) error {
	return func(data []byte) error {
		decoded, err := resultset.Decode(data)
		if err != nil {
			return err
		}
		*rs = decoded
		return nil
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}, authed bool, parse func([]byte) error) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(endpoint).String(), reader)
	if err != nil {
		return errors.Wrap(err, "failed to create a request")
	}

	requestID := xid.New().String()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("api: %s %s [%s] failed: %v", method, endpoint, requestID, err)
		return &TransportError{Endpoint: endpoint, Underlying: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Endpoint: endpoint, Underlying: errors.Wrap(err, "failed to read the response body")}
	}

	log.Printf("api: %s %s [%s] %d in %s", method, endpoint, requestID, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(endpoint, resp.StatusCode, data)
	}

	if parse == nil {
		return nil
	}
	if err := parse(data); err != nil {
		return errors.Wrapf(err, "invalid %s response", endpoint)
	}
	return nil
}

func (c *Client) buildURL(endpoint string) *url.URL {
	u := *c.url
	u.Path = path.Join(c.url.Path, endpoint)
	return &u
}
