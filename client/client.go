package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pulpqe/pulp-contract-tests/framework"
)

const apiRoot = "/pulp/api/v3/"

// Well-known collection paths under the API root.
const (
	RepositoriesPath  = apiRoot + "repositories/rpm/rpm/"
	RemotesPath       = apiRoot + "remotes/rpm/rpm/"
	PublicationsPath  = apiRoot + "publications/rpm/rpm/"
	DistributionsPath = apiRoot + "distributions/rpm/rpm/"
	PackagesPath      = apiRoot + "content/rpm/packages/"
	ArtifactsPath     = apiRoot + "artifacts/"
	TasksPath         = apiRoot + "tasks/"
	StatusPath        = apiRoot + "status/"
	OrphansPath       = apiRoot + "orphans/cleanup/"
)

// PulpClient is a thin client for the Pulp REST API. Resource locators
// ("hrefs") returned by the API are absolute URL paths; all methods taking an
// href resolve it against the configured base URL.
type PulpClient struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     framework.Logger
}

// APIError is returned for any response outside the 2xx range.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("API returned status %d for %s", e.StatusCode, e.URL)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Options configures a PulpClient.
type Options struct {
	BaseURL  string
	Username string
	Password string
	// Insecure disables TLS verification, for deployments with self-signed
	// API certificates.
	Insecure bool
	Timeout  time.Duration
	Logger   framework.Logger
}

func New(opts Options) *PulpClient {
	logger := opts.Logger
	if logger == nil {
		logger = framework.NullLogger()
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	transport := http.DefaultTransport
	if opts.Insecure {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		}
	}
	return &PulpClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		username:   opts.Username,
		password:   opts.Password,
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		logger:     logger,
	}
}

func (c *PulpClient) BaseURL() string { return c.baseURL }

// AbsoluteURL resolves an href or API path against the base URL. Values that
// are already absolute URLs pass through unchanged.
func (c *PulpClient) AbsoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return c.baseURL + href
}

func (c *PulpClient) do(req *http.Request) ([]byte, *http.Response, error) {
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	c.logger.Printf("%s %s", req.Method, req.URL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return data, resp, &APIError{StatusCode: resp.StatusCode, URL: req.URL.String(), Body: string(data)}
	}
	return data, resp, nil
}

func (c *PulpClient) requestJSON(ctx context.Context, method, href string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.AbsoluteURL(href), reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	data, _, err := c.do(req)
	if err != nil {
		return err
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("malformed response from %s: %w", href, err)
		}
	}
	return nil
}

// Get performs a GET on an href or path and decodes the JSON response into out.
func (c *PulpClient) Get(ctx context.Context, href string, out interface{}) error {
	return c.requestJSON(ctx, http.MethodGet, href, nil, out)
}

// Post performs a POST with a JSON body and decodes the response into out.
func (c *PulpClient) Post(ctx context.Context, href string, body, out interface{}) error {
	return c.requestJSON(ctx, http.MethodPost, href, body, out)
}

// Delete performs a DELETE on an href. Most deletions in Pulp are
// asynchronous; the returned object usually carries a task href.
func (c *PulpClient) Delete(ctx context.Context, href string) (*Object, error) {
	var obj Object
	if err := c.requestJSON(ctx, http.MethodDelete, href, nil, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// GetWithParams performs a GET with query parameters.
func (c *PulpClient) GetWithParams(ctx context.Context, href string, params url.Values, out interface{}) error {
	target := c.AbsoluteURL(href)
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + params.Encode()
	}
	return c.requestJSON(ctx, http.MethodGet, target, nil, out)
}

// Download fetches raw content from an absolute URL (typically a content-app
// URL from a distribution) and returns the body and response headers.
func (c *PulpClient) Download(ctx context.Context, absoluteURL string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, absoluteURL, nil)
	if err != nil {
		return nil, nil, err
	}
	data, resp, err := c.do(req)
	if err != nil {
		return nil, nil, err
	}
	return data, resp.Header, nil
}

// UploadFile POSTs a multipart form with a file field plus any extra fields
// to the given collection path. Content creation endpoints respond with a
// task object.
func (c *PulpClient) UploadFile(
	ctx context.Context,
	path string,
	filename string,
	contents []byte,
	extraFields map[string]string,
) (*Object, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(contents); err != nil {
		return nil, err
	}
	for k, v := range extraFields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.AbsoluteURL(path), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	data, _, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var obj Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("malformed upload response: %w", err)
	}
	return &obj, nil
}
