package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultHTTPPeriod         = 1 * time.Minute
	DefaultHTTPExpectedStatus = http.StatusOK
	DefaultHTTPMethod         = http.MethodGet

	// bodies are only read for JSON assertions, anything past this is ignored
	maxHealthBodyBytes = 1 << 20
)

// HTTPClient is the subset of *http.Client the HTTP check needs
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned when an endpoint answers with the wrong status code
type StatusError struct {
	URL  string
	Got  int
	Want int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d, expected %d", e.URL, e.Got, e.Want)
}

// BodyMismatchError is returned when a JSON assertion doesn't hold
type BodyMismatchError struct {
	Path string
	Got  string
	Want string
}

func (e *BodyMismatchError) Error() string {
	return fmt.Sprintf("json path %q is %q, expected %q", e.Path, e.Got, e.Want)
}

type httpProbe struct {
	client         HTTPClient
	url            string
	method         string
	jsonPath       string
	jsonValue      string
	expectedStatus int
}

// HTTPOption customises an HTTP check
type HTTPOption func(*httpProbe)

func WithMethod(method string) HTTPOption {
	return func(p *httpProbe) {
		if method != "" {
			p.method = strings.ToUpper(method)
		}
	}
}

func WithExpectedStatus(status int) HTTPOption {
	return func(p *httpProbe) {
		if status > 0 {
			p.expectedStatus = status
		}
	}
}

// WithJSONField additionally requires the response body to hold value at path
// (gjson syntax, eg "status" or "checks.redis.state")
func WithJSONField(path, value string) HTTPOption {
	return func(p *httpProbe) {
		p.jsonPath = path
		p.jsonValue = value
	}
}

func WithHTTPClient(client HTTPClient) HTTPOption {
	return func(p *httpProbe) {
		if client != nil {
			p.client = client
		}
	}
}

// NewHTTPClient never follows redirects, a redirect is judged on its own status
func NewHTTPClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// NewHTTPCheck probes url and expects a status code (GET/200 unless
// overridden). The check's timeout bounds connect and read together since
// every attempt runs under its own deadline. Checked every minute by default.
func NewHTTPCheck(url string, opts ...HTTPOption) *Check {
	p := &httpProbe{
		url:            url,
		method:         DefaultHTTPMethod,
		expectedStatus: DefaultHTTPExpectedStatus,
		client:         NewHTTPClient(),
	}
	for _, opt := range opts {
		opt(p)
	}

	name := fmt.Sprintf("http %s %s", p.method, p.url)
	return NewCheck(name, p.do).WithSchedulePeriod(DefaultHTTPPeriod)
}

func (p *httpProbe) do(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, p.method, p.url, nil)
	if err != nil {
		return false, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false, err
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != p.expectedStatus {
		return false, &StatusError{URL: p.url, Got: resp.StatusCode, Want: p.expectedStatus}
	}

	if p.jsonPath == "" {
		return true, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHealthBodyBytes))
	if err != nil {
		return false, err
	}
	got := gjson.GetBytes(body, p.jsonPath).String()
	if got != p.jsonValue {
		return false, &BodyMismatchError{Path: p.jsonPath, Got: got, Want: p.jsonValue}
	}
	return true, nil
}
