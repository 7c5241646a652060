package health

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/switchyard/internal/core/domain"
)

type trackingBody struct {
	io.Reader
	closed *atomic.Bool
}

func (b *trackingBody) Close() error {
	b.closed.Store(true)
	return nil
}

type mockHTTPClient struct {
	closed     atomic.Bool
	err        error
	body       string
	statusCode int
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       &trackingBody{Reader: strings.NewReader(m.body), closed: &m.closed},
	}, nil
}

func TestHTTPCheck_Defaults(t *testing.T) {
	c := NewHTTPCheck("http://redis-a:8080/health")

	assert.Equal(t, "http GET http://redis-a:8080/health", c.Name())
	assert.Equal(t, DefaultHTTPPeriod, c.Period())
}

func TestHTTPCheck_ExpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/nocontent":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	tests := []struct {
		name    string
		path    string
		opts    []HTTPOption
		healthy bool
	}{
		{name: "200 default", path: "/ok", healthy: true},
		{name: "503 default", path: "/down", healthy: false},
		{name: "204 expected", path: "/nocontent", opts: []HTTPOption{WithExpectedStatus(http.StatusNoContent)}, healthy: true},
		{name: "200 when 204 expected", path: "/ok", opts: []HTTPOption{WithExpectedStatus(http.StatusNoContent)}, healthy: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewHTTPCheck(server.URL+tt.path, tt.opts...).WithRetries(1)
			assert.Equal(t, tt.healthy, c.Execute(context.Background()))
		})
	}
}

func TestHTTPCheck_UsesMethod(t *testing.T) {
	var method atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method.Store(r.Method)
	}))
	defer server.Close()

	c := NewHTTPCheck(server.URL, WithMethod("head")).WithRetries(1)
	require.True(t, c.Execute(context.Background()))
	assert.Equal(t, http.MethodHead, method.Load())
}

func TestHTTPCheck_DoesNotFollowRedirects(t *testing.T) {
	var followed atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/target" {
			followed.Store(true)
			return
		}
		http.Redirect(w, r, "/target", http.StatusFound)
	}))
	defer server.Close()

	c := NewHTTPCheck(server.URL + "/start").WithRetries(1)
	assert.False(t, c.Execute(context.Background()))
	assert.False(t, followed.Load())

	redirectOK := NewHTTPCheck(server.URL+"/start", WithExpectedStatus(http.StatusFound)).WithRetries(1)
	assert.True(t, redirectOK.Execute(context.Background()))
	assert.False(t, followed.Load())
}

func TestHTTPCheck_TimeoutCoversSlowResponses(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	pub := &recordingPublisher{}
	c := NewHTTPCheck(server.URL).WithTimeout(50 * time.Millisecond).WithRetries(1)
	c.BindEvents(pub, testEndpoint)

	start := time.Now()
	assert.False(t, c.Execute(context.Background()))
	assert.Less(t, time.Since(start), 2*time.Second)

	failed := pub.Events()[1].(domain.HealthCheckFailed)
	var hcErr *domain.HealthCheckError
	require.True(t, errors.As(failed.Err, &hcErr))
	assert.Equal(t, domain.ErrorTypeTimeout, hcErr.ErrorType)
}

func TestHTTPCheck_AlwaysClosesBody(t *testing.T) {
	client := &mockHTTPClient{statusCode: http.StatusInternalServerError, body: "nope"}
	c := NewHTTPCheck("http://redis-a/health", WithHTTPClient(client)).WithRetries(1)

	assert.False(t, c.Execute(context.Background()))
	assert.True(t, client.closed.Load())

	client = &mockHTTPClient{statusCode: http.StatusOK}
	c = NewHTTPCheck("http://redis-a/health", WithHTTPClient(client)).WithRetries(1)
	assert.True(t, c.Execute(context.Background()))
	assert.True(t, client.closed.Load())
}

func TestHTTPCheck_NetworkError(t *testing.T) {
	client := &mockHTTPClient{err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}}
	pub := &recordingPublisher{}
	c := NewHTTPCheck("http://redis-a/health", WithHTTPClient(client)).WithRetries(1)
	c.BindEvents(pub, testEndpoint)

	assert.False(t, c.Execute(context.Background()))

	failed := pub.Events()[1].(domain.HealthCheckFailed)
	var hcErr *domain.HealthCheckError
	require.True(t, errors.As(failed.Err, &hcErr))
	assert.Equal(t, domain.ErrorTypeNetwork, hcErr.ErrorType)
}

func TestHTTPCheck_JSONField(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		healthy bool
	}{
		{name: "match", body: `{"status":"ok","redis":{"role":"master"}}`, healthy: true},
		{name: "wrong value", body: `{"status":"ok","redis":{"role":"replica"}}`, healthy: false},
		{name: "missing", body: `{"status":"ok"}`, healthy: false},
		{name: "not json", body: `OK`, healthy: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockHTTPClient{statusCode: http.StatusOK, body: tt.body}
			c := NewHTTPCheck("http://redis-a/health",
				WithHTTPClient(client),
				WithJSONField("redis.role", "master"),
			).WithRetries(1)

			assert.Equal(t, tt.healthy, c.Execute(context.Background()))
			assert.True(t, client.closed.Load())
		})
	}
}
