package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type seenRequest struct {
	origin, referer, language string
	form                      map[string]string
}

func recordingServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, n int)) (*httptest.Server, func() []seenRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []seenRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		mu.Lock()
		seen = append(seen, seenRequest{
			origin:   r.Header.Get("Origin"),
			referer:  r.Header.Get("Referer"),
			language: r.Header.Get("Accept-Language"),
			form:     form,
		})
		n := len(seen)
		mu.Unlock()
		handler(w, r, n)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []seenRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]seenRequest(nil), seen...)
	}
}

func newTestClient(t *testing.T, endpoint string) *Client {
	c := New(Options{
		Endpoint:       endpoint,
		Origin:         DefaultOrigin,
		Referer:        DefaultReferer,
		AcceptLanguage: DefaultLanguage,
		Logger:         zaptest.NewLogger(t),
	})
	t.Cleanup(c.Close)
	return c
}

func TestPostDecodesJSON(t *testing.T) {
	srv, seen := recordingServer(t, func(w http.ResponseWriter, r *http.Request, _ int) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"api":{"result":{"date":["2025-03-03"]}}}`))
	})
	c := newTestClient(t, srv.URL)

	res, err := c.Post(context.Background(), map[string]string{"eventName": "date.list.nt", "dateFrom": "2025-03-01"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status)
	require.Contains(t, res.Body, "api")

	reqs := seen()
	require.Len(t, reqs, 1)
	assert.Equal(t, DefaultOrigin, reqs[0].origin)
	assert.Equal(t, DefaultReferer, reqs[0].referer)
	assert.Equal(t, DefaultLanguage, reqs[0].language)
	assert.Equal(t, "date.list.nt", reqs[0].form["eventName"])
	assert.Equal(t, "2025-03-01", reqs[0].form["dateFrom"])
}

func TestPostDowngradesHeadersOnce(t *testing.T) {
	srv, seen := recordingServer(t, func(w http.ResponseWriter, r *http.Request, _ int) {
		if r.Header.Get("Origin") != "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"api":{"result":{}}}`))
	})
	c := newTestClient(t, srv.URL)

	_, err := c.Post(context.Background(), map[string]string{"eventName": "ticket.list"})
	require.NoError(t, err)

	reqs := seen()
	require.Len(t, reqs, 2)
	assert.NotEmpty(t, reqs[0].origin)
	assert.Empty(t, reqs[1].origin)
	assert.Empty(t, reqs[1].referer)
	assert.Empty(t, reqs[1].language)
	assert.Equal(t, "ticket.list", reqs[1].form["eventName"])
}

func TestPostRejectedAfterDowngrade(t *testing.T) {
	long := strings.Repeat("é", 800)
	srv, seen := recordingServer(t, func(w http.ResponseWriter, r *http.Request, _ int) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(long))
	})
	c := newTestClient(t, srv.URL)

	_, err := c.Post(context.Background(), map[string]string{"eventName": "ticket.list"})
	require.Error(t, err)

	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusInternalServerError, terr.Status)
	assert.Equal(t, strings.Repeat("é", maxErrorBody), terr.Body)
	assert.Len(t, seen(), 2)
}

func TestPostParsesMislabelledBody(t *testing.T) {
	testCases := []struct {
		name        string
		contentType string
		body        string
	}{
		{name: "html label", contentType: "text/html; charset=UTF-8", body: `{"api":{"result":{"product":[]}}}`},
		{name: "bom", contentType: "application/json", body: "\xef\xbb\xbf{\"api\":{\"result\":{}}}"},
		{name: "lenient", contentType: "text/plain", body: `{api:{result:{product:[{time:'09:00',available:1,},]}}}`},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			srv, _ := recordingServer(t, func(w http.ResponseWriter, r *http.Request, _ int) {
				w.Header().Set("Content-Type", test.contentType)
				_, _ = w.Write([]byte(test.body))
			})
			c := newTestClient(t, srv.URL)
			res, err := c.Post(context.Background(), map[string]string{"eventName": "ticket.list"})
			require.NoError(t, err)
			require.Contains(t, res.Body, "api")
		})
	}
}

func TestPostUndecodableBody(t *testing.T) {
	srv, _ := recordingServer(t, func(w http.ResponseWriter, r *http.Request, _ int) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	})
	c := newTestClient(t, srv.URL)

	_, err := c.Post(context.Background(), map[string]string{"eventName": "ticket.list"})
	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusOK, terr.Status)
	assert.Equal(t, "<html>maintenance</html>", terr.Body)
	assert.Error(t, terr.Err)
}

func TestPostNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	c := newTestClient(t, endpoint)
	_, err := c.Post(context.Background(), map[string]string{"eventName": "ticket.list"})
	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Zero(t, terr.Status)
	assert.Error(t, terr.Unwrap())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "日本", Truncate("日本語", 2))
	assert.Equal(t, "", Truncate("abc", 0))
}
