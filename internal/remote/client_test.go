package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/v1/", "tok", 0, zap.NewNop())
}

func TestClient_Do(t *testing.T) {
	var gotAuth, gotPath, gotType string
	var gotBody map[string]any
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.RequestURI()
		gotType = r.Header.Get("Content-Type")
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &gotBody)
		}
		_, _ = w.Write([]byte(`{"ok":true,"data":{"count":2}}`))
	})

	raw, err := c.do(context.Background(), http.MethodPut, "testcycles/x/approveallresults", nil, map[string]any{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":2}`, string(raw))
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "/api/v1/testcycles/x/approveallresults", gotPath)
	assert.Equal(t, "application/json", gotType)
	assert.EqualValues(t, 1, gotBody["a"])
}

func TestClient_DoWithoutData(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	raw, err := c.do(context.Background(), http.MethodDelete, "testcycles/x", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		message     string
	}{
		{"json envelope", 409, "application/json", `{"error":"invalid status transition: started -> started"}`, "invalid status transition: started -> started"},
		{"html page", 502, "text/html; charset=utf-8", "<html><head><title>502 Bad Gateway</title></head><body><h1>Bad Gateway</h1></body></html>", "502 Bad Gateway"},
		{"html without title", 500, "text/html", "<html><body><h1>  Server\n Error </h1></body></html>", "Server Error"},
		{"plain text", 404, "text/plain", "Cannot GET /api/v1/nope", "Cannot GET /api/v1/nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.do(context.Background(), http.MethodGet, "nope", nil, nil)
			var httpErr *HTTPError
			require.True(t, errors.As(err, &httpErr), "got %v", err)
			assert.Equal(t, tt.status, httpErr.Status)
			assert.Equal(t, tt.message, httpErr.Message)
			assert.Equal(t, http.MethodGet, httpErr.Method)
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "boom", "boom"},
		{"exact", strings.Repeat("a", maxErrorMessage), strings.Repeat("a", maxErrorMessage)},
		{"ascii", strings.Repeat("a", maxErrorMessage+5), strings.Repeat("a", maxErrorMessage) + "..."},
		// the two-byte rune straddles the limit
		{"multibyte", strings.Repeat("a", maxErrorMessage-1) + "éé", strings.Repeat("a", maxErrorMessage-1) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestClient_MalformedBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":tru`))
	})
	_, err := c.do(context.Background(), http.MethodGet, "testcycles", nil, nil)
	require.Error(t, err)
	var httpErr *HTTPError
	assert.False(t, errors.As(err, &httpErr))
}

func TestClient_WithToken(t *testing.T) {
	var gotAuth string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	_, err := c.WithToken("other").do(context.Background(), http.MethodGet, "x", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer other", gotAuth)
	assert.Equal(t, "tok", c.token)
}

func TestList_Page(t *testing.T) {
	id := uuid.New()
	var gotQuery string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"ok":true,"data":{"totalResults":7,"testcycles":[{"id":"` + id.String() + `","name":"R1","testCycleStatusId":2}]}}`))
	})

	page, err := c.TestCycles().Filter("productId", "p").Page(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, "pageindex=3&pagesize=1&productId=p", gotQuery)
	assert.Equal(t, 7, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, id, page.Items[0].ID)
	assert.Equal(t, "R1", page.Items[0].Name)
	assert.Same(t, c, page.Items[0].Client())

	items, err := c.TestCycles().IncludeDeleted().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "deleted=true", gotQuery)
}

func TestAction_Detached(t *testing.T) {
	r := &TestResult{}
	assert.ErrorIs(t, r.Start(context.Background()), ErrDetached)

	c := NewClient("http://127.0.0.1:0", "", 0, zap.NewNop())
	r.client = c
	assert.ErrorIs(t, r.Start(context.Background()), ErrUnsaved)
	assert.ErrorIs(t, Refresh(context.Background(), r), ErrUnsaved)
}
