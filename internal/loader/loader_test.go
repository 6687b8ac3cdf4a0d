package loader_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"newsbrief/backend/internal/loader"
)

func article(body string) string {
	return `<html><head><title>T</title><style>p{color:red}</style></head>
<body><nav><a href="/">Home</a></nav><article>` + body + `</article>
<script>console.log("hi")</script></body></html>`
}

func TestFetch_Success(t *testing.T) {
	paragraph := strings.Repeat("A meaningful sentence about the news. ", 10)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(article("<p>" + paragraph + "</p>")))
	}))
	defer ts.Close()

	l := loader.New(5 * time.Second)
	text, err := l.Fetch(context.Background(), ts.URL)
	assert.NoError(t, err)
	assert.Contains(t, text, "A meaningful sentence about the news.")
	assert.NotContains(t, text, "console.log")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "Home")
}

func TestFetch_SetsUserAgent(t *testing.T) {
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(article("<p>" + strings.Repeat("text content here. ", 10) + "</p>")))
	}))
	defer ts.Close()

	l := loader.New(5 * time.Second)
	_, err := l.Fetch(context.Background(), ts.URL)
	assert.NoError(t, err)
	assert.Contains(t, gotUA, "Mozilla/5.0")
}

func TestFetch_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	l := loader.New(5 * time.Second)
	_, err := l.Fetch(context.Background(), ts.URL)
	assert.True(t, errors.Is(err, loader.ErrFetch))
	assert.Contains(t, err.Error(), "404")
}

func TestFetch_InsufficientContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>too short</p></body></html>"))
	}))
	defer ts.Close()

	l := loader.New(5 * time.Second)
	_, err := l.Fetch(context.Background(), ts.URL)
	assert.True(t, errors.Is(err, loader.ErrFetch))
	assert.Contains(t, err.Error(), "insufficient text content")
}

func TestFetch_UnsupportedContentType(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer ts.Close()

	l := loader.New(5 * time.Second)
	_, err := l.Fetch(context.Background(), ts.URL)
	assert.True(t, errors.Is(err, loader.ErrFetch))
	assert.Contains(t, err.Error(), "unsupported content type")
}

func TestFetch_UnreachableHost(t *testing.T) {
	l := loader.New(500 * time.Millisecond)
	_, err := l.Fetch(context.Background(), "http://127.0.0.1:1/nothing")
	assert.True(t, errors.Is(err, loader.ErrFetch))
}

func TestFetch_EntityDecoding(t *testing.T) {
	body := "<p>Fish &amp; chips " + strings.Repeat("and more text to pass the length gate. ", 5) + "</p>"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(article(body)))
	}))
	defer ts.Close()

	l := loader.New(5 * time.Second)
	text, err := l.Fetch(context.Background(), ts.URL)
	assert.NoError(t, err)
	assert.Contains(t, text, "Fish & chips")
}
