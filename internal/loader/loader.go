package loader

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var ErrFetch = errors.New("fetch failed")

const (
	// Pages yielding less readable text than this are treated as fetch
	// failures rather than indexed as near-empty documents.
	minContentLength = 100

	maxBodyBytes = 10 << 20 // 10MB

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Loader fetches article URLs and extracts readable text from them.
type Loader struct {
	client *http.Client
}

func New(timeout time.Duration) *Loader {
	return &Loader{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves a single URL and returns its readable text. Errors wrap
// ErrFetch; the caller decides how a failing URL affects the rest of a batch.
func (l *Loader) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isTextual(contentType) {
		return "", fmt.Errorf("%w: unsupported content type %q", ErrFetch, contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %v", ErrFetch, err)
	}

	text := cleanLines(stripHTML(string(body)))
	if len(text) < minContentLength {
		return "", fmt.Errorf("%w: insufficient text content extracted", ErrFetch)
	}

	slog.DebugContext(ctx, "fetched url", "url", url, "bytes", len(body), "text_length", len(text))
	return text, nil
}

func isTextual(contentType string) bool {
	ct := strings.ToLower(contentType)
	return ct == "" ||
		strings.Contains(ct, "text/html") ||
		strings.Contains(ct, "application/xhtml") ||
		strings.Contains(ct, "text/plain")
}

// Pre-compiled regular expressions for HTML stripping.
var (
	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag   = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag       = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag        = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	navTag        = regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`)
	formTag       = regexp.MustCompile(`(?is)<form[^>]*>.*?</form>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockElements = regexp.MustCompile(`(?i)</?(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
)

// stripHTML removes markup and extracts readable text content.
func stripHTML(content string) string {
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = headTag.ReplaceAllString(content, "")
	content = svgTag.ReplaceAllString(content, "")
	content = navTag.ReplaceAllString(content, "")
	content = formTag.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")

	// Block elements become line breaks so paragraph structure survives
	// for the chunker.
	content = blockElements.ReplaceAllString(content, "\n")
	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")

	return content
}

// cleanLines trims every line and drops the empty ones, separating
// paragraphs with blank lines where the source had multiple breaks.
func cleanLines(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}
