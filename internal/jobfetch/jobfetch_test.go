package jobfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resumecvpro/internal/config"
	"resumecvpro/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postingHTML = `<!doctype html>
<html>
<head>
  <title>Senior Go Developer | Acme</title>
  <meta property="og:title" content="Senior Go Developer">
  <script>var tracking = 1;</script>
</head>
<body>
  <nav>Home | Jobs | About</nav>
  <main>
    <h2>Requirements</h2>
    <ul>
      <li>Go</li>
      <li><strong>Kubernetes</strong> experience</li>
    </ul>
  </main>
  <footer>Copyright Acme</footer>
</body>
</html>`

func testConfig() config.JobFetchConfig {
	return config.JobFetchConfig{
		Enabled:   true,
		Timeout:   5 * time.Second,
		MaxBytes:  1 << 20,
		UserAgent: "resumecvpro-test",
	}
}

func TestExtract(t *testing.T) {
	p, err := Extract([]byte(postingHTML))
	require.NoError(t, err)

	assert.Equal(t, "Senior Go Developer", p.Title)
	assert.Contains(t, p.Markdown, "## Requirements")
	assert.Contains(t, p.Markdown, "**Kubernetes**")
	assert.NotContains(t, p.Markdown, "Home | Jobs")
	assert.NotContains(t, p.Markdown, "Copyright")
	assert.NotContains(t, p.Markdown, "tracking")
}

func TestExtractTitleFallbacks(t *testing.T) {
	p, err := Extract([]byte(`<html><head><title> Plain Title </title></head><body><p>x</p></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "Plain Title", p.Title)

	p, err = Extract([]byte(`<html><body><h1>Heading Title</h1><p>x</p></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "Heading Title", p.Title)
}

func TestFetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/job":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(postingHTML))
		case "/plain":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("  Go developer wanted  "))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := New(testConfig(), nil)

	t.Run("html posting", func(t *testing.T) {
		p, err := f.Fetch(context.Background(), srv.URL+"/job")
		require.NoError(t, err)
		assert.Equal(t, srv.URL+"/job", p.URL)
		assert.Equal(t, "Senior Go Developer", p.Title)
		assert.Equal(t, "resumecvpro-test", gotUA)

		text, err := f.FetchText(context.Background(), srv.URL+"/job")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(text, "# Senior Go Developer\n\n"))
	})

	t.Run("plain text posting", func(t *testing.T) {
		p, err := f.Fetch(context.Background(), srv.URL+"/plain")
		require.NoError(t, err)
		assert.Equal(t, "Go developer wanted", p.Markdown)
		assert.Empty(t, p.Title)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), srv.URL+"/missing")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeNetwork))
	})

	t.Run("observer sees every FetchText", func(t *testing.T) {
		var results []error
		observed := New(testConfig(), nil).WithObserver(func(_ context.Context, err error) {
			results = append(results, err)
		})

		_, _ = observed.FetchText(context.Background(), srv.URL+"/plain")
		_, _ = observed.FetchText(context.Background(), srv.URL+"/missing")

		require.Len(t, results, 2)
		assert.NoError(t, results[0])
		assert.Error(t, results[1])
	})
}

func TestFetchTruncatesLargeBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("a", 4096)))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxBytes = 100
	p, err := New(cfg, errors.NewNopLogger()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, p.Markdown, 100)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://jobs.example.com/123", true},
		{"http://example.com", true},
		{"ftp://example.com/file", false},
		{"file:///etc/passwd", false},
		{"not a url", false},
		{"https://", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := ValidateURL(tt.url)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "ção", truncateRunes("ção", 3))
	assert.Equal(t, "çã...", truncateRunes("ção", 2))
}
