package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/econodata/noticias-harvester/internal/logger"
	"github.com/econodata/noticias-harvester/pkg/httpclient"
	"github.com/econodata/noticias-harvester/pkg/providers"
)

func testClient() httpclient.Client {
	return httpclient.NewRestyClient(5*time.Second, httpclient.WithRetryWait(0))
}

func buildSource(t *testing.T, cfg providers.Provider) providers.Source {
	t.Helper()
	reg, err := providers.NewRegistry([]providers.Provider{cfg})
	require.NoError(t, err)
	src, ok := reg.ByID(cfg.ID)
	require.True(t, ok)
	return src
}

func linksProvider(base string) providers.Provider {
	return providers.Provider{
		ID:          "economia",
		Kind:        providers.KindHTMLLinks,
		SourceURL:   base + "/economia/",
		LinkPattern: `/economia/.+`,
		Detail: &providers.DetailSelectors{
			Title: "h1",
			Image: "figure img",
			Date:  "span.data",
		},
	}
}

func detailPage(title string, minute int) string {
	return fmt.Sprintf(`<html><body><h1>%s</h1><figure><img src="/img/%d.jpg"></figure>
<span class="data">Publicado em 04/01/2024 às 10:%02d</span></body></html>`, title, minute, minute)
}

func TestResolverSkipsMissingAndNonArticlePages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/economia/missing/":
			http.NotFound(w, r)
		case "/economia/tag/":
			fmt.Fprint(w, `<html><body><p>Listagem</p></body></html>`)
		case "/economia/sem-data/":
			fmt.Fprint(w, `<html><body><h1>Sem data</h1></body></html>`)
		default:
			fmt.Fprint(w, detailPage("Notícia "+strings.Trim(r.URL.Path, "/"), 5))
		}
	}))
	defer srv.Close()

	src := buildSource(t, linksProvider(srv.URL))
	urls := []string{
		srv.URL + "/economia/a/",
		srv.URL + "/economia/missing/",
		srv.URL + "/economia/tag/",
		srv.URL + "/economia/sem-data/",
		srv.URL + "/economia/b/",
	}

	res := NewResolver(testClient(), logger.NopLogger{}, 3).Resolve(context.Background(), src, urls)
	assert.Equal(t, 3, res.Skipped)
	require.Len(t, res.Articles, 2)
	assert.Equal(t, srv.URL+"/economia/a/", res.Articles[0].URL)
	assert.Equal(t, srv.URL+"/economia/b/", res.Articles[1].URL)
	assert.Equal(t, srv.URL+"/img/5.jpg", res.Articles[0].ImageURL)
	assert.Equal(t, "economia", res.Articles[0].SourceID)
	assert.True(t, res.Articles[0].PublishedAt.Equal(time.Date(2024, 1, 4, 13, 5, 0, 0, time.UTC)))
}

func TestResolverBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		fmt.Fprint(w, detailPage("Notícia", 1))
	}))
	defer srv.Close()

	src := buildSource(t, linksProvider(srv.URL))
	urls := make([]string, 12)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/economia/n%d/", srv.URL, i)
	}

	res := NewResolver(testClient(), nil, 3).Resolve(context.Background(), src, urls)
	assert.Len(t, res.Articles, 12)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestResolverCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, detailPage("Notícia", 1))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := buildSource(t, linksProvider(srv.URL))
	urls := []string{srv.URL + "/economia/a/", srv.URL + "/economia/b/"}

	done := make(chan ResolveResult)
	go func() { done <- NewResolver(testClient(), nil, 1).Resolve(ctx, src, urls) }()

	select {
	case res := <-done:
		assert.Empty(t, res.Articles)
		assert.Equal(t, 2, res.Skipped)
	case <-time.After(5 * time.Second):
		t.Fatal("resolve did not return after cancellation")
	}
}

func TestClampConcurrency(t *testing.T) {
	assert.Equal(t, DefaultConcurrency, clampConcurrency(0))
	assert.Equal(t, 4, clampConcurrency(4))
	assert.Equal(t, MaxConcurrency, clampConcurrency(500))
}
