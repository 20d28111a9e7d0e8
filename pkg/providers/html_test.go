package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bbcTopicPage = `<!doctype html>
<html><body>
<main>
  <div>
    <ul>
      <li>
        <div class="promo-image"><img src="https://ichef.bbci.co.uk/a.jpg"></div>
        <div class="promo-text">
          <h2><a href="/portuguese/articles/a1">  Governo anuncia   pacote  </a></h2>
          <time datetime="2024-01-04">4 janeiro 2024</time>
        </div>
      </li>
      <li>
        <div class="promo-image"><img data-src="/img/b.jpg" src="data:image/gif;base64,R0lGOD"></div>
        <div class="promo-text">
          <h2><a href="https://www.bbc.com/portuguese/articles/b2#comments">Bolsa recua</a></h2>
          <time>5 de janeiro de 2024</time>
        </div>
      </li>
      <li>
        <div class="promo-text">
          <h2><a href="/portuguese/articles/c3">Sem data</a></h2>
        </div>
      </li>
      <li>
        <div class="promo-text">
          <h2><a href="/portuguese/articles/d4">Data quebrada</a></h2>
          <time datetime="ontem">ontem</time>
        </div>
      </li>
    </ul>
  </div>
</main>
</body></html>`

func TestHTMLParseListing(t *testing.T) {
	var cfg Provider
	for _, p := range DefaultProviders() {
		if p.ID == "bbc" {
			cfg = p
		}
	}
	src := mustSource(t, cfg)
	require.False(t, src.NeedsDetailFetch())

	res, err := src.Listing.ParseListing([]byte(bbcTopicPage))
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	require.Len(t, res.Skipped, 2)
	assert.ErrorIs(t, res.Skipped[0], ErrFieldMissing)
	assert.ErrorIs(t, res.Skipped[1], ErrDateFormat)

	a := res.Candidates[0].Article
	assert.Equal(t, "bbc", a.SourceID)
	assert.Equal(t, "Governo anuncia pacote", a.Title)
	assert.Equal(t, "https://www.bbc.com/portuguese/articles/a1", a.URL)
	assert.Equal(t, "https://ichef.bbci.co.uk/a.jpg", a.ImageURL)
	assert.True(t, a.PublishedAt.Equal(time.Date(2024, 1, 4, 3, 0, 0, 0, time.UTC)), a.PublishedAt)

	b := res.Candidates[1].Article
	assert.Equal(t, "https://www.bbc.com/portuguese/articles/b2", b.URL)
	assert.Equal(t, "https://www.bbc.com/img/b.jpg", b.ImageURL)
	assert.True(t, b.PublishedAt.Equal(time.Date(2024, 1, 5, 3, 0, 0, 0, time.UTC)), b.PublishedAt)
}

func TestHTMLParserRequiresItemSelector(t *testing.T) {
	_, err := newHTMLParser(Provider{ID: "x", Kind: KindHTML, SourceURL: "https://example.com"})
	require.Error(t, err)
}
