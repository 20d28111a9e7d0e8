package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSitemapParseListing(t *testing.T) {
	const sitemap = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"
        xmlns:news="http://www.google.com/schemas/sitemap-news/0.9"
        xmlns:image="http://www.google.com/schemas/sitemap-image/1.1">
  <url>
    <loc>https://exame.com/economia/selic/</loc>
    <news:news>
      <news:publication><news:name>Exame</news:name><news:language>pt</news:language></news:publication>
      <news:publication_date>2024-01-04T10:00:00-03:00</news:publication_date>
      <news:title>Copom mantém Selic</news:title>
    </news:news>
    <image:image><image:loc>https://exame.com/selic.jpg</image:loc></image:image>
  </url>
  <url>
    <loc>https://exame.com/economia/sem-titulo/</loc>
    <news:news><news:publication_date>2024-01-04T10:00:00-03:00</news:publication_date></news:news>
  </url>
</urlset>`

	src := mustSource(t, Provider{ID: "exame", Kind: KindNewsSitemap, SourceURL: "https://exame.com/news-sitemap.xml"})
	res, err := src.Listing.ParseListing([]byte(sitemap))
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	require.Len(t, res.Skipped, 1)

	art := res.Candidates[0].Article
	assert.Equal(t, "Copom mantém Selic", art.Title)
	assert.Equal(t, "https://exame.com/economia/selic/", art.URL)
	assert.Equal(t, "https://exame.com/selic.jpg", art.ImageURL)
	assert.True(t, art.PublishedAt.Equal(time.Date(2024, 1, 4, 13, 0, 0, 0, time.UTC)))
}

func TestSitemapIndexIsReported(t *testing.T) {
	const index = `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://exame.com/news-sitemap-1.xml</loc></sitemap>
</sitemapindex>`

	src := mustSource(t, Provider{ID: "exame", Kind: KindNewsSitemap, SourceURL: "https://exame.com/sitemap.xml"})
	_, err := src.Listing.ParseListing([]byte(index))
	var idxErr *SitemapIndexError
	require.ErrorAs(t, err, &idxErr)
	assert.Equal(t, []string{"https://exame.com/news-sitemap-1.xml"}, idxErr.Sitemaps)
	assert.Contains(t, err.Error(), "news-sitemap-1.xml")
}
