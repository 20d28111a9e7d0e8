package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cnnSource(t *testing.T) Source {
	t.Helper()
	for _, p := range DefaultProviders() {
		if p.ID == "cnn" {
			return mustSource(t, p)
		}
	}
	t.Fatal("cnn provider missing from defaults")
	return Source{}
}

func TestLinksParseListing(t *testing.T) {
	const listing = `<html><body>
<a href="https://www.cnnbrasil.com.br/economia/">Economia</a>
<a href="https://www.cnnbrasil.com.br/economia/macroeconomia/pib-cresce/">PIB cresce</a>
<a href="https://www.cnnbrasil.com.br/economia/macroeconomia/pib-cresce/#comentarios">PIB cresce (comentários)</a>
<a href="https://www.cnnbrasil.com.br/economia/ultimas-noticias/">Últimas</a>
<a href="https://www.cnnbrasil.com.br/politica/eleicoes/">Política</a>
<a href="https://www.cnnbrasil.com.br/economia/mercado/dolar-cai/">Dólar cai</a>
</body></html>`

	src := cnnSource(t)
	require.True(t, src.NeedsDetailFetch())

	res, err := src.Listing.ParseListing([]byte(listing))
	require.NoError(t, err)

	var urls []string
	for _, c := range res.Candidates {
		require.True(t, c.NeedsDetail())
		urls = append(urls, c.DetailURL)
	}
	assert.Equal(t, []string{
		"https://www.cnnbrasil.com.br/economia/macroeconomia/pib-cresce/",
		"https://www.cnnbrasil.com.br/economia/mercado/dolar-cai/",
	}, urls)
}

func TestLinksParseDetail(t *testing.T) {
	const page = `<html><head>
<meta property="og:image" content="https://cdn.cnnbrasil.com.br/og.jpg">
</head><body>
<h1 class="post__title"> PIB cresce 0,9% no trimestre </h1>
<picture class="img__destaque"><img src="https://cdn.cnnbrasil.com.br/pib.jpg"></picture>
<span class="post__data">Da CNN, São Paulo 04/01/2024 às 10:00</span>
</body></html>`

	src := cnnSource(t)
	const pageURL = "https://www.cnnbrasil.com.br/economia/macroeconomia/pib-cresce/"

	art, err := src.Detail.ParseDetail(pageURL, []byte(page))
	require.NoError(t, err)
	assert.Equal(t, "cnn", art.SourceID)
	assert.Equal(t, "PIB cresce 0,9% no trimestre", art.Title)
	assert.Equal(t, pageURL, art.URL)
	assert.Equal(t, "https://cdn.cnnbrasil.com.br/pib.jpg", art.ImageURL)
	assert.True(t, art.PublishedAt.Equal(time.Date(2024, 1, 4, 13, 0, 0, 0, time.UTC)), art.PublishedAt)
}

func TestLinksParseDetailFallbacks(t *testing.T) {
	const page = `<html><head>
<meta property="og:image" content="/og.jpg">
<meta property="article:published_time" content="2024-01-04T10:00:00-03:00">
</head><body><h1 class="post__title">Sem span de data</h1></body></html>`

	art, err := cnnSource(t).Detail.ParseDetail("https://www.cnnbrasil.com.br/economia/x/", []byte(page))
	require.NoError(t, err)
	assert.Equal(t, "https://www.cnnbrasil.com.br/og.jpg", art.ImageURL)
	assert.True(t, art.PublishedAt.Equal(time.Date(2024, 1, 4, 13, 0, 0, 0, time.UTC)))
}

func TestLinksParseDetailErrors(t *testing.T) {
	src := cnnSource(t)

	_, err := src.Detail.ParseDetail("https://x/", []byte(`<html><body><p>galeria</p></body></html>`))
	assert.ErrorIs(t, err, ErrNotArticle)

	_, err = src.Detail.ParseDetail("https://x/", []byte(`<h1 class="post__title">T</h1><span class="post__data">ontem</span>`))
	assert.ErrorIs(t, err, ErrDateFormat)

	_, err = src.Detail.ParseDetail("https://x/", []byte(`<h1 class="post__title">T</h1>`))
	assert.ErrorIs(t, err, ErrFieldMissing)
}

func TestLinksParserRequiresPattern(t *testing.T) {
	_, err := newLinksParser(Provider{ID: "x", Kind: KindHTMLLinks, SourceURL: "https://example.com"})
	require.Error(t, err)
}
