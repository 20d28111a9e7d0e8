package providers

// DefaultProviders is the built-in source table used when no providers file is configured.
func DefaultProviders() []Provider {
	return []Provider{
		{
			ID:        "bbc",
			Name:      "BBC News Brasil",
			Kind:      KindHTML,
			SourceURL: "https://www.bbc.com/portuguese/topics/cvjp2jr0k9rt",
			Listing: &HTMLSelectors{
				Item:     "main li",
				Link:     "a[href]",
				Image:    "img",
				Date:     "div.promo-text time",
				DateAttr: "datetime",
			},
		},
		{
			ID:                  "folha-sp-mercado",
			Name:                "Folha de S.Paulo",
			Kind:                KindRSS,
			SourceURL:           "https://feeds.folha.uol.com.br/mercado/rss091.xml",
			LinkFromDescription: `\*(https?://[^"\s*]+?html)`,
		},
		{
			ID:        "valor-economico",
			Name:      "Valor Econômico",
			Kind:      KindRSS,
			SourceURL: "https://pox.globo.com/rss/valor",
		},
		{
			ID:        "g1-economia",
			Name:      "G1 Economia",
			Kind:      KindRSS,
			SourceURL: "https://g1.globo.com/rss/g1/economia/",
		},
		{
			ID:        "carta-capital",
			Name:      "Carta Capital",
			Kind:      KindRSS,
			SourceURL: "https://www.cartacapital.com.br/feed/",
		},
		{
			ID:             "cnn",
			Name:           "CNN Brasil",
			Kind:           KindHTMLLinks,
			SourceURL:      "https://www.cnnbrasil.com.br/economia/",
			LinkPattern:    `\.com\.br/economia/.+`,
			ExcludePattern: `ultimas-noticias`,
			Detail: &DetailSelectors{
				Title: "h1.post__title",
				Image: "picture.img__destaque img",
				Date:  "span.post__data",
			},
		},
		{
			ID:        "exame",
			Name:      "Exame",
			Kind:      KindNewsSitemap,
			SourceURL: "https://exame.com/news-sitemap.xml",
		},
	}
}
