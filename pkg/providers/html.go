package providers

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/econodata/noticias-harvester/internal/domain"
)

// htmlParser reads listing pages that carry title, link, image and date inline.
type htmlParser struct {
	sourceID string
	base     string
	sel      HTMLSelectors
	dates    dateParser
	linkRe   *regexp.Regexp
}

func newHTMLParser(cfg Provider) (Source, error) {
	if cfg.Listing == nil || strings.TrimSpace(cfg.Listing.Item) == "" {
		return Source{}, fmt.Errorf("provider %q listing.item selector is required", cfg.ID)
	}
	linkRe, err := compileOptional(cfg.LinkPattern)
	if err != nil {
		return Source{}, fmt.Errorf("provider %q link_pattern: %w", cfg.ID, err)
	}

	sel := *cfg.Listing
	if sel.Link == "" {
		sel.Link = "a[href]"
	}
	if sel.Date == "" {
		sel.Date = "time"
	}
	if sel.DateAttr == "" {
		sel.DateAttr = "datetime"
	}

	p := &htmlParser{
		sourceID: cfg.ID,
		base:     cfg.SourceURL,
		sel:      sel,
		dates:    newDateParser(cfg.Location(), cfg.DateLayouts),
		linkRe:   linkRe,
	}
	return Source{Provider: cfg, Listing: p}, nil
}

func (p *htmlParser) ParseListing(doc []byte) (ParseResult, error) {
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return ParseResult{}, fmt.Errorf("parse html: %w", err)
	}

	var res ParseResult
	page.Find(p.sel.Item).Each(func(i int, item *goquery.Selection) {
		art, err := p.article(item)
		if err != nil {
			res.skip(fmt.Errorf("item %d: %w", i, err))
			return
		}
		res.add(Candidate{Article: art})
	})
	return res, nil
}

func (p *htmlParser) article(item *goquery.Selection) (domain.Article, error) {
	anchor := item.Find(p.sel.Link).First()
	if goquery.NodeName(item) == "a" && anchor.Length() == 0 {
		anchor = item
	}
	href, _ := anchor.Attr("href")
	if strings.TrimSpace(href) == "" {
		return domain.Article{}, fmt.Errorf("link: %w", ErrFieldMissing)
	}
	if p.linkRe != nil && !p.linkRe.MatchString(href) {
		return domain.Article{}, fmt.Errorf("link %q outside pattern: %w", href, ErrFieldMissing)
	}
	link := stripFragment(resolveURL(href, p.base))

	title := anchor.Text()
	if p.sel.Title != "" {
		title = item.Find(p.sel.Title).First().Text()
	}
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return domain.Article{}, fmt.Errorf("title: %w", ErrFieldMissing)
	}

	dateNode := item.Find(p.sel.Date).First()
	if dateNode.Length() == 0 {
		return domain.Article{}, fmt.Errorf("date: %w", ErrFieldMissing)
	}
	raw, ok := dateNode.Attr(p.sel.DateAttr)
	if !ok || strings.TrimSpace(raw) == "" {
		raw = dateNode.Text()
	}
	published, err := p.dates.Parse(raw)
	if err != nil {
		return domain.Article{}, err
	}

	imgSel := p.sel.Image
	if imgSel == "" {
		imgSel = "img"
	}

	return domain.Article{
		SourceID:    p.sourceID,
		Title:       title,
		URL:         link,
		ImageURL:    resolveURL(imageSource(item.Find(imgSel).First()), p.base),
		PublishedAt: published,
	}, nil
}
