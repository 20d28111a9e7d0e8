package providers

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/econodata/noticias-harvester/internal/domain"
)

// linksParser handles two-step sources: the listing yields article links only
// and every page is fetched to read title, image and date.
type linksParser struct {
	sourceID  string
	base      string
	linkRe    *regexp.Regexp
	excludeRe *regexp.Regexp
	sel       DetailSelectors
	dateRe    *regexp.Regexp
	dates     dateParser
}

func newLinksParser(cfg Provider) (Source, error) {
	if strings.TrimSpace(cfg.LinkPattern) == "" {
		return Source{}, fmt.Errorf("provider %q link_pattern is required for kind %s", cfg.ID, cfg.Kind)
	}
	linkRe, err := regexp.Compile(cfg.LinkPattern)
	if err != nil {
		return Source{}, fmt.Errorf("provider %q link_pattern: %w", cfg.ID, err)
	}
	excludeRe, err := compileOptional(cfg.ExcludePattern)
	if err != nil {
		return Source{}, fmt.Errorf("provider %q exclude_pattern: %w", cfg.ID, err)
	}

	sel := DetailSelectors{}
	if cfg.Detail != nil {
		sel = *cfg.Detail
	}
	if sel.Title == "" {
		sel.Title = "h1"
	}

	var dateRe *regexp.Regexp
	switch {
	case sel.DateRegex != "":
		if dateRe, err = regexp.Compile(sel.DateRegex); err != nil {
			return Source{}, fmt.Errorf("provider %q detail.date_regex: %w", cfg.ID, err)
		}
	case sel.Date != "" && sel.DateAttr == "":
		dateRe = brazilianDateTimeRe
	}

	p := &linksParser{
		sourceID:  cfg.ID,
		base:      cfg.SourceURL,
		linkRe:    linkRe,
		excludeRe: excludeRe,
		sel:       sel,
		dateRe:    dateRe,
		dates:     newDateParser(cfg.Location(), cfg.DateLayouts),
	}
	return Source{Provider: cfg, Listing: p, Detail: p}, nil
}

// ParseListing returns one DetailURL candidate per distinct matching anchor.
func (p *linksParser) ParseListing(doc []byte) (ParseResult, error) {
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return ParseResult{}, fmt.Errorf("parse html: %w", err)
	}

	var res ParseResult
	seen := make(map[string]struct{})
	page.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || !p.linkRe.MatchString(href) {
			return
		}
		if p.excludeRe != nil && p.excludeRe.MatchString(href) {
			return
		}
		link := stripFragment(resolveURL(href, p.base))
		if link == "" || link == p.base {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		res.add(Candidate{DetailURL: link})
	})
	return res, nil
}

// ParseDetail reads one article page.
func (p *linksParser) ParseDetail(pageURL string, doc []byte) (domain.Article, error) {
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return domain.Article{}, fmt.Errorf("parse html: %w", err)
	}

	title := strings.Join(strings.Fields(page.Find(p.sel.Title).First().Text()), " ")
	if title == "" {
		return domain.Article{}, ErrNotArticle
	}

	published, err := p.publishedAt(page)
	if err != nil {
		return domain.Article{}, err
	}

	image := ""
	if p.sel.Image != "" {
		image = imageSource(page.Find(p.sel.Image).First())
	}
	image = firstNonEmpty(image, metaContent(page, `meta[property="og:image"]`))

	return domain.Article{
		SourceID:    p.sourceID,
		Title:       title,
		URL:         pageURL,
		ImageURL:    resolveURL(image, pageURL),
		PublishedAt: published,
	}, nil
}

func (p *linksParser) publishedAt(page *goquery.Document) (time.Time, error) {
	var raw string
	if p.sel.Date != "" {
		if node := page.Find(p.sel.Date).First(); node.Length() > 0 {
			if p.sel.DateAttr != "" {
				raw = node.AttrOr(p.sel.DateAttr, "")
			} else {
				raw = node.Text()
			}
		}
	}

	if strings.TrimSpace(raw) != "" {
		value, err := extractDate(raw, p.dateRe)
		if err != nil {
			return time.Time{}, err
		}
		return p.dates.Parse(value)
	}

	if meta := metaContent(page, `meta[property="article:published_time"]`); meta != "" {
		return p.dates.Parse(meta)
	}
	return time.Time{}, fmt.Errorf("date: %w", ErrFieldMissing)
}
