package providers

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/econodata/noticias-harvester/internal/domain"
)

// rssParser reads RSS 2.0 and Atom feeds.
type rssParser struct {
	sourceID string
	base     string
	dates    dateParser
	linkRe   *regexp.Regexp
}

func newRSSParser(cfg Provider) (Source, error) {
	linkRe, err := compileOptional(cfg.LinkFromDescription)
	if err != nil {
		return Source{}, fmt.Errorf("provider %q link_from_description: %w", cfg.ID, err)
	}
	p := &rssParser{
		sourceID: cfg.ID,
		base:     cfg.SourceURL,
		dates:    newDateParser(cfg.Location(), cfg.DateLayouts),
		linkRe:   linkRe,
	}
	return Source{Provider: cfg, Listing: p}, nil
}

func (p *rssParser) ParseListing(doc []byte) (ParseResult, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(doc))
	if err != nil {
		return ParseResult{}, fmt.Errorf("decode feed: %w", err)
	}

	var res ParseResult
	for i, item := range feed.Items {
		art, err := p.article(item)
		if err != nil {
			res.skip(fmt.Errorf("item %d: %w", i, err))
			continue
		}
		res.add(Candidate{Article: art})
	}
	return res, nil
}

func (p *rssParser) article(item *gofeed.Item) (domain.Article, error) {
	if item == nil {
		return domain.Article{}, fmt.Errorf("empty item: %w", ErrFieldMissing)
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return domain.Article{}, fmt.Errorf("title: %w", ErrFieldMissing)
	}

	link, err := p.link(item)
	if err != nil {
		return domain.Article{}, err
	}

	published, err := p.dates.Parse(firstNonEmpty(item.Published, item.Updated))
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownZone):
			return domain.Article{}, err
		case item.PublishedParsed != nil:
			published = item.PublishedParsed.UTC()
		case item.UpdatedParsed != nil:
			published = item.UpdatedParsed.UTC()
		default:
			return domain.Article{}, err
		}
	}

	return domain.Article{
		SourceID:    p.sourceID,
		Title:       title,
		URL:         link,
		ImageURL:    resolveURL(feedImage(item), link),
		PublishedAt: published,
	}, nil
}

func (p *rssParser) link(item *gofeed.Item) (string, error) {
	if p.linkRe != nil {
		for _, text := range []string{item.Description, item.Link} {
			if m := p.linkRe.FindStringSubmatch(text); len(m) > 0 {
				return strings.TrimSpace(m[len(m)-1]), nil
			}
		}
		return "", fmt.Errorf("link in description: %w", ErrFieldMissing)
	}

	guid := strings.TrimSpace(item.GUID)
	if !strings.HasPrefix(guid, "http") {
		guid = ""
	}
	link := firstNonEmpty(item.Link, guid)
	if link == "" {
		return "", fmt.Errorf("link: %w", ErrFieldMissing)
	}
	return resolveURL(link, p.base), nil
}

// feedImage picks media:content, media:thumbnail, an image enclosure or the item image.
func feedImage(item *gofeed.Item) string {
	if media, ok := item.Extensions["media"]; ok {
		for _, name := range []string{"content", "thumbnail"} {
			for _, ext := range media[name] {
				if u := strings.TrimSpace(ext.Attrs["url"]); u != "" {
					return u
				}
			}
		}
		for _, group := range media["group"] {
			for _, ext := range group.Children["content"] {
				if u := strings.TrimSpace(ext.Attrs["url"]); u != "" {
					return u
				}
			}
		}
	}
	for _, enc := range item.Enclosures {
		if enc == nil || strings.TrimSpace(enc.URL) == "" {
			continue
		}
		if enc.Type == "" || strings.HasPrefix(enc.Type, "image/") {
			return strings.TrimSpace(enc.URL)
		}
	}
	if item.Image != nil {
		return strings.TrimSpace(item.Image.URL)
	}
	return ""
}
