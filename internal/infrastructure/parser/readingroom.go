package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ReadingRoom/internal/domain"
	"ReadingRoom/internal/ports"
)

const downloadMarker = "Download"

// ReadingRoomParser understands the reading-room search and document markup.
type ReadingRoomParser struct{}

var _ ports.PageParser = ReadingRoomParser{}

// NewReadingRoomParser returns the goquery-backed parser.
func NewReadingRoomParser() ReadingRoomParser {
	return ReadingRoomParser{}
}

// Parse loads the markup; relative links resolve against pageURL.
func (ReadingRoomParser) Parse(pageURL string, body []byte) (ports.Page, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return &page{doc: doc, base: base}, nil
}

type page struct {
	doc  *goquery.Document
	base *url.URL
}

// Documents lists search results in page order.
func (p *page) Documents() []domain.DocumentRef {
	var docs []domain.DocumentRef

	p.doc.Find("ol.search-results").First().Find("li").Each(func(_ int, li *goquery.Selection) {
		title := li.Find("h3.title").First()
		if title.Length() == 0 {
			return
		}
		href, ok := title.Find("a").First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		link, ok := p.resolve(href)
		if !ok {
			return
		}
		docs = append(docs, domain.DocumentRef{
			Title: strings.TrimSpace(title.Text()),
			URL:   link,
		})
	})

	return docs
}

// NextPageLink reads the pager's "next" entry.
func (p *page) NextPageLink() (string, bool) {
	next := p.doc.Find("ul.pager").First().Find("li.pager-next").First().Find("a").First()
	href, ok := next.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", false
	}
	return p.resolve(href)
}

// DownloadLink returns the first anchor whose text contains "Download".
func (p *page) DownloadLink() (string, bool) {
	var (
		link  string
		found bool
	)

	p.doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if !strings.Contains(a.Text(), downloadMarker) {
			return true
		}
		href, ok := a.Attr("href")
		if !ok {
			return false
		}
		link, found = p.resolve(href)
		return false
	})

	return link, found
}

func (p *page) resolve(href string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	return p.base.ResolveReference(ref).String(), true
}
