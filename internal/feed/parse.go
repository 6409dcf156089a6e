package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// Parse auto-detects and parses RSS 2.0 or Atom 1.0 XML.
func Parse(data []byte) (*Feed, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("feed: empty document")
	}

	switch detectFormat(trimmed) {
	case "rss":
		return parseRSS(trimmed)
	case "atom":
		return parseAtom(trimmed)
	default:
		return nil, fmt.Errorf("feed: unknown format (expected <rss> or <feed>)")
	}
}

func detectFormat(data []byte) string {
	d := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := d.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			switch strings.ToLower(se.Name.Local) {
			case "rss", "rdf":
				return "rss"
			case "feed":
				return "atom"
			}
			return ""
		}
	}
}

type rssRoot struct {
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	GUID        string `xml:"guid"`
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Content     string `xml:"encoded"` // content:encoded
	PubDate     string `xml:"pubDate"`
	Date        string `xml:"date"` // dc:date
}

func parseRSS(data []byte) (*Feed, error) {
	var root rssRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("feed: parse rss: %w", err)
	}

	f := &Feed{
		Title: strings.TrimSpace(root.Channel.Title),
		Items: make([]Item, 0, len(root.Channel.Items)),
	}
	for _, it := range root.Channel.Items {
		published := strings.TrimSpace(it.PubDate)
		if published == "" {
			published = strings.TrimSpace(it.Date)
		}
		f.Items = append(f.Items, Item{
			GUID:      strings.TrimSpace(it.GUID),
			Title:     strings.TrimSpace(it.Title),
			Link:      strings.TrimSpace(it.Link),
			Content:   strings.TrimSpace(it.Content),
			Summary:   strings.TrimSpace(it.Description),
			Published: published,
		})
	}
	return f, nil
}

type atomFeed struct {
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

type atomEntry struct {
	ID        string     `xml:"id"`
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Content   string     `xml:"content"`
	Summary   string     `xml:"summary"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
}

func parseAtom(data []byte) (*Feed, error) {
	var root atomFeed
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("feed: parse atom: %w", err)
	}

	f := &Feed{
		Title: strings.TrimSpace(root.Title),
		Items: make([]Item, 0, len(root.Entries)),
	}
	for _, e := range root.Entries {
		published := strings.TrimSpace(e.Published)
		if published == "" {
			published = strings.TrimSpace(e.Updated)
		}
		f.Items = append(f.Items, Item{
			GUID:      strings.TrimSpace(e.ID),
			Title:     strings.TrimSpace(e.Title),
			Link:      alternateLink(e.Links),
			Content:   strings.TrimSpace(e.Content),
			Summary:   strings.TrimSpace(e.Summary),
			Published: published,
		})
	}
	return f, nil
}

// alternateLink picks the rel="alternate" link, falling back to the first href.
func alternateLink(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "" || l.Rel == "alternate" {
			return strings.TrimSpace(l.Href)
		}
	}
	if len(links) > 0 {
		return strings.TrimSpace(links[0].Href)
	}
	return ""
}
