package feed

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	// thingIDRe matches a link-type "thing" id such as t3_1abc2d.
	thingIDRe = regexp.MustCompile(`(?i)\bt3_([a-z0-9]+)\b`)

	// commentsPathRe matches the id segment of a permalink.
	commentsPathRe = regexp.MustCompile(`(?i)/comments/([a-z0-9]+)/`)

	// shortLinkRe matches redd.it short links.
	shortLinkRe = regexp.MustCompile(`(?i)redd\.it/([a-z0-9]+)/?$`)

	// subredditRe captures the community name preceding /comments/.
	subredditRe = regexp.MustCompile(`(?i)/r/([^/]+)/comments/`)
)

// dateLayouts are tried in order when parsing item dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Normalize converts feed items into posts. Items without a resolvable post
// id are dropped since they cannot be deduplicated.
func Normalize(f *Feed) []Post {
	if f == nil {
		return nil
	}

	posts := make([]Post, 0, len(f.Items))
	for _, it := range f.Items {
		id := ExtractPostID(it.GUID, it.Link)
		if id == "" {
			continue
		}

		body := textSnippet(it.Content)
		if body == "" {
			body = textSnippet(it.Summary)
		}

		posts = append(posts, Post{
			PostID:      id,
			Subreddit:   ExtractSubreddit(it.Link),
			Title:       it.Title,
			Body:        body,
			Link:        it.Link,
			PublishedAt: ParseUnixSeconds(it.Published),
		})
	}
	return posts
}

// ExtractPostID resolves a post id from, in order: a thing id in the guid, a
// permalink in the guid, a permalink in the link. Returns "" if none match.
func ExtractPostID(guid, link string) string {
	if m := thingIDRe.FindStringSubmatch(guid); m != nil {
		return m[1]
	}
	if id := postIDFromURL(guid); id != "" {
		return id
	}
	return postIDFromURL(link)
}

func postIDFromURL(u string) string {
	if u == "" {
		return ""
	}
	if m := commentsPathRe.FindStringSubmatch(u); m != nil {
		return m[1]
	}
	if m := shortLinkRe.FindStringSubmatch(u); m != nil {
		return m[1]
	}
	return ""
}

// ExtractSubreddit returns the path segment before /comments/, or "".
func ExtractSubreddit(link string) string {
	if m := subredditRe.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return ""
}

// ParseUnixSeconds parses a feed date into unix seconds, or nil.
func ParseUnixSeconds(value string) *int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			secs := t.Unix()
			return &secs
		}
	}
	return nil
}

// textSnippet strips markup from an HTML fragment and collapses whitespace.
func textSnippet(html string) string {
	if html == "" {
		return ""
	}
	text := html
	if strings.ContainsAny(html, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err == nil {
			text = doc.Text()
		}
	}
	return strings.Join(strings.Fields(text), " ")
}
