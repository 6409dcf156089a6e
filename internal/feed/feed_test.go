package feed

import (
	"testing"
)

const redditAtom = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:media="http://search.yahoo.com/mrss/">
  <title>newest submissions : SaaS+startups</title>
  <entry>
    <author><name>/u/founder</name></author>
    <category term="SaaS" label="r/SaaS"/>
    <content type="html">&lt;div class="md"&gt;&lt;p&gt;I am struggling with   invoicing.&lt;/p&gt;&lt;p&gt;Any tools?&lt;/p&gt;&lt;/div&gt;</content>
    <id>t3_1abc2d</id>
    <link href="https://www.reddit.com/r/SaaS/comments/1abc2d/struggling_with_invoicing/"/>
    <updated>2025-01-02T10:00:00+00:00</updated>
    <published>2025-01-02T09:30:00+00:00</published>
    <title>Struggling with invoicing</title>
  </entry>
  <entry>
    <id>https://www.reddit.com/r/startups/comments/9zz9zz/hiring/</id>
    <link href="https://www.reddit.com/r/startups/comments/9zz9zz/hiring/"/>
    <updated>not a date</updated>
    <title>Hiring</title>
  </entry>
  <entry>
    <id>urn:unknown</id>
    <link href="https://example.com/elsewhere"/>
    <title>No id</title>
  </entry>
</feed>`

const plainRSS = `<?xml version="1.0"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Example</title>
    <item>
      <title>Wish there was a better CRM</title>
      <link>https://redd.it/qwe123</link>
      <guid isPermaLink="false">guid-without-id</guid>
      <description>Plain description</description>
      <pubDate>Thu, 02 Jan 2025 09:30:00 +0000</pubDate>
    </item>
  </channel>
</rss>`

func TestParseAtom(t *testing.T) {
	f, err := Parse([]byte(redditAtom))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(f.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(f.Items))
	}
	first := f.Items[0]
	if first.GUID != "t3_1abc2d" {
		t.Errorf("expected guid t3_1abc2d, got %q", first.GUID)
	}
	if first.Link != "https://www.reddit.com/r/SaaS/comments/1abc2d/struggling_with_invoicing/" {
		t.Errorf("unexpected link %q", first.Link)
	}
	if first.Published != "2025-01-02T09:30:00+00:00" {
		t.Errorf("expected published date, got %q", first.Published)
	}
	if f.Items[1].Published != "not a date" {
		t.Errorf("expected updated fallback, got %q", f.Items[1].Published)
	}
}

func TestParseRSS(t *testing.T) {
	f, err := Parse([]byte(plainRSS))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(f.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(f.Items))
	}
	if f.Items[0].Summary != "Plain description" {
		t.Errorf("unexpected summary %q", f.Items[0].Summary)
	}
}

func TestParseRejectsUnknownFormat(t *testing.T) {
	for _, doc := range []string{"", "   ", "<html><body/></html>", "not xml"} {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("expected error for %q", doc)
		}
	}
}

func TestNormalizeAtom(t *testing.T) {
	f, err := Parse([]byte(redditAtom))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	posts := Normalize(f)
	if len(posts) != 2 {
		t.Fatalf("expected item without id to be dropped, got %d posts", len(posts))
	}

	p := posts[0]
	if p.PostID != "1abc2d" {
		t.Errorf("expected post id 1abc2d, got %q", p.PostID)
	}
	if p.Subreddit != "SaaS" {
		t.Errorf("expected subreddit SaaS, got %q", p.Subreddit)
	}
	if p.Body != "I am struggling with invoicing.Any tools?" {
		t.Errorf("unexpected body snippet %q", p.Body)
	}
	if p.PublishedAt == nil || *p.PublishedAt != 1735810200 {
		t.Errorf("unexpected publishedAt %v", p.PublishedAt)
	}

	second := posts[1]
	if second.PostID != "9zz9zz" {
		t.Errorf("expected permalink id 9zz9zz, got %q", second.PostID)
	}
	if second.PublishedAt != nil {
		t.Errorf("expected nil publishedAt for unparseable date, got %d", *second.PublishedAt)
	}
}

func TestNormalizeRSSShortLink(t *testing.T) {
	f, err := Parse([]byte(plainRSS))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	posts := Normalize(f)
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	if posts[0].PostID != "qwe123" {
		t.Errorf("expected short link id qwe123, got %q", posts[0].PostID)
	}
	if posts[0].Subreddit != "" {
		t.Errorf("expected empty subreddit, got %q", posts[0].Subreddit)
	}
	if posts[0].Body != "Plain description" {
		t.Errorf("expected summary fallback body, got %q", posts[0].Body)
	}
	if posts[0].PublishedAt == nil || *posts[0].PublishedAt != 1735810200 {
		t.Errorf("unexpected publishedAt %v", posts[0].PublishedAt)
	}
}

func TestExtractPostID(t *testing.T) {
	tests := []struct {
		name string
		guid string
		link string
		want string
	}{
		{"thing id wins", "t3_abc123", "https://www.reddit.com/r/x/comments/zzz999/t/", "abc123"},
		{"guid permalink", "https://www.reddit.com/r/x/comments/def456/title/", "", "def456"},
		{"link permalink", "", "https://www.reddit.com/r/x/comments/ghi789/title/", "ghi789"},
		{"thing id needs boundary", "xt3_abc", "", ""},
		{"short link", "", "https://redd.it/jkl012", "jkl012"},
		{"nothing", "urn:x", "https://example.com", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractPostID(tc.guid, tc.link); got != tc.want {
				t.Errorf("ExtractPostID(%q, %q) = %q, want %q", tc.guid, tc.link, got, tc.want)
			}
		})
	}
}

func TestEffectiveTime(t *testing.T) {
	ts := int64(100)
	if got := (Post{PublishedAt: &ts}).EffectiveTime(500); got != 100 {
		t.Errorf("expected published time, got %d", got)
	}
	if got := (Post{}).EffectiveTime(500); got != 500 {
		t.Errorf("expected now fallback, got %d", got)
	}
}
