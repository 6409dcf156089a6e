package feed

// Post is a normalized feed item. PostID is the dedup key and is always
// non-empty for posts returned by Normalize.
type Post struct {
	PostID      string
	Subreddit   string
	Title       string
	Body        string
	Link        string
	PublishedAt *int64 // unix seconds, nil when the item date could not be parsed
}

// EffectiveTime returns PublishedAt when known, otherwise now.
func (p Post) EffectiveTime(now int64) int64 {
	if p.PublishedAt != nil {
		return *p.PublishedAt
	}
	return now
}

// Item is one raw entry of a parsed RSS or Atom feed.
type Item struct {
	GUID      string
	Title     string
	Link      string
	Content   string
	Summary   string
	Published string
}

// Feed is a parsed RSS or Atom document.
type Feed struct {
	Title string
	Items []Item
}
