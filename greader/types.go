package greader

import "github.com/richardwooding/freshrss-mcp/model"

// Google Reader API state tags.
const (
	stateRead        = "user/-/state/com.google/read"
	stateStarred     = "user/-/state/com.google/starred"
	stateReadingList = "user/-/state/com.google/reading-list"
)

// Wire-level response structures for the Google Reader compatible API.
// Field shapes follow what FreshRSS actually emits, including the
// lowercase "unreadcounts" key.

type subscriptionListResponse struct {
	Subscriptions []wireSubscription `json:"subscriptions"`
}

type wireSubscription struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	URL        string         `json:"url"`
	HTMLURL    string         `json:"htmlUrl"`
	IconURL    string         `json:"iconUrl,omitempty"`
	Categories []wireCategory `json:"categories"`
}

type wireCategory struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type unreadCountResponse struct {
	Max          int               `json:"max"`
	UnreadCounts []wireUnreadCount `json:"unreadcounts"`
}

type wireUnreadCount struct {
	ID                      string `json:"id"`
	Count                   int    `json:"count"`
	NewestItemTimestampUsec string `json:"newestItemTimestampUsec,omitempty"`
}

type streamContentsResponse struct {
	ID           string     `json:"id"`
	Title        string     `json:"title,omitempty"`
	Updated      int64      `json:"updated,omitempty"`
	Items        []wireItem `json:"items"`
	Continuation string     `json:"continuation,omitempty"`
}

type wireItem struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Published  int64       `json:"published"`
	Updated    int64       `json:"updated,omitempty"`
	Author     string      `json:"author,omitempty"`
	Categories []string    `json:"categories,omitempty"`
	Canonical  []wireLink  `json:"canonical,omitempty"`
	Alternate  []wireLink  `json:"alternate,omitempty"`
	Summary    wireSummary `json:"summary"`
	Origin     wireOrigin  `json:"origin"`
}

type wireLink struct {
	Href string `json:"href"`
	Type string `json:"type,omitempty"`
}

type wireSummary struct {
	Direction string `json:"direction,omitempty"`
	Content   string `json:"content"`
}

type wireOrigin struct {
	StreamID string `json:"streamId"`
	Title    string `json:"title"`
	HTMLURL  string `json:"htmlUrl,omitempty"`
}

// link returns the article URL, preferring canonical over alternate links.
func (it wireItem) link() string {
	if len(it.Canonical) > 0 {
		return it.Canonical[0].Href
	}
	if len(it.Alternate) > 0 {
		return it.Alternate[0].Href
	}
	return ""
}

// toArticle maps one stream item into the external data model. The
// item id is exposed in its short form so the long-form wire quirk
// never leaks to callers.
func (it wireItem) toArticle() model.Article {
	return model.Article{
		ID:        ShortItemID(it.ID),
		Title:     it.Title,
		Summary:   it.Summary.Content,
		Link:      it.link(),
		Published: it.Published,
		FeedTitle: it.Origin.Title,
		FeedID:    it.Origin.StreamID,
	}
}

func (s wireSubscription) category() string {
	if len(s.Categories) > 0 {
		return s.Categories[0].Label
	}
	return ""
}
