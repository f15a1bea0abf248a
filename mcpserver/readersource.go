package mcpserver

import (
	"context"

	"github.com/richardwooding/freshrss-mcp/model"
)

// SubscriptionLister lists the feeds the account subscribes to.
type SubscriptionLister interface {
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
}

// UnreadLister lists unread articles, optionally scoped to one feed.
type UnreadLister interface {
	ListUnread(ctx context.Context, limit int, feedID string) ([]model.Article, error)
}

// ArticleGetter retrieves the full stored content of one article.
type ArticleGetter interface {
	GetArticle(ctx context.Context, articleID string) (model.Article, error)
}

// ReadStateMarker applies read and starred state changes to articles.
type ReadStateMarker interface {
	MarkRead(ctx context.Context, articleIDs []string) (model.MarkReadResult, error)
	MarkStarred(ctx context.Context, articleIDs []string) (model.MarkReadResult, error)
}
