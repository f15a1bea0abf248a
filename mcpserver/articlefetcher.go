package mcpserver

import (
	"context"

	"github.com/richardwooding/freshrss-mcp/model"
)

// ArticleFetcher recovers full article text from a URL on the open
// web, escalating to a rendered fetch when static extraction is thin.
type ArticleFetcher interface {
	FetchFullArticle(ctx context.Context, rawURL string, forceDynamic bool) model.ExtractionResult
}
