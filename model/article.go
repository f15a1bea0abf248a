package model

// Subscription is a read-only snapshot of one RSS feed subscription,
// joined with its unread count. IDs are opaque strings owned by the
// feed service and must never be parsed or constructed locally.
type Subscription struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Category    string `json:"category,omitempty"`
	UnreadCount int    `json:"unread_count"`
}

// Article is a value object describing one feed item. Read state lives
// only in the remote service and is never stored here.
type Article struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Link      string `json:"link,omitempty"`
	Published int64  `json:"published"` // epoch seconds
	FeedTitle string `json:"feed_title,omitempty"`
	FeedID    string `json:"feed_id,omitempty"`
}

// MarkReadResult reports per-chunk outcomes of a batch mark-read call.
// A failed chunk never rolls back ids already committed.
type MarkReadResult struct {
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
}

// ExtractionMethod identifies which tier of the recovery pipeline
// produced an extraction result.
type ExtractionMethod string

const (
	// MethodStatic means the text came from the HTML as served, without script execution
	MethodStatic ExtractionMethod = "static"
	// MethodDynamic means the text came from a headless-browser rendered DOM
	MethodDynamic ExtractionMethod = "dynamic"
)

// ExtractionResult is the ephemeral outcome of one full-article fetch.
// Failures are represented by Success=false rather than an error, so
// callers can decide whether to retry with force_dynamic.
type ExtractionResult struct {
	URL     string           `json:"url"`
	Title   string           `json:"title,omitempty"`
	Content string           `json:"content,omitempty"`
	Method  ExtractionMethod `json:"method,omitempty"`
	Success bool             `json:"success"`
	Error   string           `json:"error,omitempty"`
}
