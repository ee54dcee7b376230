package domain

// FeedSource is a statically configured upstream feed. Sources are loaded
// from config at process start and never mutated.
type FeedSource struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
}
