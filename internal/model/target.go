package model

import "strings"

// Target identifies one entity submitted for enrichment. Any of the three
// identifiers may be set; a target with none is dropped at submission.
type Target struct {
	ProspectID int64  `json:"prospect_id,omitempty"`
	URL        string `json:"url,omitempty"`
	Name       string `json:"name,omitempty"`
}

// Empty reports whether the target carries no usable identifier.
func (t Target) Empty() bool {
	return t.ProspectID == 0 && strings.TrimSpace(t.URL) == "" && strings.TrimSpace(t.Name) == ""
}

// ResultRow is a provider result normalized into the shape the reconciler
// understands. Provider quirks stay behind the per-kind normalizers; nothing
// downstream ever sees a raw provider payload.
type ResultRow struct {
	NativeID string         `json:"native_id,omitempty"`
	URL      string         `json:"url,omitempty"`
	Name     string         `json:"name,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
}

// NormalizeHostname strips scheme, leading www. and any path from a URL and
// lowercases the rest, yielding the hostname key used for matching.
func NormalizeHostname(rawURL string) string {
	h := strings.TrimSpace(rawURL)
	h = strings.TrimPrefix(h, "https://")
	h = strings.TrimPrefix(h, "http://")
	h = strings.TrimPrefix(h, "www.")
	if i := strings.IndexAny(h, "/?#"); i >= 0 {
		h = h[:i]
	}
	return strings.ToLower(h)
}
