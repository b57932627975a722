package prospect

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-intel/internal/model"
)

// Patch is the minimal update computed for one prospect: the slots to fill
// plus the provenance tag of the job kind that produced them. A patch with no
// fields is still applied, because the provenance touch itself is an update.
type Patch struct {
	Fields map[string]string `json:"fields"`
	Source model.JobKind     `json:"source"`
}

// FieldKeys returns the patched field keys in sorted order, so generated SQL
// and log output are deterministic.
func (p Patch) FieldKeys() []string {
	keys := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ComputePatch applies the fill-only-if-empty merge policy: a slot enters the
// patch only when the prospect's current value is empty and the candidate
// provides a non-empty one. Populated fields are never overwritten —
// enrichment is additive, not authoritative.
func ComputePatch(p *Prospect, candidate map[string]any, kind model.JobKind) Patch {
	patch := Patch{
		Fields: make(map[string]string),
		Source: kind,
	}

	for key, raw := range candidate {
		slot := p.slot(key)
		if slot == nil {
			zap.L().Debug("merge: unmapped field key", zap.String("key", key))
			continue
		}
		if strings.TrimSpace(*slot) != "" {
			continue
		}
		if v := toString(raw); v != "" {
			patch.Fields[key] = v
		}
	}

	return patch
}

// Apply mutates a prospect in memory the way the store's ApplyPatch does on
// disk: fill empty slots, append the source tag once, touch enriched_at.
// Applying the same patch twice is a no-op beyond the timestamp.
func Apply(p *Prospect, patch Patch, now time.Time) {
	for _, key := range patch.FieldKeys() {
		slot := p.slot(key)
		if slot == nil || strings.TrimSpace(*slot) != "" {
			continue
		}
		*slot = patch.Fields[key]
	}
	if !p.HasSource(patch.Source) {
		p.EnrichmentSources = append(p.EnrichmentSources, string(patch.Source))
	}
	t := now.UTC()
	p.EnrichedAt = &t
	p.UpdatedAt = t
}

// toString coerces the loosely typed values normalizers emit. Lists collapse
// to their first non-empty element.
func toString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []string:
		for _, s := range val {
			if t := strings.TrimSpace(s); t != "" {
				return t
			}
		}
		return ""
	case []any:
		for _, e := range val {
			if s := toString(e); s != "" {
				return s
			}
		}
		return ""
	default:
		return ""
	}
}
