package prospect

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/sells-group/lead-intel/internal/model"
)

// Matcher resolves a normalized result row to a known prospect.
type Matcher struct {
	store Store
}

// NewMatcher creates a prospect matcher.
func NewMatcher(store Store) *Matcher {
	return &Matcher{store: store}
}

// Match resolves a result row using a prioritized cascade, first match wins:
//  1. Provider-native identifier.
//  2. URL, normalized to a hostname; exact hostname equality beats a
//     substring match, remaining ties go to the oldest prospect.
//  3. Display name, compared under Unicode case folding.
//
// A nil, nil return means no prospect matched; that is expected for rows the
// provider discovered outside the submitted set and is not an error.
func (m *Matcher) Match(ctx context.Context, row model.ResultRow) (*Prospect, error) {
	// Pass 1: provider-native id.
	if row.NativeID != "" {
		p, err := m.store.FindByProviderID(ctx, row.NativeID)
		if err != nil {
			return nil, eris.Wrap(err, "prospect: match by provider id")
		}
		if p != nil {
			zap.L().Debug("match: by provider id",
				zap.String("provider_id", row.NativeID),
				zap.Int64("prospect_id", p.ID),
			)
			return p, nil
		}
	}

	// Pass 2: normalized hostname.
	if hostname := model.NormalizeHostname(row.URL); hostname != "" {
		candidates, err := m.store.FindByHostname(ctx, hostname)
		if err != nil {
			return nil, eris.Wrap(err, "prospect: match by hostname")
		}
		if p := pickByHostname(candidates, hostname); p != nil {
			zap.L().Debug("match: by hostname",
				zap.String("hostname", hostname),
				zap.Int64("prospect_id", p.ID),
			)
			return p, nil
		}
	}

	// Pass 3: case-insensitive display name.
	if name := strings.TrimSpace(row.Name); name != "" {
		candidates, err := m.store.FindByName(ctx, name)
		if err != nil {
			return nil, eris.Wrap(err, "prospect: match by name")
		}
		folded := cases.Fold().String(name)
		for i := range candidates {
			if cases.Fold().String(candidates[i].Name) == folded {
				zap.L().Debug("match: by name",
					zap.String("name", name),
					zap.Int64("prospect_id", candidates[i].ID),
				)
				return &candidates[i], nil
			}
		}
	}

	return nil, nil
}

// pickByHostname prefers exact hostname equality over containment.
// Candidates arrive ordered by creation time, which makes the fallback
// deterministic regardless of provider ordering.
func pickByHostname(candidates []Prospect, hostname string) *Prospect {
	for i := range candidates {
		if candidates[i].Hostname == hostname {
			return &candidates[i]
		}
	}
	if len(candidates) > 0 {
		return &candidates[0]
	}
	return nil
}
