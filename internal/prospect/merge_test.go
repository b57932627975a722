package prospect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/lead-intel/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestComputePatch_FillsOnlyEmptySlots(t *testing.T) {
	t.Parallel()

	p := &Prospect{Email: "existing@acme.com"}
	patch := ComputePatch(p, map[string]any{
		"email": "info@acme.com",
		"phone": "+1 555 0100",
	}, model.KindContactScrape)

	assert.Equal(t, model.KindContactScrape, patch.Source)
	assert.NotContains(t, patch.Fields, "email")
	assert.Equal(t, "+1 555 0100", patch.Fields["phone"])
}

func TestComputePatch_SkipsUnmappedAndEmptyValues(t *testing.T) {
	t.Parallel()

	p := &Prospect{}
	patch := ComputePatch(p, map[string]any{
		"email":        "",
		"phone":        "   ",
		"pagesCrawled": 12,
		"cms":          "WordPress",
	}, model.KindTechStack)

	require.Len(t, patch.Fields, 1)
	assert.Equal(t, "WordPress", patch.Fields["cms"])
}

func TestComputePatch_EmptyPatchStillCarriesSource(t *testing.T) {
	t.Parallel()

	p := &Prospect{Email: "a@b.com"}
	patch := ComputePatch(p, map[string]any{"email": "c@d.com"}, model.KindContactScrape)

	assert.Empty(t, patch.Fields)
	assert.Equal(t, model.KindContactScrape, patch.Source)
}

func TestApply_Idempotent(t *testing.T) {
	t.Parallel()

	p := &Prospect{}
	patch := Patch{
		Fields: map[string]string{"email": "info@acme.com"},
		Source: model.KindContactScrape,
	}

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	Apply(p, patch, now)

	assert.Equal(t, "info@acme.com", p.Email)
	assert.Equal(t, []string{"contact-scrape"}, p.EnrichmentSources)
	require.NotNil(t, p.EnrichedAt)
	assert.Equal(t, now, *p.EnrichedAt)

	// A second application only moves the timestamp.
	later := now.Add(time.Hour)
	Apply(p, patch, later)

	assert.Equal(t, "info@acme.com", p.Email)
	assert.Equal(t, []string{"contact-scrape"}, p.EnrichmentSources)
	assert.Equal(t, later, *p.EnrichedAt)
}

func TestApply_DoesNotOverwrite(t *testing.T) {
	t.Parallel()

	p := &Prospect{Email: "existing@acme.com"}
	Apply(p, Patch{
		Fields: map[string]string{"email": "new@acme.com"},
		Source: model.KindContactScrape,
	}, time.Now())

	assert.Equal(t, "existing@acme.com", p.Email)
	assert.Contains(t, p.EnrichmentSources, "contact-scrape")
}

func TestFieldKeys_Sorted(t *testing.T) {
	t.Parallel()

	patch := Patch{Fields: map[string]string{
		"phone":   "x",
		"address": "y",
		"email":   "z",
	}}
	assert.Equal(t, []string{"address", "email", "phone"}, patch.FieldKeys())
}

func TestToString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", " info@acme.com ", "info@acme.com"},
		{"string slice", []string{"", "a@b.com", "c@d.com"}, "a@b.com"},
		{"any slice", []any{"", "x@y.com"}, "x@y.com"},
		{"nested any slice", []any{[]any{"deep@x.com"}}, "deep@x.com"},
		{"number", 42, ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, toString(tt.in))
		})
	}
}
