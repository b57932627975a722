package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/lead-intel/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestNormalize_DirectoryLookup(t *testing.T) {
	t.Parallel()

	rows := Normalize(model.KindDirectoryLookup, []map[string]any{
		{
			"placeId": "place-1",
			"title":   "Acme Plumbing",
			"website": "https://acme.com",
			"phone":   "+1 555 0100",
			"address": "1 Main St",
		},
	})

	require.Len(t, rows, 1)
	assert.Equal(t, "place-1", rows[0].NativeID)
	assert.Equal(t, "https://acme.com", rows[0].URL)
	assert.Equal(t, "Acme Plumbing", rows[0].Name)
	assert.Equal(t, "+1 555 0100", rows[0].Fields["phone"])
	assert.Equal(t, "1 Main St", rows[0].Fields["address"])
}

func TestNormalize_ContactScrape(t *testing.T) {
	t.Parallel()

	rows := Normalize(model.KindContactScrape, []map[string]any{
		{
			"url":    "https://acme.com",
			"emails": []any{"info@acme.com", "sales@acme.com"},
			"phones": []any{"+1 555 0100"},
		},
	})

	require.Len(t, rows, 1)
	assert.Equal(t, "https://acme.com", rows[0].URL)
	assert.Equal(t, []any{"info@acme.com", "sales@acme.com"}, rows[0].Fields["email"])
}

func TestNormalize_SocialNestedMap(t *testing.T) {
	t.Parallel()

	rows := Normalize(model.KindSocialProfileLookup, []map[string]any{
		{
			"url": "https://acme.com",
			"socials": map[string]any{
				"facebook": "https://facebook.com/acme",
				"linkedin": "https://linkedin.com/company/acme",
			},
		},
	})

	require.Len(t, rows, 1)
	assert.Equal(t, "https://facebook.com/acme", rows[0].Fields["facebook"])
	assert.Equal(t, "https://linkedin.com/company/acme", rows[0].Fields["linkedin"])
}

func TestNormalize_TechStack(t *testing.T) {
	t.Parallel()

	rows := Normalize(model.KindTechStack, []map[string]any{
		{"url": "https://acme.com", "cms": "WordPress"},
		{"url": "https://other.com", "platform": "Shopify"},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, "WordPress", rows[0].Fields["cms"])
	assert.Equal(t, "Shopify", rows[1].Fields["cms"])
}

func TestNormalize_DropsUnidentifiableItems(t *testing.T) {
	t.Parallel()

	rows := Normalize(model.KindContactScrape, []map[string]any{
		{"emails": []any{"orphan@nowhere.com"}},
		{"url": "https://acme.com"},
	})

	require.Len(t, rows, 1)
	assert.Equal(t, "https://acme.com", rows[0].URL)
}
