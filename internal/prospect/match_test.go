package prospect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-intel/internal/model"
)

// fakeStore serves canned prospects keyed by identifier.
type fakeStore struct {
	byProviderID map[string]*Prospect
	byHostname   map[string][]Prospect
	byName       map[string][]Prospect
	patches      []int64
}

func (f *fakeStore) GetProspect(_ context.Context, id int64) (*Prospect, error) {
	return nil, nil
}

func (f *fakeStore) FindByProviderID(_ context.Context, providerID string) (*Prospect, error) {
	return f.byProviderID[providerID], nil
}

func (f *fakeStore) FindByHostname(_ context.Context, hostname string) ([]Prospect, error) {
	return f.byHostname[hostname], nil
}

func (f *fakeStore) FindByName(_ context.Context, name string) ([]Prospect, error) {
	return f.byName[name], nil
}

func (f *fakeStore) ApplyPatch(_ context.Context, prospectID int64, _ Patch) error {
	f.patches = append(f.patches, prospectID)
	return nil
}

func TestMatch_NativeIDBeatsHostname(t *testing.T) {
	t.Parallel()

	st := &fakeStore{
		byProviderID: map[string]*Prospect{"place-1": {ID: 1}},
		byHostname:   map[string][]Prospect{"acme.com": {{ID: 2, Hostname: "acme.com"}}},
	}
	m := NewMatcher(st)

	p, err := m.Match(context.Background(), model.ResultRow{
		NativeID: "place-1",
		URL:      "https://acme.com",
	})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(1), p.ID)
}

func TestMatch_ExactHostnameBeatsSubstring(t *testing.T) {
	t.Parallel()

	st := &fakeStore{
		byHostname: map[string][]Prospect{"acme.com": {
			{ID: 10, Hostname: "shop.acme.com"},
			{ID: 11, Hostname: "acme.com"},
		}},
	}
	m := NewMatcher(st)

	p, err := m.Match(context.Background(), model.ResultRow{URL: "https://www.acme.com/contact"})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(11), p.ID)
}

func TestMatch_SubstringTieGoesToOldest(t *testing.T) {
	t.Parallel()

	// Candidates arrive ordered by created_at; the first wins when no exact
	// hostname match exists.
	st := &fakeStore{
		byHostname: map[string][]Prospect{"acme.com": {
			{ID: 20, Hostname: "shop.acme.com"},
			{ID: 21, Hostname: "blog.acme.com"},
		}},
	}
	m := NewMatcher(st)

	p, err := m.Match(context.Background(), model.ResultRow{URL: "acme.com"})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(20), p.ID)
}

func TestMatch_NameFallbackCaseInsensitive(t *testing.T) {
	t.Parallel()

	st := &fakeStore{
		byName: map[string][]Prospect{"ACME Plumbing": {
			{ID: 30, Name: "Acme Plumbing"},
		}},
	}
	m := NewMatcher(st)

	p, err := m.Match(context.Background(), model.ResultRow{Name: "ACME Plumbing"})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(30), p.ID)
}

func TestMatch_NoMatchIsNotAnError(t *testing.T) {
	t.Parallel()

	m := NewMatcher(&fakeStore{})

	p, err := m.Match(context.Background(), model.ResultRow{
		NativeID: "unknown",
		URL:      "https://nowhere.example",
		Name:     "Nobody",
	})
	require.NoError(t, err)
	assert.Nil(t, p)
}
