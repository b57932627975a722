package prospect

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-intel/internal/db"
)

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// provider_id is nullable in the schema (the partial unique index treats NULL
// as absent), so reads coalesce it into the record's plain string field.
const prospectColumns = `id, COALESCE(provider_id, '') AS provider_id, name, website, hostname,
	email, phone, address, facebook, instagram, linkedin, twitter, cms,
	decision_maker_name, decision_maker_email, decision_maker_phone,
	enrichment_sources, enriched_at, created_at, updated_at`

func prospectDests(p *Prospect) []any {
	return []any{
		&p.ID, &p.ProviderID, &p.Name, &p.Website, &p.Hostname,
		&p.Email, &p.Phone, &p.Address, &p.Facebook, &p.Instagram, &p.LinkedIn, &p.Twitter, &p.CMS,
		&p.DecisionMakerName, &p.DecisionMakerEmail, &p.DecisionMakerPhone,
		&p.EnrichmentSources, &p.EnrichedAt, &p.CreatedAt, &p.UpdatedAt,
	}
}

// patchColumns maps canonical field keys to their prospects columns. Keys
// outside this map never reach ApplyPatch SQL.
var patchColumns = map[string]string{
	FieldEmail:              "email",
	FieldPhone:              "phone",
	FieldAddress:            "address",
	FieldFacebook:           "facebook",
	FieldInstagram:          "instagram",
	FieldLinkedIn:           "linkedin",
	FieldTwitter:            "twitter",
	FieldCMS:                "cms",
	FieldDecisionMakerName:  "decision_maker_name",
	FieldDecisionMakerEmail: "decision_maker_email",
	FieldDecisionMakerPhone: "decision_maker_phone",
}

// GetProspect fetches a prospect by ID. Returns nil, nil when absent.
func (s *PostgresStore) GetProspect(ctx context.Context, id int64) (*Prospect, error) {
	p := &Prospect{}
	err := s.pool.QueryRow(ctx, `SELECT `+prospectColumns+` FROM prospects WHERE id = $1`, id).
		Scan(prospectDests(p)...)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "prospect: get %d", id)
	}
	return p, nil
}

// FindByProviderID fetches a prospect by its provider-native identifier.
func (s *PostgresStore) FindByProviderID(ctx context.Context, providerID string) (*Prospect, error) {
	p := &Prospect{}
	err := s.pool.QueryRow(ctx, `SELECT `+prospectColumns+` FROM prospects WHERE provider_id = $1`, providerID).
		Scan(prospectDests(p)...)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "prospect: get by provider id %s", providerID)
	}
	return p, nil
}

// FindByHostname returns prospects whose stored hostname equals or contains
// the given normalized hostname, oldest first.
func (s *PostgresStore) FindByHostname(ctx context.Context, hostname string) ([]Prospect, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+prospectColumns+`
		FROM prospects
		WHERE hostname <> '' AND (hostname = $1 OR position($1 in hostname) > 0)
		ORDER BY created_at ASC
		LIMIT 10`, hostname)
	if err != nil {
		return nil, eris.Wrapf(err, "prospect: find by hostname %s", hostname)
	}
	defer rows.Close()
	return scanProspects(rows)
}

// FindByName returns prospects matching the display name case-insensitively,
// oldest first.
func (s *PostgresStore) FindByName(ctx context.Context, name string) ([]Prospect, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+prospectColumns+`
		FROM prospects
		WHERE lower(name) = lower($1)
		ORDER BY created_at ASC
		LIMIT 10`, name)
	if err != nil {
		return nil, eris.Wrapf(err, "prospect: find by name %s", name)
	}
	defer rows.Close()
	return scanProspects(rows)
}

// ApplyPatch fills empty slots and records provenance in one UPDATE. The
// per-column CASE guard re-checks emptiness inside the statement, so two
// concurrent patches against the same prospect cannot both win a slot.
func (s *PostgresStore) ApplyPatch(ctx context.Context, prospectID int64, patch Patch) error {
	sets := make([]string, 0, len(patch.Fields)+3)
	args := []any{prospectID, string(patch.Source)}
	argIdx := 3

	for _, key := range patch.FieldKeys() {
		col, ok := patchColumns[key]
		if !ok {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = CASE WHEN %s = '' THEN $%d ELSE %s END", col, col, argIdx, col))
		args = append(args, patch.Fields[key])
		argIdx++
	}

	sets = append(sets,
		`enrichment_sources = CASE WHEN $2 = ANY(enrichment_sources) THEN enrichment_sources ELSE array_append(enrichment_sources, $2) END`,
		`enriched_at = now()`,
		`updated_at = now()`,
	)

	query := `UPDATE prospects SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "prospect: apply patch %d", prospectID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("prospect not found: %d", prospectID)
	}
	return nil
}

func scanProspects(rows pgx.Rows) ([]Prospect, error) {
	var out []Prospect
	for rows.Next() {
		var p Prospect
		if err := rows.Scan(prospectDests(&p)...); err != nil {
			return nil, eris.Wrap(err, "prospect: scan")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

var _ Store = (*PostgresStore)(nil)
