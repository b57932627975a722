package prospect

import "context"

// Store defines persistence operations for prospects. Every method is atomic
// per prospect; ApplyPatch in particular performs its fill-if-empty check and
// write in a single statement so concurrent patches cannot clobber each other.
type Store interface {
	GetProspect(ctx context.Context, id int64) (*Prospect, error)
	FindByProviderID(ctx context.Context, providerID string) (*Prospect, error)
	FindByHostname(ctx context.Context, hostname string) ([]Prospect, error)
	FindByName(ctx context.Context, name string) ([]Prospect, error)
	ApplyPatch(ctx context.Context, prospectID int64, patch Patch) error
}
