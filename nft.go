package rover

import (
	"context"
	"sort"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"

	"github.com/openmargin/rover/core"
)

// AccountRegistry is an in-process core.AccountNFT: one token per credit
// account, keyed by a generated id. Deployments against a real NFT contract
// supply their own adapter instead.
type AccountRegistry struct {
	mu     sync.RWMutex
	owners map[string]string
	nextID string
}

func NewAccountRegistry() *AccountRegistry {
	return &AccountRegistry{
		owners: map[string]string{},
		nextID: uuid.Must(uuid.NewV4()).String(),
	}
}

func (r *AccountRegistry) OwnerOf(_ context.Context, accountID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[accountID]
	if !ok {
		return "", errors.Wrapf(core.ErrNoPositionMatch, "account %s", accountID)
	}
	return owner, nil
}

func (r *AccountRegistry) NextID(_ context.Context) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextID, nil
}

func (r *AccountRegistry) Mint(_ context.Context, owner string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.owners[id] = owner
	r.nextID = uuid.Must(uuid.NewV4()).String()
	return id, nil
}

func (r *AccountRegistry) Burn(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owners[accountID]; !ok {
		return errors.Wrapf(core.ErrNoPositionMatch, "account %s", accountID)
	}
	delete(r.owners, accountID)
	return nil
}

func (r *AccountRegistry) Tokens(_ context.Context, owner, startAfter string, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, o := range r.owners {
		if o != owner {
			continue
		}
		if startAfter != "" && id <= startAfter {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}
