package wa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
)

var ErrGroupNotFound = errors.New("group not found")

// GroupLister is the slice of the session the cache needs.
type GroupLister interface {
	JoinedGroups(ctx context.Context) ([]*types.GroupInfo, error)
}

// GroupCache maps a normalized group display name to its JID. It lives for
// the whole process and is only rebuilt when empty or explicitly refreshed,
// so a newly created group stays invisible until the next Invalidate or
// restart. That staleness window is a deliberate trade against hammering the
// group-list API.
type GroupCache struct {
	lister GroupLister
	log    *zap.Logger

	mu     sync.RWMutex
	byName map[string]string
}

func NewGroupCache(lister GroupLister, log *zap.Logger) *GroupCache {
	return &GroupCache{
		lister: lister,
		log:    log,
		byName: make(map[string]string),
	}
}

// Resolve looks a display name up, rebuilding the cache first when it is
// empty. A miss after that is ErrGroupNotFound.
func (g *GroupCache) Resolve(ctx context.Context, name string) (string, error) {
	key := normalizeSubject(name)

	g.mu.RLock()
	size := len(g.byName)
	jid, ok := g.byName[key]
	g.mu.RUnlock()

	if size == 0 {
		if err := g.Refresh(ctx); err != nil {
			return "", err
		}
		g.mu.RLock()
		jid, ok = g.byName[key]
		g.mu.RUnlock()
	}

	if !ok {
		return "", fmt.Errorf("group %q: %w", name, ErrGroupNotFound)
	}
	return jid, nil
}

// Refresh rebuilds the map from the network's full participating-group list.
// Duplicate subjects collapse last-wins; the collision is logged so the
// ambiguity is at least visible.
func (g *GroupCache) Refresh(ctx context.Context) error {
	var groups []*types.GroupInfo

	op := func() error {
		var err error
		groups, err = g.lister.JoinedGroups(ctx)
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("list joined groups: %w", err)
	}

	byName := make(map[string]string, len(groups))
	for _, grp := range groups {
		key := normalizeSubject(grp.Name)
		if key == "" {
			continue
		}
		if _, dup := byName[key]; dup {
			g.log.Warn("duplicate group subject, last one wins",
				zap.String("subject", grp.Name))
		}
		byName[key] = grp.JID.String()
	}

	g.mu.Lock()
	g.byName = byName
	g.mu.Unlock()

	g.log.Info("group directory refreshed", zap.Int("groups", len(byName)))
	return nil
}

// Invalidate empties the cache; the next Resolve rebuilds it.
func (g *GroupCache) Invalidate() {
	g.mu.Lock()
	g.byName = make(map[string]string)
	g.mu.Unlock()
}

func normalizeSubject(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
