package wa

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
)

type fakeLister struct {
	groups []*types.GroupInfo
	calls  int
}

func (f *fakeLister) JoinedGroups(ctx context.Context) ([]*types.GroupInfo, error) {
	f.calls++
	return f.groups, nil
}

func group(id, subject string) *types.GroupInfo {
	return &types.GroupInfo{
		JID:       types.NewJID(id, types.GroupServer),
		GroupName: types.GroupName{Name: subject},
	}
}

func TestResolveFillsEmptyCacheOnce(t *testing.T) {
	lister := &fakeLister{groups: []*types.GroupInfo{
		group("111", "Kelas 10 IPA 1"),
		group("222", "Kelas 11 IPS 2"),
	}}
	cache := NewGroupCache(lister, zap.NewNop())

	jid, err := cache.Resolve(context.Background(), "Kelas 10 IPA 1")
	require.NoError(t, err)
	assert.Equal(t, "111@g.us", jid)
	assert.Equal(t, 1, lister.calls)

	jid, err = cache.Resolve(context.Background(), "Kelas 11 IPS 2")
	require.NoError(t, err)
	assert.Equal(t, "222@g.us", jid)
	assert.Equal(t, 1, lister.calls, "warm cache must not refetch")
}

func TestResolveNormalizesSubject(t *testing.T) {
	lister := &fakeLister{groups: []*types.GroupInfo{
		group("111", "  Kelas 10 IPA 1 "),
	}}
	cache := NewGroupCache(lister, zap.NewNop())

	jid, err := cache.Resolve(context.Background(), "kelas 10 ipa 1")
	require.NoError(t, err)
	assert.Equal(t, "111@g.us", jid)
}

func TestResolveMissAfterRefresh(t *testing.T) {
	lister := &fakeLister{groups: []*types.GroupInfo{
		group("111", "Kelas 10 IPA 1"),
	}}
	cache := NewGroupCache(lister, zap.NewNop())

	_, err := cache.Resolve(context.Background(), "NonexistentGroup")
	require.ErrorIs(t, err, ErrGroupNotFound)
	assert.Contains(t, err.Error(), "NonexistentGroup")
}

func TestDuplicateSubjectLastWins(t *testing.T) {
	lister := &fakeLister{groups: []*types.GroupInfo{
		group("111", "Kelas 10 IPA 1"),
		group("222", "Kelas 10 IPA 1"),
	}}
	cache := NewGroupCache(lister, zap.NewNop())

	jid, err := cache.Resolve(context.Background(), "Kelas 10 IPA 1")
	require.NoError(t, err)
	assert.Equal(t, "222@g.us", jid)
}

func TestNewGroupInvisibleUntilInvalidate(t *testing.T) {
	lister := &fakeLister{groups: []*types.GroupInfo{
		group("111", "Kelas 10 IPA 1"),
	}}
	cache := NewGroupCache(lister, zap.NewNop())

	_, err := cache.Resolve(context.Background(), "Kelas 10 IPA 1")
	require.NoError(t, err)

	// Group created after the cache was filled.
	lister.groups = append(lister.groups, group("333", "Kelas Baru"))

	_, err = cache.Resolve(context.Background(), "Kelas Baru")
	require.ErrorIs(t, err, ErrGroupNotFound)

	cache.Invalidate()

	jid, err := cache.Resolve(context.Background(), "Kelas Baru")
	require.NoError(t, err)
	assert.Equal(t, "333@g.us", jid)
}
