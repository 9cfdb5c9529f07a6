package directory

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/guildtrack/guildtrack/internal/models"
)

type countingClient struct {
	user   *models.Identity
	guild  *models.Guild
	member *models.Identity

	userCalls   int
	guildCalls  int
	memberCalls int
}

func (c *countingClient) User(ctx context.Context, userID int64) (*models.Identity, error) {
	c.userCalls++
	return c.user, nil
}

func (c *countingClient) Guild(ctx context.Context, guildID int64) (*models.Guild, error) {
	c.guildCalls++
	return c.guild, nil
}

func (c *countingClient) Member(ctx context.Context, guildID, userID int64) (*models.Identity, error) {
	c.memberCalls++
	return c.member, nil
}

func newCacheFixture(t *testing.T, inner Client, ttl time.Duration) (*mr.Miniredis, *CachedClient) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	return m, NewCachedClient(inner, rc, "test:dir:", ttl)
}

func TestCachedClientServesHitsFromRedis(t *testing.T) {
	name := "Alice"
	inner := &countingClient{user: &models.Identity{ID: 42, Username: &name, Discriminator: 42}}
	_, c := newCacheFixture(t, inner, time.Minute)
	ctx := context.Background()

	first, err := c.User(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := c.User(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, second)
	require.Equal(t, *first.Username, *second.Username)
	require.Equal(t, 1, inner.userCalls, "second lookup must come from the cache")
}

func TestCachedClientDoesNotCacheMisses(t *testing.T) {
	inner := &countingClient{}
	_, c := newCacheFixture(t, inner, time.Minute)
	ctx := context.Background()

	got, err := c.Guild(ctx, 7)
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = c.Guild(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 2, inner.guildCalls, "a miss must be re-asked of the upstream")
}

func TestCachedClientTTLExpiry(t *testing.T) {
	inner := &countingClient{guild: &models.Guild{ID: 7, Name: "testers"}}
	m, c := newCacheFixture(t, inner, time.Second)
	ctx := context.Background()

	_, err := c.Guild(ctx, 7)
	require.NoError(t, err)
	_, err = c.Guild(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 1, inner.guildCalls)

	m.FastForward(2 * time.Second)

	_, err = c.Guild(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 2, inner.guildCalls, "expired entry must go back to the upstream")
}

func TestCachedClientMemberRoundTrip(t *testing.T) {
	name, nick := "Alice", "Al"
	gid := int64(7)
	inner := &countingClient{member: &models.Identity{ID: 42, GuildID: &gid, Username: &name, Discriminator: 42, Nick: &nick}}
	_, c := newCacheFixture(t, inner, time.Minute)
	ctx := context.Background()

	_, err := c.Member(ctx, 7, 42)
	require.NoError(t, err)

	got, err := c.Member(ctx, 7, 42)
	require.NoError(t, err)
	require.Equal(t, 1, inner.memberCalls)
	require.NotNil(t, got.GuildID)
	require.Equal(t, int64(7), *got.GuildID)
	require.Equal(t, "Al", *got.Nick)
}
