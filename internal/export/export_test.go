package export

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/guildtrack/guildtrack/internal/models"
	"github.com/guildtrack/guildtrack/internal/store"
)

type memoryUploader struct {
	key  string
	data []byte
}

func (u *memoryUploader) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	b, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	u.key = key
	u.data = b
	return nil
}

func TestSnapshotRoundTrip(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	err := st.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.Create(ctx, &models.Member{UserID: 1, GuildID: 7, Username: "Alice", Discriminator: "0042", FirstSeen: now, LastSeen: now}); err != nil {
			return err
		}
		return tx.Create(ctx, &models.Member{UserID: 2, GuildID: 7, Username: models.PlaceholderUsername, Discriminator: models.PlaceholderDiscriminator, FirstSeen: now, LastSeen: now})
	})
	require.NoError(t, err)

	up := &memoryUploader{}
	key, err := Snapshot(context.Background(), st, up)
	require.NoError(t, err)
	require.Equal(t, key, up.key)
	require.True(t, strings.HasPrefix(key, "members/"))
	require.True(t, strings.HasSuffix(key, ".json.gz"))

	gz, err := gzip.NewReader(strings.NewReader(string(up.data)))
	require.NoError(t, err)
	var members []*models.Member
	require.NoError(t, json.NewDecoder(gz).Decode(&members))
	require.Len(t, members, 2)
}

func TestSnapshotEmptyStore(t *testing.T) {
	up := &memoryUploader{}
	key, err := Snapshot(context.Background(), store.NewMemoryStore(), up)
	require.NoError(t, err)
	require.NotEmpty(t, key)
	require.NotEmpty(t, up.data, "an empty store still produces a valid snapshot")
}
