package export

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/guildtrack/guildtrack/internal/store"
	"github.com/guildtrack/guildtrack/pkg/logger"
)

// Uploader is the slice of object storage the exporter needs.
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
}

// Snapshot serializes all member records as gzipped JSON and uploads them
// under members/<timestamp>.json.gz. Returns the object key.
func Snapshot(ctx context.Context, st store.Store, up Uploader) (string, error) {
	members, err := st.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list members: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(members); err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("compress snapshot: %w", err)
	}

	key := fmt.Sprintf("members/%s.json.gz", time.Now().UTC().Format("20060102T150405"))
	if err := up.Upload(ctx, key, &buf, int64(buf.Len()), "application/gzip"); err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}
	logger.Infof("exported %d member records to %s", len(members), key)
	return key, nil
}
