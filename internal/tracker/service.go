package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guildtrack/guildtrack/internal/models"
	"github.com/guildtrack/guildtrack/internal/store"
	"github.com/guildtrack/guildtrack/pkg/logger"
	"github.com/guildtrack/guildtrack/pkg/metrics"
)

// Directory is the remote, authoritative source of identities. Lookups that
// find nothing return (nil, nil); transport failures return an error.
type Directory interface {
	User(ctx context.Context, userID int64) (*models.Identity, error)
	Guild(ctx context.Context, guildID int64) (*models.Guild, error)
	Member(ctx context.Context, guildID, userID int64) (*models.Identity, error)
}

// Service resolves identities against the directory and reconciles every
// guild-scoped observation into the local member store.
type Service struct {
	dir   Directory
	store store.Store
	now   func() time.Time
}

// NewService wires the tracker. Both collaborators are required.
func NewService(dir Directory, st store.Store) (*Service, error) {
	if dir == nil {
		return nil, errors.New("tracker: directory client is required")
	}
	if st == nil {
		return nil, errors.New("tracker: store is required")
	}
	return &Service{dir: dir, store: st, now: time.Now}, nil
}

// GetIdentity resolves a user, scoped to a guild when guildID is non-nil and
// globally otherwise. A guild-scoped resolution is also recorded in the
// local store before it is returned; resolution is not a read-only
// operation. Returns ErrNotFound when the directory has no such user.
func (s *Service) GetIdentity(ctx context.Context, userID int64, guildID *int64) (*models.Identity, error) {
	if guildID != nil {
		return s.GetGuildIdentity(ctx, *guildID, userID)
	}
	id, err := s.dir.User(ctx, userID)
	if err != nil {
		metrics.Resolutions.WithLabelValues("global", "error").Inc()
		return nil, fmt.Errorf("directory user %d: %w", userID, err)
	}
	if id == nil {
		metrics.Resolutions.WithLabelValues("global", "miss").Inc()
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	// A globally resolved identity may still carry guild scope (the
	// directory answers with member data when it has it); those are
	// tracked like any other guild observation.
	if id.Scoped() {
		if err := s.Track(ctx, id); err != nil {
			return nil, err
		}
	}
	metrics.Resolutions.WithLabelValues("global", "hit").Inc()
	return id, nil
}

// GetGuildIdentity resolves a user within a guild: the guild must exist and
// the user must be a member of it, otherwise ErrNotFound. Every successful
// resolution is recorded in the local store before it is returned.
func (s *Service) GetGuildIdentity(ctx context.Context, guildID, userID int64) (*models.Identity, error) {
	g, err := s.dir.Guild(ctx, guildID)
	if err != nil {
		metrics.Resolutions.WithLabelValues("guild", "error").Inc()
		return nil, fmt.Errorf("directory guild %d: %w", guildID, err)
	}
	if g == nil {
		metrics.Resolutions.WithLabelValues("guild", "miss").Inc()
		return nil, fmt.Errorf("guild %d: %w", guildID, ErrNotFound)
	}
	id, err := s.dir.Member(ctx, guildID, userID)
	if err != nil {
		metrics.Resolutions.WithLabelValues("guild", "error").Inc()
		return nil, fmt.Errorf("directory member %d in guild %d: %w", userID, guildID, err)
	}
	if id == nil {
		metrics.Resolutions.WithLabelValues("guild", "miss").Inc()
		return nil, fmt.Errorf("member %d in guild %d: %w", userID, guildID, ErrNotFound)
	}
	if id.GuildID == nil {
		id.GuildID = &guildID
	}
	if err := s.Track(ctx, id); err != nil {
		return nil, err
	}
	metrics.Resolutions.WithLabelValues("guild", "hit").Inc()
	return id, nil
}

// Track merges the observed identity into the local member record, creating
// it on first sight. The whole merge runs in one store transaction: a field
// the directory did not supply never clobbers a stored value, the nickname
// is only touched when username and discriminator are both concrete in the
// same observation, and LastSeen advances unconditionally.
func (s *Service) Track(ctx context.Context, id *models.Identity) error {
	if id == nil {
		return errors.New("tracker: nil identity")
	}
	var guildID int64
	if id.GuildID != nil {
		guildID = *id.GuildID
	}
	now := s.now().UTC()
	created := false

	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		patch := models.MemberPatch{LastSeen: now}
		if id.Username != nil {
			patch.Username = id.Username
		}
		if id.Discriminator != 0 {
			d := formatDiscriminator(id.Discriminator)
			patch.Discriminator = &d
		}
		if patch.Username != nil && patch.Discriminator != nil && id.Nick != nil {
			patch.Nick = id.Nick
		}

		found, err := tx.TryUpdate(ctx, id.ID, guildID, patch)
		if err != nil {
			return fmt.Errorf("update member: %w", err)
		}
		if found {
			return nil
		}

		m := &models.Member{
			UserID:        id.ID,
			GuildID:       guildID,
			Username:      models.PlaceholderUsername,
			Discriminator: models.PlaceholderDiscriminator,
			FirstSeen:     now,
			LastSeen:      now,
		}
		if id.Username != nil {
			m.Username = *id.Username
		}
		if id.Discriminator != 0 {
			m.Discriminator = formatDiscriminator(id.Discriminator)
		}
		if id.Nick != nil {
			m.Nick = *id.Nick
		}
		if err := tx.Create(ctx, m); err != nil {
			return fmt.Errorf("create member: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		metrics.Reconciliations.WithLabelValues("error").Inc()
		return fmt.Errorf("track user %d in guild %d: %w", id.ID, guildID, err)
	}
	if created {
		metrics.Reconciliations.WithLabelValues("created").Inc()
		logger.Debugf("tracked new member user=%d guild=%d", id.ID, guildID)
	} else {
		metrics.Reconciliations.WithLabelValues("updated").Inc()
	}
	return nil
}

// formatDiscriminator renders the numeric discriminator the way the
// directory displays it, zero-padded to four digits.
func formatDiscriminator(d int) string {
	return fmt.Sprintf("%04d", d)
}
