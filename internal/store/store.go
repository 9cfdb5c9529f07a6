package store

import (
	"context"
	"errors"

	"github.com/guildtrack/guildtrack/internal/models"
)

var (
	// ErrDuplicateKey is returned by Create when a record with the same
	// (userID, guildID) key already exists.
	ErrDuplicateKey = errors.New("member record already exists")
)

// Tx exposes the write primitives available inside a single transaction.
type Tx interface {
	// TryUpdate applies the patch to the record keyed by (userID, guildID)
	// if one exists and reports whether a record was found. Nil patch
	// fields leave the stored value untouched; LastSeen is always written.
	TryUpdate(ctx context.Context, userID, guildID int64, patch models.MemberPatch) (bool, error)
	// Create inserts a new member record.
	Create(ctx context.Context, m *models.Member) error
}

// Store provides persistence for member records. Implementations must
// guarantee that TryUpdate and Create issued inside the same InTx call do
// not race with concurrent writers to the same key (at-least
// read-committed isolation plus a unique key on (userID, guildID)).
type Store interface {
	// InTx runs fn inside a transaction. Any error returned by fn aborts
	// the transaction and is propagated unchanged.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// Get returns the record for (userID, guildID), or (nil, nil) when no
	// record exists.
	Get(ctx context.Context, userID, guildID int64) (*models.Member, error)
	// List returns all member records.
	List(ctx context.Context) ([]*models.Member, error)
}
