package models

import "time"

// Placeholder values written to a member record when the directory did not
// supply the field at creation time. A later observation that carries the
// real value overwrites them; the reverse never happens.
const (
	PlaceholderUsername      = "unknown username"
	PlaceholderDiscriminator = "????"
)

// Identity is a user as reported by the remote directory at one point in
// time. The directory may omit fields it does not know: a nil Username or
// Nick and a zero Discriminator mean "unknown at this call", not "empty".
type Identity struct {
	ID            int64   `json:"id"`
	GuildID       *int64  `json:"guild_id,omitempty"`
	Username      *string `json:"username,omitempty"`
	Discriminator int     `json:"discriminator,omitempty"`
	Nick          *string `json:"nick,omitempty"`
}

// Scoped reports whether the identity was resolved within a guild.
func (i *Identity) Scoped() bool { return i.GuildID != nil }

// Guild is a directory collection handle.
type Guild struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Member is the locally persisted record of a user within a guild,
// uniquely keyed by (UserID, GuildID). FirstSeen is set once at creation;
// LastSeen advances on every reconciliation, so FirstSeen <= LastSeen.
type Member struct {
	UserID        int64     `bson:"userId" json:"user_id"`
	GuildID       int64     `bson:"guildId" json:"guild_id"`
	Username      string    `bson:"username" json:"username"`
	Discriminator string    `bson:"discriminator" json:"discriminator"`
	Nick          string    `bson:"nick,omitempty" json:"nick,omitempty"`
	FirstSeen     time.Time `bson:"firstSeen" json:"first_seen"`
	LastSeen      time.Time `bson:"lastSeen" json:"last_seen"`
}

// MemberPatch is a partial update against an existing member record.
// A nil field leaves the stored value untouched; LastSeen is always applied.
type MemberPatch struct {
	Username      *string
	Discriminator *string
	Nick          *string
	LastSeen      time.Time
}
