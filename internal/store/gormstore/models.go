package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Session represents the sessions table.
type Session struct {
	SessionID  string         `gorm:"type:uuid;primaryKey"`
	Name       string         `gorm:"not null"`
	StakeCents int64          `gorm:"not null;check:stake_cents > 0"`
	OwnerID    string         `gorm:"not null;index"`
	Status     string         `gorm:"not null"`
	Settings   datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time      `gorm:"not null"`
	ArchivedAt *time.Time
}

func (Session) TableName() string { return "sessions" }

func (session *Session) BeforeCreate(tx *gorm.DB) error {
	if session.SessionID == "" {
		session.SessionID = uuid.NewString()
	}
	return nil
}

// Membership mirrors the memberships table.
type Membership struct {
	SessionID string    `gorm:"type:uuid;primaryKey"`
	PlayerID  string    `gorm:"primaryKey"`
	Creator   bool      `gorm:"not null"`
	JoinedAt  time.Time `gorm:"not null"`
}

func (Membership) TableName() string { return "memberships" }

// Game mirrors the games table. Sequence numbers are unique per session;
// gaps remain after a game is deleted.
type Game struct {
	GameID      string    `gorm:"type:uuid;primaryKey"`
	SessionID   string    `gorm:"type:uuid;not null;index:uniq_games_session_sequence,unique,priority:1"`
	SequenceNo  int64     `gorm:"not null;index:uniq_games_session_sequence,unique,priority:2"`
	Status      string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	CompletedAt *time.Time
}

func (Game) TableName() string { return "games" }

func (game *Game) BeforeCreate(tx *gorm.DB) error {
	if game.GameID == "" {
		game.GameID = uuid.NewString()
	}
	return nil
}

// Ranking mirrors the rankings table. Within one game both the player
// and the position column are unique.
type Ranking struct {
	RankingID string `gorm:"type:uuid;primaryKey"`
	GameID    string `gorm:"type:uuid;not null;index:uniq_rankings_game_player,unique,priority:1;index:uniq_rankings_game_position,unique,priority:1"`
	PlayerID  string `gorm:"not null;index:uniq_rankings_game_player,unique,priority:2"`
	Position  int    `gorm:"not null;check:position > 0;index:uniq_rankings_game_position,unique,priority:2"`
}

func (Ranking) TableName() string { return "rankings" }

func (ranking *Ranking) BeforeCreate(tx *gorm.DB) error {
	if ranking.RankingID == "" {
		ranking.RankingID = uuid.NewString()
	}
	return nil
}

// Confirmation mirrors the confirmations table.
type Confirmation struct {
	GameID    string    `gorm:"type:uuid;primaryKey"`
	PlayerID  string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Confirmation) TableName() string { return "confirmations" }

// DebtRecord mirrors the debt_records table. GameID is null for manual
// settlements recorded outside any game.
type DebtRecord struct {
	DebtID      string  `gorm:"type:uuid;primaryKey"`
	SessionID   string  `gorm:"type:uuid;not null;index"`
	GameID      *string `gorm:"type:uuid;index"`
	PayerID     string  `gorm:"not null;index"`
	PayeeID     string  `gorm:"not null;index"`
	AmountCents int64   `gorm:"not null;check:amount_cents > 0"`
	Paid        bool    `gorm:"not null"`
	PaidAt      *time.Time
	CreatedAt   time.Time `gorm:"not null"`
}

func (DebtRecord) TableName() string { return "debt_records" }

func (record *DebtRecord) BeforeCreate(tx *gorm.DB) error {
	if record.DebtID == "" {
		record.DebtID = uuid.NewString()
	}
	return nil
}

// Models lists every table for schema migration.
func Models() []any {
	return []any{&Session{}, &Membership{}, &Game{}, &Ranking{}, &Confirmation{}, &DebtRecord{}}
}
