// Package model defines the data models for the game core.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Principal is an account with exactly one immutable role.
type Principal struct {
	ID          int64     `db:"id"`
	DisplayName string    `db:"display_name"`
	Role        Role      `db:"role"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Caller is an authenticated principal as resolved by the request layer.
type Caller struct {
	ID   int64
	Role Role
}

// CombatStats is the heart/attack pair held by combat roles.
type CombatStats struct {
	Heart       int `db:"heart"`
	AttackPower int `db:"attack_power"`
}

// Wallet holds a Muggle's money.
type Wallet struct {
	Money decimal.Decimal `db:"money"`
}

// Item is a tradable market item.
type Item struct {
	ID           int64           `db:"item_id"`
	Name         string          `db:"item_name"`
	CurrentPrice decimal.Decimal `db:"current_price"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

// Holding is an owner's quantity of an item with its average cost basis.
type Holding struct {
	OwnerID     int64           `db:"owner_id"`
	ItemID      int64           `db:"item_id"`
	Quantity    int             `db:"quantity"`
	AverageCost decimal.Decimal `db:"average_cost"`
}

// HoldingView is a holding joined with the item's live price.
type HoldingView struct {
	Holding
	ItemName     string
	CurrentPrice decimal.Decimal
}

// MarketValue returns the holding valued at the current price.
func (h HoldingView) MarketValue() decimal.Decimal {
	return h.CurrentPrice.Mul(decimal.NewFromInt(int64(h.Quantity)))
}

// UnrealizedGain returns market value minus cost basis.
func (h HoldingView) UnrealizedGain() decimal.Decimal {
	cost := h.AverageCost.Mul(decimal.NewFromInt(int64(h.Quantity)))
	return h.MarketValue().Sub(cost)
}

// TradeSide is the direction of a market trade.
type TradeSide string

const (
	TradeBuy  TradeSide = "buy"
	TradeSell TradeSide = "sell"
)

// Trade is an append-only market ledger entry.
type Trade struct {
	ID          uuid.UUID       `db:"id"`
	PrincipalID int64           `db:"principal_id"`
	ItemID      int64           `db:"item_id"`
	Side        TradeSide       `db:"side"`
	Quantity    int             `db:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	Total       decimal.Decimal `db:"total"`
	CreatedAt   time.Time       `db:"created_at"`
}

// Receipt is returned by a successful buy or sell.
type Receipt struct {
	TradeID     uuid.UUID
	ItemID      int64
	Side        TradeSide
	Quantity    int
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
	MoneyAfter  decimal.Decimal
	HoldingLeft int
	AverageCost decimal.Decimal
}

// PriceQuote is one row of the public price board.
type PriceQuote struct {
	ItemID int64
	Name   string
	Price  decimal.Decimal
}

// Magic is a spell created by a professor.
type Magic struct {
	ID        int64     `db:"magic_id"`
	Name      string    `db:"magic_name"`
	Power     int       `db:"power"`
	CreatorID int64     `db:"creator_id"`
	CreatedAt time.Time `db:"created_at"`
}

// MagicListing is a magic offered in the magic shop.
type MagicListing struct {
	Magic
	Price       decimal.Decimal `db:"price"`
	CreatorName string
}

// Course is a capacity-gated class opened for a magic.
type Course struct {
	ID                int64 `db:"course_id"`
	InstructorID      int64 `db:"instructor_id"`
	Capacity          int   `db:"capacity"`
	CurrentEnrollment int   `db:"current_enrollment"`
	IsOpen            bool  `db:"is_open"`
}

// CourseView is a course joined with its magic and instructor.
type CourseView struct {
	Course
	MagicName      string
	Power          int
	InstructorName string
}

// Submission is a student's work for a course. Score is set at most once.
type Submission struct {
	CourseID    int64     `db:"course_id"`
	StudentID   int64     `db:"student_id"`
	Content     string    `db:"content"`
	Score       *int      `db:"score"`
	SubmittedAt time.Time `db:"submitted_at"`
}

// Graded reports whether a score has been assigned.
func (s *Submission) Graded() bool {
	return s.Score != nil
}

// BoardEntry is a submission row shown on a course board.
type BoardEntry struct {
	CourseID    int64
	MagicName   string
	StudentName string
	Content     string
	Score       *int
}

// Outcome is the result of a battle from the challenger's side.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
	OutcomeTie  Outcome = "tie"
)

// MatchResult is an append-only battle log entry.
type MatchResult struct {
	ID           uuid.UUID `db:"match_id"`
	ChallengerID int64     `db:"challenger_id"`
	OpponentID   int64     `db:"opponent_id"`
	Outcome      Outcome   `db:"outcome"`
	MatchTime    time.Time `db:"match_time"`
}

// GameKind identifies a villain minigame.
type GameKind string

const (
	GameRPS      GameKind = "rps"
	GameBaseball GameKind = "baseball"
	GameQuiz     GameKind = "quiz"
)

// GameAttempt is an append-only record of a concluded minigame.
type GameAttempt struct {
	ID          uuid.UUID `db:"attempt_id"`
	Game        GameKind  `db:"game"`
	VillainID   int64     `db:"villain_id"`
	Won         bool      `db:"won"`
	AttemptedAt time.Time `db:"attempted_at"`
}

// GameHistory aggregates a villain's attempts for one game.
type GameHistory struct {
	Game          GameKind
	TotalAttempts int
	Wins          int
	LastAttempt   time.Time
}

// RankEntry is one row of the attack-power standings.
type RankEntry struct {
	PrincipalID int64
	DisplayName string
	Role        Role
	AttackPower int
	Heart       int
}

// Opponent is a principal a caller may battle.
type Opponent struct {
	PrincipalID int64
	DisplayName string
	Role        Role
}

// BattleReport is the outcome of a resolved battle with both sides' stats after it.
type BattleReport struct {
	Match    MatchResult
	Attacker CombatStats
	Defender CombatStats
}

// GradeResult is returned when a submission is scored.
type GradeResult struct {
	CourseID    int64
	StudentID   int64
	Score       int
	Letter      string
	AttackGain  int
	AttackPower int
}

// CreatedMagic is a new magic with the course and listing opened for it.
type CreatedMagic struct {
	Magic  Magic
	Course Course
	Price  decimal.Decimal
}

// MagicPurchase is returned when a Muggle buys a magic.
type MagicPurchase struct {
	MagicID int64
	Price   decimal.Decimal
	Power   int
	Stats   CombatStats
	Wallet  Wallet
}

// ResearchResult is the outcome of a professor's research attempt. NameLength
// is the required magic name length on success.
type ResearchResult struct {
	Success    bool
	NameLength int
}

// MinigameOutcome is the result of one minigame move. Attempt is set once the
// game has concluded.
type MinigameOutcome struct {
	Game        GameKind
	Concluded   bool
	Won         bool
	Reward      int
	AttackPower int
	Description string
	Details     map[string]any
	Attempt     *GameAttempt
}
