package models

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

const (
	MinWinners = 1
	MaxWinners = 15

	MaxPrizeLength = 500

	MinDuration = 10 * time.Second
	MaxDuration = 7 * 24 * time.Hour
)

var (
	ErrInvalidWinnersCount = errors.New("winners count must be between 1 and 15")
	ErrPrizeTooLong        = errors.New("prize must be at most 500 characters")
)

// Status is the lifecycle state of a giveaway. Ending is the short window
// between the end decision and removal from the registry.
type Status int32

const (
	StatusActive Status = iota
	StatusEnding
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusEnding:
		return "ending"
	case StatusEnded:
		return "ended"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// Key identifies a giveaway by its announcement message.
type Key struct {
	ChannelID string
	MessageID string
}

func (k Key) String() string {
	return k.ChannelID + "/" + k.MessageID
}

// Giveaway is an active timed giveaway bound to an announcement message.
// EndTime, Prize and WinnerCount never change after construction.
type Giveaway struct {
	ChannelID   string
	MessageID   string
	EndTime     time.Time
	Prize       string // empty means no prize
	WinnerCount int

	status      atomic.Int32
	unreachable atomic.Bool
}

// New validates the fields and builds an Active giveaway. Line breaks in the
// prize are collapsed so the giveaway always fits on one snapshot line.
func New(channelID, messageID string, endTime time.Time, prize string, winnerCount int) (*Giveaway, error) {
	if channelID == "" || messageID == "" {
		return nil, errors.New("channel and message ids are required")
	}
	if winnerCount < MinWinners || winnerCount > MaxWinners {
		return nil, ErrInvalidWinnersCount
	}
	if utf8.RuneCountInString(prize) > MaxPrizeLength {
		return nil, ErrPrizeTooLong
	}
	return &Giveaway{
		ChannelID:   channelID,
		MessageID:   messageID,
		EndTime:     endTime,
		Prize:       SanitizePrize(prize),
		WinnerCount: winnerCount,
	}, nil
}

// SanitizePrize flattens a prize onto one trimmed line. A blank prize becomes
// the empty string.
func SanitizePrize(prize string) string {
	return strings.TrimSpace(strings.NewReplacer("\n", " ", "\r", "").Replace(prize))
}

func (g *Giveaway) Key() Key {
	return Key{ChannelID: g.ChannelID, MessageID: g.MessageID}
}

func (g *Giveaway) Status() Status {
	return Status(g.status.Load())
}

// BeginEnding moves an Active giveaway to Ending. Only the first caller wins.
func (g *Giveaway) BeginEnding() bool {
	return g.status.CompareAndSwap(int32(StatusActive), int32(StatusEnding))
}

// AbortEnding returns an Ending giveaway to Active so a later tick can end it.
func (g *Giveaway) AbortEnding() bool {
	return g.status.CompareAndSwap(int32(StatusEnding), int32(StatusActive))
}

func (g *Giveaway) MarkEnded() {
	g.status.Store(int32(StatusEnded))
}

// MarkUnreachable records that the announcement message is gone.
func (g *Giveaway) MarkUnreachable() {
	g.unreachable.Store(true)
}

func (g *Giveaway) Unreachable() bool {
	return g.unreachable.Load()
}

// Remaining is the time left until EndTime, never negative.
func (g *Giveaway) Remaining(now time.Time) time.Duration {
	if d := g.EndTime.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Record is the persisted form of a giveaway.
type Record struct {
	ChannelID   string
	MessageID   string
	EndTime     time.Time
	WinnerCount int
	Prize       string
}

func (g *Giveaway) Record() Record {
	return Record{
		ChannelID:   g.ChannelID,
		MessageID:   g.MessageID,
		EndTime:     g.EndTime,
		WinnerCount: g.WinnerCount,
		Prize:       g.Prize,
	}
}

// EndedGiveaway is what remains of a giveaway after its results were drawn.
type EndedGiveaway struct {
	ChannelID   string    `json:"channel_id"`
	MessageID   string    `json:"message_id"`
	EndTime     time.Time `json:"end_time"`
	WinnerCount int       `json:"winner_count"`
	Prize       string    `json:"prize,omitempty"`
	Winners     []string  `json:"winners"`
	EndedAt     time.Time `json:"ended_at"`
}

// GiveawayView is the JSON shape of an active giveaway.
type GiveawayView struct {
	ChannelID   string    `json:"channel_id"`
	MessageID   string    `json:"message_id"`
	EndTime     time.Time `json:"end_time"`
	WinnerCount int       `json:"winner_count"`
	Prize       string    `json:"prize,omitempty"`
	Status      string    `json:"status"`
}

func (g *Giveaway) View() GiveawayView {
	return GiveawayView{
		ChannelID:   g.ChannelID,
		MessageID:   g.MessageID,
		EndTime:     g.EndTime,
		WinnerCount: g.WinnerCount,
		Prize:       g.Prize,
		Status:      g.Status().String(),
	}
}
