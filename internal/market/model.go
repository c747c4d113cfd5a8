package market

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidOffer       = errors.New("invalid offer")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidState       = errors.New("offer already resolved")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type User struct {
	ID           int64  `json:"user_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Address      string `json:"address"`
}

type Game struct {
	ID             int64  `json:"id"`
	OwnerID        int64  `json:"owner_id"`
	Name           string `json:"name"`
	Publisher      string `json:"publisher"`
	YearPublished  int    `json:"year_published"`
	System         string `json:"system"`
	Condition      string `json:"condition"`
	PreviousOwners int    `json:"previous_owners"`
}

// GameAttrs carries the owner-mutable listing fields. Ownership is not
// among them: owner_id only ever moves through GameLedger.ReassignOwner.
type GameAttrs struct {
	Name          string
	Publisher     string
	YearPublished int
	System        string
	Condition     string
}

type TradeOffer struct {
	TradeID       int64       `json:"trade_id"`
	SenderID      int64       `json:"sender_id"`
	OfferedGameID int64       `json:"offered_game_id"`
	DesiredGameID int64       `json:"desired_game_id"`
	ReceiverID    int64       `json:"receiver_id"`
	Status        OfferStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
}

var emailRE = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	if !emailRE.MatchString(NormalizeEmail(email)) {
		return fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	return nil
}

func validateGameAttrs(a GameAttrs) error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: game name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(a.Publisher) == "" {
		return fmt.Errorf("%w: publisher is required", ErrInvalidInput)
	}
	if a.YearPublished <= 0 {
		return fmt.Errorf("%w: year published must be > 0", ErrInvalidInput)
	}
	if strings.TrimSpace(a.System) == "" {
		return fmt.Errorf("%w: system is required", ErrInvalidInput)
	}
	if strings.TrimSpace(a.Condition) == "" {
		return fmt.Errorf("%w: condition is required", ErrInvalidInput)
	}
	return nil
}
