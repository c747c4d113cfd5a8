package market

import "context"

// UserStore holds identity records. Created at registration, mutated by
// profile update, never deleted.
type UserStore interface {
	// CreateUser assigns the next user id. Fails with ErrEmailTaken when the
	// (normalized) email is already registered.
	CreateUser(ctx context.Context, u User) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id int64) (User, error)
	UpdateProfile(ctx context.Context, id int64, name, passwordHash, address string) error
}

// GameLedger is the authoritative record of which user owns which game.
type GameLedger interface {
	// CreateGame assigns the next game id and stores the record with
	// previous_owners zeroed.
	CreateGame(ctx context.Context, g Game) (Game, error)
	Game(ctx context.Context, id int64) (Game, error)
	// SearchGames matches the name case-insensitively as a substring; an
	// empty query returns every listing.
	SearchGames(ctx context.Context, name string) ([]Game, error)
	GamesByOwner(ctx context.Context, ownerID int64) ([]Game, error)
	UpdateGameAttrs(ctx context.Context, id int64, attrs GameAttrs) error
	DeleteGame(ctx context.Context, id int64) error
	// ReassignOwner atomically sets owner_id and bumps previous_owners. It
	// does not validate that the new owner exists; callers are trusted.
	ReassignOwner(ctx context.Context, gameID, newOwnerID int64) error
}

// OfferStore holds trade offers: append-only creation, reads, and a single
// terminal resolution.
type OfferStore interface {
	CreateOffer(ctx context.Context, senderID, offeredGameID, desiredGameID, receiverID int64) (TradeOffer, error)
	Offer(ctx context.Context, tradeID int64) (TradeOffer, error)
	ReceivedOffers(ctx context.Context, userID int64) ([]TradeOffer, error)
	// MarkAccepted flips pending to accepted as a compare-and-set: it fails
	// with ErrInvalidState when the offer is already resolved and with
	// ErrNotFound when it does not exist.
	MarkAccepted(ctx context.Context, tradeID int64) error
}

// Store is the full persistence surface backing the service and the trade
// engine.
type Store interface {
	UserStore
	GameLedger
	OfferStore
}
