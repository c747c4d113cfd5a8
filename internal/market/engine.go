package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Engine runs the trade-offer workflow over the game ledger and the offer
// store. Caller identity always arrives as an explicit argument; the engine
// keeps no per-user state.
//
// AcceptOffer is serialized by e.mu so the reassign/reassign/mark sequence
// never interleaves with another acceptance in this process. Across
// processes sharing a database, the MarkAccepted compare-and-set decides the
// race: the loser's swap is compensated back.
type Engine struct {
	ledger GameLedger
	offers OfferStore
	log    *slog.Logger
	mu     sync.Mutex
}

func NewEngine(ledger GameLedger, offers OfferStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{ledger: ledger, offers: offers, log: logger}
}

// ProposeOffer records a pending offer to trade a game the sender owns for a
// game owned by someone else. The receiver is the desired game's owner at
// proposal time and is never re-derived.
func (e *Engine) ProposeOffer(ctx context.Context, in ProposeOfferInput) (TradeOffer, error) {
	offered, err := e.ledger.Game(ctx, in.OfferedGameID)
	if err != nil {
		return TradeOffer{}, err
	}
	desired, err := e.ledger.Game(ctx, in.DesiredGameID)
	if err != nil {
		return TradeOffer{}, err
	}
	if offered.OwnerID != in.SenderID {
		return TradeOffer{}, fmt.Errorf("%w: sender does not own the offered game", ErrInvalidOffer)
	}
	if desired.OwnerID == in.SenderID {
		return TradeOffer{}, fmt.Errorf("%w: cannot trade for a game you already own", ErrInvalidOffer)
	}

	offer, err := e.offers.CreateOffer(ctx, in.SenderID, in.OfferedGameID, in.DesiredGameID, desired.OwnerID)
	if err != nil {
		return TradeOffer{}, err
	}
	e.log.Info("offer proposed",
		"trade_id", offer.TradeID,
		"sender_id", offer.SenderID,
		"receiver_id", offer.ReceiverID)
	return offer, nil
}

// AcceptOffer finalizes a pending offer: both games swap owners and the
// offer becomes accepted, terminally. Only the addressed receiver may
// accept.
func (e *Engine) AcceptOffer(ctx context.Context, accepterID, tradeID int64) (TradeOffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	offer, err := e.offers.Offer(ctx, tradeID)
	if err != nil {
		return TradeOffer{}, err
	}
	if offer.ReceiverID != accepterID {
		return TradeOffer{}, fmt.Errorf("%w: only the offer's receiver may accept", ErrUnauthorized)
	}
	if offer.Status != OfferPending {
		return TradeOffer{}, ErrInvalidState
	}

	// Re-check ownership under the lock. Either game may have been traded
	// away or delisted since the proposal.
	offered, err := e.ledger.Game(ctx, offer.OfferedGameID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TradeOffer{}, fmt.Errorf("%w: offered game is no longer listed", ErrInvalidOffer)
		}
		return TradeOffer{}, err
	}
	desired, err := e.ledger.Game(ctx, offer.DesiredGameID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TradeOffer{}, fmt.Errorf("%w: desired game is no longer listed", ErrInvalidOffer)
		}
		return TradeOffer{}, err
	}
	if offered.OwnerID != offer.SenderID || desired.OwnerID != offer.ReceiverID {
		return TradeOffer{}, fmt.Errorf("%w: ownership changed since the offer was made", ErrInvalidOffer)
	}

	if err := e.ledger.ReassignOwner(ctx, offer.OfferedGameID, offer.ReceiverID); err != nil {
		return TradeOffer{}, err
	}
	if err := e.ledger.ReassignOwner(ctx, offer.DesiredGameID, offer.SenderID); err != nil {
		e.compensate(ctx, offer.TradeID, offer.OfferedGameID, offer.SenderID)
		return TradeOffer{}, err
	}
	if err := e.offers.MarkAccepted(ctx, tradeID); err != nil {
		e.compensate(ctx, offer.TradeID, offer.OfferedGameID, offer.SenderID)
		e.compensate(ctx, offer.TradeID, offer.DesiredGameID, offer.ReceiverID)
		return TradeOffer{}, err
	}

	offer.Status = OfferAccepted
	e.log.Info("offer accepted",
		"trade_id", offer.TradeID,
		"sender_id", offer.SenderID,
		"receiver_id", offer.ReceiverID)
	return offer, nil
}

// Offer returns a single offer. Only the two parties may read it.
func (e *Engine) Offer(ctx context.Context, actorID, tradeID int64) (TradeOffer, error) {
	offer, err := e.offers.Offer(ctx, tradeID)
	if err != nil {
		return TradeOffer{}, err
	}
	if offer.SenderID != actorID && offer.ReceiverID != actorID {
		return TradeOffer{}, fmt.Errorf("%w: not a party to this trade", ErrUnauthorized)
	}
	return offer, nil
}

func (e *Engine) ReceivedOffers(ctx context.Context, userID int64) ([]TradeOffer, error) {
	return e.offers.ReceivedOffers(ctx, userID)
}

// compensate restores a game's owner after a partial acceptance failed. A
// failure here leaves the ledger inconsistent and is the one condition worth
// an operational incident.
func (e *Engine) compensate(ctx context.Context, tradeID, gameID, ownerID int64) {
	if err := e.ledger.ReassignOwner(ctx, gameID, ownerID); err != nil {
		e.log.Error("trade compensation failed",
			"trade_id", tradeID,
			"game_id", gameID,
			"owner_id", ownerID,
			"err", err)
	}
}
