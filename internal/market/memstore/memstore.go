// Package memstore is a map-backed market.Store. It serves the test suite
// and the `memory` store driver for local development; ids come from atomic
// increment-and-fetch counters so concurrent creation never collides.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"boardswap/internal/market"
)

type Store struct {
	mu     sync.RWMutex
	users  map[int64]market.User
	emails map[string]int64
	games  map[int64]market.Game
	offers map[int64]market.TradeOffer

	userSeq  atomic.Int64
	gameSeq  atomic.Int64
	tradeSeq atomic.Int64
}

func New() *Store {
	return &Store{
		users:  make(map[int64]market.User),
		emails: make(map[string]int64),
		games:  make(map[int64]market.Game),
		offers: make(map[int64]market.TradeOffer),
	}
}

func (s *Store) CreateUser(_ context.Context, u market.User) (market.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.emails[u.Email]; taken {
		return market.User{}, market.ErrEmailTaken
	}
	u.ID = s.userSeq.Add(1)
	s.users[u.ID] = u
	s.emails[u.Email] = u.ID
	return u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (market.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return market.User{}, market.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) UserByID(_ context.Context, id int64) (market.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return market.User{}, market.ErrNotFound
	}
	return u, nil
}

func (s *Store) UpdateProfile(_ context.Context, id int64, name, passwordHash, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return market.ErrNotFound
	}
	u.Name = name
	u.PasswordHash = passwordHash
	u.Address = address
	s.users[id] = u
	return nil
}

func (s *Store) CreateGame(_ context.Context, g market.Game) (market.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.gameSeq.Add(1)
	g.PreviousOwners = 0
	s.games[g.ID] = g
	return g, nil
}

func (s *Store) Game(_ context.Context, id int64) (market.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[id]
	if !ok {
		return market.Game{}, market.ErrNotFound
	}
	return g, nil
}

func (s *Store) SearchGames(_ context.Context, name string) ([]market.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(name)
	out := make([]market.Game, 0)
	for _, g := range s.games {
		if needle == "" || strings.Contains(strings.ToLower(g.Name), needle) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GamesByOwner(_ context.Context, ownerID int64) ([]market.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]market.Game, 0)
	for _, g := range s.games {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateGameAttrs(_ context.Context, id int64, attrs market.GameAttrs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return market.ErrNotFound
	}
	g.Name = attrs.Name
	g.Publisher = attrs.Publisher
	g.YearPublished = attrs.YearPublished
	g.System = attrs.System
	g.Condition = attrs.Condition
	s.games[id] = g
	return nil
}

func (s *Store) DeleteGame(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		return market.ErrNotFound
	}
	delete(s.games, id)
	return nil
}

func (s *Store) ReassignOwner(_ context.Context, gameID, newOwnerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[gameID]
	if !ok {
		return market.ErrNotFound
	}
	g.OwnerID = newOwnerID
	g.PreviousOwners++
	s.games[gameID] = g
	return nil
}

func (s *Store) CreateOffer(_ context.Context, senderID, offeredGameID, desiredGameID, receiverID int64) (market.TradeOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	offer := market.TradeOffer{
		TradeID:       s.tradeSeq.Add(1),
		SenderID:      senderID,
		OfferedGameID: offeredGameID,
		DesiredGameID: desiredGameID,
		ReceiverID:    receiverID,
		Status:        market.OfferPending,
		CreatedAt:     time.Now().UTC(),
	}
	s.offers[offer.TradeID] = offer
	return offer, nil
}

func (s *Store) Offer(_ context.Context, tradeID int64) (market.TradeOffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	offer, ok := s.offers[tradeID]
	if !ok {
		return market.TradeOffer{}, market.ErrNotFound
	}
	return offer, nil
}

func (s *Store) ReceivedOffers(_ context.Context, userID int64) ([]market.TradeOffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]market.TradeOffer, 0)
	for _, offer := range s.offers {
		if offer.ReceiverID == userID {
			out = append(out, offer)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TradeID < out[j].TradeID })
	return out, nil
}

func (s *Store) MarkAccepted(_ context.Context, tradeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	offer, ok := s.offers[tradeID]
	if !ok {
		return market.ErrNotFound
	}
	if offer.Status != market.OfferPending {
		return market.ErrInvalidState
	}
	offer.Status = market.OfferAccepted
	s.offers[tradeID] = offer
	return nil
}
