package market_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"boardswap/internal/market"
	"boardswap/internal/market/memstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type tradeWorld struct {
	store  *memstore.Store
	engine *market.Engine
	alice  market.User
	bob    market.User
	g1     market.Game // alice's
	g2     market.Game // bob's
	g3     market.Game // bob's, never traded
}

func newTradeWorld(t *testing.T) *tradeWorld {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()

	alice, err := store.CreateUser(ctx, market.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := store.CreateUser(ctx, market.User{Name: "Bob", Email: "bob@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}

	g1, err := store.CreateGame(ctx, market.Game{OwnerID: alice.ID, Name: "Catan", Publisher: "Kosmos", YearPublished: 1995, System: "standalone", Condition: "good"})
	if err != nil {
		t.Fatalf("create g1: %v", err)
	}
	g2, err := store.CreateGame(ctx, market.Game{OwnerID: bob.ID, Name: "Azul", Publisher: "NSG", YearPublished: 2017, System: "standalone", Condition: "mint"})
	if err != nil {
		t.Fatalf("create g2: %v", err)
	}
	g3, err := store.CreateGame(ctx, market.Game{OwnerID: bob.ID, Name: "Root", Publisher: "Leder", YearPublished: 2018, System: "standalone", Condition: "fair"})
	if err != nil {
		t.Fatalf("create g3: %v", err)
	}

	return &tradeWorld{
		store:  store,
		engine: market.NewEngine(store, store, testLogger()),
		alice:  alice,
		bob:    bob,
		g1:     g1,
		g2:     g2,
		g3:     g3,
	}
}

func TestProposeAndAccept(t *testing.T) {
	ctx := context.Background()
	w := newTradeWorld(t)

	offer, err := w.engine.ProposeOffer(ctx, market.ProposeOfferInput{
		SenderID:      w.alice.ID,
		OfferedGameID: w.g1.ID,
		DesiredGameID: w.g2.ID,
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if offer.ReceiverID != w.bob.ID {
		t.Fatalf("receiver = %d, want %d", offer.ReceiverID, w.bob.ID)
	}
	if offer.Status != market.OfferPending {
		t.Fatalf("status = %q, want pending", offer.Status)
	}

	accepted, err := w.engine.AcceptOffer(ctx, w.bob.ID, offer.TradeID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != market.OfferAccepted {
		t.Fatalf("status = %q, want accepted", accepted.Status)
	}

	g1, err := w.store.Game(ctx, w.g1.ID)
	if err != nil {
		t.Fatalf("load g1: %v", err)
	}
	g2, err := w.store.Game(ctx, w.g2.ID)
	if err != nil {
		t.Fatalf("load g2: %v", err)
	}
	g3, err := w.store.Game(ctx, w.g3.ID)
	if err != nil {
		t.Fatalf("load g3: %v", err)
	}
	if g1.OwnerID != w.bob.ID {
		t.Fatalf("g1 owner = %d, want %d", g1.OwnerID, w.bob.ID)
	}
	if g2.OwnerID != w.alice.ID {
		t.Fatalf("g2 owner = %d, want %d", g2.OwnerID, w.alice.ID)
	}
	if g3.OwnerID != w.bob.ID {
		t.Fatalf("g3 owner moved to %d, should be untouched", g3.OwnerID)
	}
	if g1.PreviousOwners != w.g1.PreviousOwners+1 {
		t.Fatalf("g1 previous_owners = %d, want %d", g1.PreviousOwners, w.g1.PreviousOwners+1)
	}
	if g2.PreviousOwners != w.g2.PreviousOwners+1 {
		t.Fatalf("g2 previous_owners = %d, want %d", g2.PreviousOwners, w.g2.PreviousOwners+1)
	}
}

func TestProposeRejectsUnownedOffer(t *testing.T) {
	ctx := context.Background()
	w := newTradeWorld(t)

	_, err := w.engine.ProposeOffer(ctx, market.ProposeOfferInput{
		SenderID:      w.alice.ID,
		OfferedGameID: w.g2.ID, // bob's game
		DesiredGameID: w.g1.ID,
	})
	if !errors.Is(err, market.ErrInvalidOffer) {
		t.Fatalf("err = %v, want ErrInvalidOffer", err)
	}
}

func TestProposeRejectsOwnDesiredGame(t *testing.T) {
	ctx := context.Background()
	w := newTradeWorld(t)

	_, err := w.engine.ProposeOffer(ctx, market.ProposeOfferInput{
		SenderID:      w.bob.ID,
		OfferedGameID: w.g2.ID,
		DesiredGameID: w.g3.ID, // also bob's
	})
	if !errors.Is(err, market.ErrInvalidOffer) {
		t.Fatalf("err = %v, want ErrInvalidOffer", err)
	}
}

func TestProposeMissingGame(t *testing.T) {
	ctx := context.Background()
	w := newTradeWorld(t)

	_, err := w.engine.ProposeOffer(ctx, market.ProposeOfferInput{
		SenderID:      w.alice.ID,
		OfferedGameID: w.g1.ID,
		DesiredGameID: 9999,
	})
	if !errors.Is(err, market.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAcceptOnlyByReceiver(t *testing.T) {
	ctx := context.Background()
	w := newTradeWorld(t)

	offer, err := w.engine.ProposeOffer(ctx, market.ProposeOfferInput{
		SenderID:      w.alice.ID,
		OfferedGameID: w.g1.ID,
		DesiredGameID: w.g2.ID,
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	if _, err := w.engine.AcceptOffer(ctx, w.alice.ID, offer.TradeID); !errors.Is(err, market.ErrUnauthorized) {
		t.Fatalf("sender accept err = %v, want ErrUnauthorized", err)
	}

	g1, _ := w.store.Game(ctx, w.g1.ID)
	if g1.OwnerID != w.alice.ID {
		t.Fatalf("g1 owner changed after rejected accept")
	}
}

func TestAcceptTwice(t *testing.T) {
	ctx := context.Background()
	w := newTradeWorld(t)

	offer, err := w.engine.ProposeOffer(ctx, market.ProposeOfferInput{
		SenderID:      w.alice.ID,
		OfferedGameID: w.g1.ID,
		DesiredGameID: w.g2.ID,
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := w.engine.AcceptOffer(ctx, w.bob.ID, offer.TradeID); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if _, err := w.engine.AcceptOffer(ctx, w.bob.ID, offer.TradeID); !errors.Is(err, market.ErrInvalidState) {
		t.Fatalf("second accept err = %v, want ErrInvalidState", err)
	}

	// The failed second accept must not have moved anything back.
	g1, _ := w.store.Game(ctx, w.g1.ID)
	if g1.OwnerID != w.bob.ID {
		t.Fatalf("g1 owner = %d after repeat accept, want %d", g1.OwnerID, w.bob.ID)
	}
}

func TestAcceptStaleOffer(t *testing.T) {
	ctx := context.Background()
	w := newTradeWorld(t)

	offer, err := w.engine.ProposeOffer(ctx, market.ProposeOfferInput{
		SenderID:      w.alice.ID,
		OfferedGameID: w.g1.ID,
		DesiredGameID: w.g2.ID,
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	// Alice trades g1 away through another channel before Bob accepts.
	if err := w.store.ReassignOwner(ctx, w.g1.ID, w.bob.ID); err != nil {
		t.Fatalf("reassign: %v", err)
	}

	if _, err := w.engine.AcceptOffer(ctx, w.bob.ID, offer.TradeID); !errors.Is(err, market.ErrInvalidOffer) {
		t.Fatalf("stale accept err = %v, want ErrInvalidOffer", err)
	}
}

func TestAcceptDelistedGame(t *testing.T) {
	ctx := context.Background()
	w := newTradeWorld(t)

	offer, err := w.engine.ProposeOffer(ctx, market.ProposeOfferInput{
		SenderID:      w.alice.ID,
		OfferedGameID: w.g1.ID,
		DesiredGameID: w.g2.ID,
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := w.store.DeleteGame(ctx, w.g2.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := w.engine.AcceptOffer(ctx, w.bob.ID, offer.TradeID); !errors.Is(err, market.ErrInvalidOffer) {
		t.Fatalf("accept err = %v, want ErrInvalidOffer", err)
	}
}

func TestConcurrentAcceptsSingleWinner(t *testing.T) {
	ctx := context.Background()
	w := newTradeWorld(t)

	offer, err := w.engine.ProposeOffer(ctx, market.ProposeOfferInput{
		SenderID:      w.alice.ID,
		OfferedGameID: w.g1.ID,
		DesiredGameID: w.g2.ID,
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = w.engine.AcceptOffer(ctx, w.bob.ID, offer.TradeID)
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, market.ErrInvalidState):
		default:
			t.Fatalf("worker %d: unexpected err %v", i, err)
		}
	}
	if wins != 1 {
		t.Fatalf("accept succeeded %d times, want exactly 1", wins)
	}

	g1, _ := w.store.Game(ctx, w.g1.ID)
	g2, _ := w.store.Game(ctx, w.g2.ID)
	if g1.OwnerID != w.bob.ID || g2.OwnerID != w.alice.ID {
		t.Fatalf("owners after concurrent accept: g1=%d g2=%d", g1.OwnerID, g2.OwnerID)
	}
}

func TestOfferVisibility(t *testing.T) {
	ctx := context.Background()
	w := newTradeWorld(t)

	carol, err := w.store.CreateUser(ctx, market.User{Name: "Carol", Email: "carol@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create carol: %v", err)
	}

	offer, err := w.engine.ProposeOffer(ctx, market.ProposeOfferInput{
		SenderID:      w.alice.ID,
		OfferedGameID: w.g1.ID,
		DesiredGameID: w.g2.ID,
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	if _, err := w.engine.Offer(ctx, w.alice.ID, offer.TradeID); err != nil {
		t.Fatalf("sender read: %v", err)
	}
	if _, err := w.engine.Offer(ctx, w.bob.ID, offer.TradeID); err != nil {
		t.Fatalf("receiver read: %v", err)
	}
	if _, err := w.engine.Offer(ctx, carol.ID, offer.TradeID); !errors.Is(err, market.ErrUnauthorized) {
		t.Fatalf("third-party read err = %v, want ErrUnauthorized", err)
	}
}

func TestReceivedOffersOnlyForReceiver(t *testing.T) {
	ctx := context.Background()
	w := newTradeWorld(t)

	if _, err := w.engine.ProposeOffer(ctx, market.ProposeOfferInput{
		SenderID:      w.alice.ID,
		OfferedGameID: w.g1.ID,
		DesiredGameID: w.g2.ID,
	}); err != nil {
		t.Fatalf("propose: %v", err)
	}

	got, err := w.engine.ReceivedOffers(ctx, w.bob.ID)
	if err != nil {
		t.Fatalf("received: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("bob inbox size = %d, want 1", len(got))
	}
	none, err := w.engine.ReceivedOffers(ctx, w.alice.ID)
	if err != nil {
		t.Fatalf("received: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("alice inbox size = %d, want 0", len(none))
	}
}

type stuckOfferStore struct {
	*memstore.Store
}

func (s *stuckOfferStore) MarkAccepted(context.Context, int64) error {
	return fmt.Errorf("offer row update failed")
}

func TestAcceptRollsBackOnPartialFailure(t *testing.T) {
	ctx := context.Background()
	w := newTradeWorld(t)

	engine := market.NewEngine(w.store, &stuckOfferStore{Store: w.store}, testLogger())
	offer, err := engine.ProposeOffer(ctx, market.ProposeOfferInput{
		SenderID:      w.alice.ID,
		OfferedGameID: w.g1.ID,
		DesiredGameID: w.g2.ID,
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	if _, err := engine.AcceptOffer(ctx, w.bob.ID, offer.TradeID); err == nil {
		t.Fatalf("accept succeeded despite offer store failure")
	}

	g1, _ := w.store.Game(ctx, w.g1.ID)
	g2, _ := w.store.Game(ctx, w.g2.ID)
	if g1.OwnerID != w.alice.ID {
		t.Fatalf("g1 owner = %d after rollback, want %d", g1.OwnerID, w.alice.ID)
	}
	if g2.OwnerID != w.bob.ID {
		t.Fatalf("g2 owner = %d after rollback, want %d", g2.OwnerID, w.bob.ID)
	}
	stored, err := w.store.Offer(ctx, offer.TradeID)
	if err != nil {
		t.Fatalf("load offer: %v", err)
	}
	if stored.Status != market.OfferPending {
		t.Fatalf("offer status = %q after rollback, want pending", stored.Status)
	}
}
