package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"boardswap/internal/market"
)

func TestCreateUserAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	s := New()

	const n = 50
	var wg sync.WaitGroup
	ids := make([]int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := s.CreateUser(ctx, market.User{
				Name:  "u",
				Email: fmt.Sprintf("u%d@example.com", i),
			})
			if err != nil {
				t.Errorf("create user %d: %v", i, err)
				return
			}
			ids[i] = u.ID
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool, n)
	for _, id := range ids {
		if id == 0 {
			t.Fatalf("user id not assigned")
		}
		if seen[id] {
			t.Fatalf("duplicate user id %d", id)
		}
		seen[id] = true
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.CreateUser(ctx, market.User{Name: "a", Email: "a@b.com"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := s.CreateUser(ctx, market.User{Name: "b", Email: "a@b.com"}); !errors.Is(err, market.ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestReassignOwnerBumpsPreviousOwners(t *testing.T) {
	ctx := context.Background()
	s := New()

	g, err := s.CreateGame(ctx, market.Game{OwnerID: 1, Name: "Catan", Publisher: "Kosmos", YearPublished: 1995, System: "standalone", Condition: "good"})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	if err := s.ReassignOwner(ctx, g.ID, 2); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if err := s.ReassignOwner(ctx, g.ID, 3); err != nil {
		t.Fatalf("reassign: %v", err)
	}

	got, err := s.Game(ctx, g.ID)
	if err != nil {
		t.Fatalf("load game: %v", err)
	}
	if got.OwnerID != 3 {
		t.Fatalf("owner = %d, want 3", got.OwnerID)
	}
	if got.PreviousOwners != 2 {
		t.Fatalf("previous_owners = %d, want 2", got.PreviousOwners)
	}

	if err := s.ReassignOwner(ctx, 9999, 1); !errors.Is(err, market.ErrNotFound) {
		t.Fatalf("missing game err = %v, want ErrNotFound", err)
	}
}

func TestMarkAcceptedIsTerminal(t *testing.T) {
	ctx := context.Background()
	s := New()

	offer, err := s.CreateOffer(ctx, 1, 10, 20, 2)
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if offer.Status != market.OfferPending {
		t.Fatalf("status = %q, want pending", offer.Status)
	}
	if offer.CreatedAt.IsZero() {
		t.Fatalf("created_at not set")
	}

	if err := s.MarkAccepted(ctx, offer.TradeID); err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if err := s.MarkAccepted(ctx, offer.TradeID); !errors.Is(err, market.ErrInvalidState) {
		t.Fatalf("second mark err = %v, want ErrInvalidState", err)
	}
	if err := s.MarkAccepted(ctx, 9999); !errors.Is(err, market.ErrNotFound) {
		t.Fatalf("missing offer err = %v, want ErrNotFound", err)
	}
}

func TestMarkAcceptedConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := New()

	offer, err := s.CreateOffer(ctx, 1, 10, 20, 2)
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.MarkAccepted(ctx, offer.TradeID)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("mark accepted succeeded %d times, want exactly 1", wins)
	}
}

func TestReceivedOffersFilters(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.CreateOffer(ctx, 1, 10, 20, 2); err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if _, err := s.CreateOffer(ctx, 3, 30, 40, 2); err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if _, err := s.CreateOffer(ctx, 2, 20, 10, 1); err != nil {
		t.Fatalf("create offer: %v", err)
	}

	got, err := s.ReceivedOffers(ctx, 2)
	if err != nil {
		t.Fatalf("received: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("inbox size = %d, want 2", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].TradeID >= got[i].TradeID {
			t.Fatalf("inbox not ordered by trade id: %d before %d", got[i-1].TradeID, got[i].TradeID)
		}
	}
	for _, o := range got {
		if o.ReceiverID != 2 {
			t.Fatalf("offer %d addressed to %d leaked into inbox", o.TradeID, o.ReceiverID)
		}
	}
}

func TestSearchGames(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, n := range []string{"Gloomhaven", "Frosthaven", "Azul"} {
		if _, err := s.CreateGame(ctx, market.Game{OwnerID: 1, Name: n, Publisher: "p", YearPublished: 2020, System: "standalone", Condition: "good"}); err != nil {
			t.Fatalf("create %s: %v", n, err)
		}
	}

	all, err := s.SearchGames(ctx, "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("empty query = %d games, want 3", len(all))
	}
	haven, err := s.SearchGames(ctx, "haven")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(haven) != 2 {
		t.Fatalf("haven query = %d games, want 2", len(haven))
	}
}
