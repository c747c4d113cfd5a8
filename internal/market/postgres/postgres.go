// Package postgres is the pgx-backed market.Store used in production.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"boardswap/internal/market"
)

type Store struct {
	db *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// EnsureSchema creates the tables on boot. The schema is small enough that
// idempotent DDL beats carrying a migration tool.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			address TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS games (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			owner_id BIGINT NOT NULL REFERENCES users (id),
			name TEXT NOT NULL,
			publisher TEXT NOT NULL,
			year_published INT NOT NULL,
			system TEXT NOT NULL,
			condition TEXT NOT NULL,
			previous_owners INT NOT NULL DEFAULT 0 CHECK (previous_owners >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS trade_offers (
			trade_id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			sender_id BIGINT NOT NULL,
			offered_game_id BIGINT NOT NULL,
			desired_game_id BIGINT NOT NULL,
			receiver_id BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS trade_offers_receiver_idx ON trade_offers (receiver_id);
		CREATE INDEX IF NOT EXISTS games_owner_idx ON games (owner_id);
	`)
	return err
}

func (s *Store) CreateUser(ctx context.Context, u market.User) (market.User, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, address)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
		RETURNING id
	`, u.Name, u.Email, u.PasswordHash, u.Address).Scan(&u.ID)
	if err == pgx.ErrNoRows {
		return market.User{}, market.ErrEmailTaken
	}
	if err != nil {
		return market.User{}, err
	}
	return u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (market.User, error) {
	var u market.User
	err := s.db.QueryRow(ctx, `
		SELECT id, name, email, password_hash, address
		FROM users
		WHERE email = $1
	`, email).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Address)
	if err == pgx.ErrNoRows {
		return market.User{}, market.ErrNotFound
	}
	return u, err
}

func (s *Store) UserByID(ctx context.Context, id int64) (market.User, error) {
	var u market.User
	err := s.db.QueryRow(ctx, `
		SELECT id, name, email, password_hash, address
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Address)
	if err == pgx.ErrNoRows {
		return market.User{}, market.ErrNotFound
	}
	return u, err
}

func (s *Store) UpdateProfile(ctx context.Context, id int64, name, passwordHash, address string) error {
	cmd, err := s.db.Exec(ctx, `
		UPDATE users
		SET name = $2, password_hash = $3, address = $4
		WHERE id = $1
	`, id, name, passwordHash, address)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return market.ErrNotFound
	}
	return nil
}

func (s *Store) CreateGame(ctx context.Context, g market.Game) (market.Game, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO games (owner_id, name, publisher, year_published, system, condition)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, previous_owners
	`, g.OwnerID, g.Name, g.Publisher, g.YearPublished, g.System, g.Condition).Scan(&g.ID, &g.PreviousOwners)
	if err != nil {
		return market.Game{}, err
	}
	return g, nil
}

func (s *Store) Game(ctx context.Context, id int64) (market.Game, error) {
	var g market.Game
	err := s.db.QueryRow(ctx, `
		SELECT id, owner_id, name, publisher, year_published, system, condition, previous_owners
		FROM games
		WHERE id = $1
	`, id).Scan(&g.ID, &g.OwnerID, &g.Name, &g.Publisher, &g.YearPublished, &g.System, &g.Condition, &g.PreviousOwners)
	if err == pgx.ErrNoRows {
		return market.Game{}, market.ErrNotFound
	}
	return g, err
}

func (s *Store) SearchGames(ctx context.Context, name string) ([]market.Game, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, owner_id, name, publisher, year_published, system, condition, previous_owners
		FROM games
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY id
	`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGames(rows)
}

func (s *Store) GamesByOwner(ctx context.Context, ownerID int64) ([]market.Game, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, owner_id, name, publisher, year_published, system, condition, previous_owners
		FROM games
		WHERE owner_id = $1
		ORDER BY id
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGames(rows)
}

func (s *Store) UpdateGameAttrs(ctx context.Context, id int64, attrs market.GameAttrs) error {
	cmd, err := s.db.Exec(ctx, `
		UPDATE games
		SET name = $2, publisher = $3, year_published = $4, system = $5, condition = $6
		WHERE id = $1
	`, id, attrs.Name, attrs.Publisher, attrs.YearPublished, attrs.System, attrs.Condition)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return market.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteGame(ctx context.Context, id int64) error {
	cmd, err := s.db.Exec(ctx, `DELETE FROM games WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return market.ErrNotFound
	}
	return nil
}

func (s *Store) ReassignOwner(ctx context.Context, gameID, newOwnerID int64) error {
	cmd, err := s.db.Exec(ctx, `
		UPDATE games
		SET owner_id = $2, previous_owners = previous_owners + 1
		WHERE id = $1
	`, gameID, newOwnerID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return market.ErrNotFound
	}
	return nil
}

func (s *Store) CreateOffer(ctx context.Context, senderID, offeredGameID, desiredGameID, receiverID int64) (market.TradeOffer, error) {
	offer := market.TradeOffer{
		SenderID:      senderID,
		OfferedGameID: offeredGameID,
		DesiredGameID: desiredGameID,
		ReceiverID:    receiverID,
		Status:        market.OfferPending,
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO trade_offers (sender_id, offered_game_id, desired_game_id, receiver_id, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING trade_id, created_at
	`, senderID, offeredGameID, desiredGameID, receiverID).Scan(&offer.TradeID, &offer.CreatedAt)
	if err != nil {
		return market.TradeOffer{}, err
	}
	return offer, nil
}

func (s *Store) Offer(ctx context.Context, tradeID int64) (market.TradeOffer, error) {
	var offer market.TradeOffer
	err := s.db.QueryRow(ctx, `
		SELECT trade_id, sender_id, offered_game_id, desired_game_id, receiver_id, status, created_at
		FROM trade_offers
		WHERE trade_id = $1
	`, tradeID).Scan(&offer.TradeID, &offer.SenderID, &offer.OfferedGameID, &offer.DesiredGameID,
		&offer.ReceiverID, &offer.Status, &offer.CreatedAt)
	if err == pgx.ErrNoRows {
		return market.TradeOffer{}, market.ErrNotFound
	}
	return offer, err
}

func (s *Store) ReceivedOffers(ctx context.Context, userID int64) ([]market.TradeOffer, error) {
	rows, err := s.db.Query(ctx, `
		SELECT trade_id, sender_id, offered_game_id, desired_game_id, receiver_id, status, created_at
		FROM trade_offers
		WHERE receiver_id = $1
		ORDER BY trade_id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]market.TradeOffer, 0)
	for rows.Next() {
		var offer market.TradeOffer
		if err := rows.Scan(&offer.TradeID, &offer.SenderID, &offer.OfferedGameID, &offer.DesiredGameID,
			&offer.ReceiverID, &offer.Status, &offer.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, offer)
	}
	return out, rows.Err()
}

// MarkAccepted is a compare-and-set on status so a concurrent acceptance in
// another process loses cleanly.
func (s *Store) MarkAccepted(ctx context.Context, tradeID int64) error {
	cmd, err := s.db.Exec(ctx, `
		UPDATE trade_offers
		SET status = 'accepted'
		WHERE trade_id = $1 AND status = 'pending'
	`, tradeID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}
	var status string
	err = s.db.QueryRow(ctx, `SELECT status FROM trade_offers WHERE trade_id = $1`, tradeID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return market.ErrNotFound
	}
	if err != nil {
		return err
	}
	return market.ErrInvalidState
}

func scanGames(rows pgx.Rows) ([]market.Game, error) {
	out := make([]market.Game, 0)
	for rows.Next() {
		var g market.Game
		if err := rows.Scan(&g.ID, &g.OwnerID, &g.Name, &g.Publisher, &g.YearPublished,
			&g.System, &g.Condition, &g.PreviousOwners); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
