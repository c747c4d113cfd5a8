package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Service covers the account and listing operations around the trade core:
// registration, login checks, profile updates, and owner-gated game CRUD.
type Service struct {
	store Store
	log   *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, log: logger}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	if in.Name == "" {
		return User{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := ValidateEmail(in.Email); err != nil {
		return User{}, err
	}
	if len(in.Password) < 8 {
		return User{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	if in.Address == "" {
		return User{}, fmt.Errorf("%w: address is required", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.store.CreateUser(ctx, User{
		Name:         in.Name,
		Email:        NormalizeEmail(in.Email),
		PasswordHash: string(hash),
		Address:      in.Address,
	})
	if err != nil {
		return User{}, err
	}
	s.log.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and returns the user record. Unknown emails and
// wrong passwords fail identically so the response does not reveal which
// accounts exist.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	user, err := s.store.UserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, in UpdateProfileInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	if in.Name == "" || in.Address == "" {
		return fmt.Errorf("%w: name and address are required", ErrInvalidInput)
	}
	if len(in.Password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.UpdateProfile(ctx, in.UserID, in.Name, string(hash), in.Address)
}

func (s *Service) AddGame(ctx context.Context, in AddGameInput) (Game, error) {
	attrs := GameAttrs{
		Name:          strings.TrimSpace(in.Name),
		Publisher:     strings.TrimSpace(in.Publisher),
		YearPublished: in.YearPublished,
		System:        strings.TrimSpace(in.System),
		Condition:     strings.TrimSpace(in.Condition),
	}
	if err := validateGameAttrs(attrs); err != nil {
		return Game{}, err
	}
	return s.store.CreateGame(ctx, Game{
		OwnerID:       in.OwnerID,
		Name:          attrs.Name,
		Publisher:     attrs.Publisher,
		YearPublished: attrs.YearPublished,
		System:        attrs.System,
		Condition:     attrs.Condition,
	})
}

func (s *Service) Game(ctx context.Context, id int64) (Game, error) {
	return s.store.Game(ctx, id)
}

func (s *Service) SearchGames(ctx context.Context, name string) ([]Game, error) {
	return s.store.SearchGames(ctx, strings.TrimSpace(name))
}

func (s *Service) GamesByOwner(ctx context.Context, ownerID int64) ([]Game, error) {
	return s.store.GamesByOwner(ctx, ownerID)
}

// UpdateGame replaces the listing attributes. Only the current owner may
// update, and owner_id is not reachable from here.
func (s *Service) UpdateGame(ctx context.Context, in UpdateGameInput) error {
	game, err := s.store.Game(ctx, in.GameID)
	if err != nil {
		return err
	}
	if game.OwnerID != in.ActorID {
		return fmt.Errorf("%w: only the owner may update a listing", ErrUnauthorized)
	}
	attrs := GameAttrs{
		Name:          strings.TrimSpace(in.Name),
		Publisher:     strings.TrimSpace(in.Publisher),
		YearPublished: in.YearPublished,
		System:        strings.TrimSpace(in.System),
		Condition:     strings.TrimSpace(in.Condition),
	}
	if err := validateGameAttrs(attrs); err != nil {
		return err
	}
	return s.store.UpdateGameAttrs(ctx, in.GameID, attrs)
}

func (s *Service) DeleteGame(ctx context.Context, actorID, gameID int64) error {
	game, err := s.store.Game(ctx, gameID)
	if err != nil {
		return err
	}
	if game.OwnerID != actorID {
		return fmt.Errorf("%w: only the owner may delete a listing", ErrUnauthorized)
	}
	return s.store.DeleteGame(ctx, gameID)
}
