package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"boardswap/internal/auth"
	"boardswap/internal/config"
	"boardswap/internal/market"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const userContextKey contextKey = "user"

type UserContext struct {
	UserID int64
	Name   string
}

type Server struct {
	cfg    config.APIConfig
	log    *slog.Logger
	tokens *auth.Tokens
	market *market.Service
	trades *market.Engine
	mux    *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, tokens *auth.Tokens, marketSvc *market.Service, engine *market.Engine) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		log:    logger,
		tokens: tokens,
		market: marketSvc,
		trades: engine,
		mux:    chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Patch("/me", s.handleUpdateProfile)

			r.Get("/games", s.handleGamesSearch)
			r.Post("/games", s.handleGameCreate)
			r.Get("/games/{id}", s.handleGameDetail)
			r.Patch("/games/{id}", s.handleGameUpdate)
			r.Delete("/games/{id}", s.handleGameDelete)

			r.Post("/trades", s.handleProposeOffer)
			r.Get("/trades/received", s.handleReceivedOffers)
			r.Get("/trades/{id}", s.handleOfferDetail)
			r.Post("/trades/{id}/accept", s.handleAcceptOffer)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		identity, err := s.tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, UserContext{
			UserID: identity.UserID,
			Name:   identity.Name,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (UserContext, error) {
	user, ok := ctx.Value(userContextKey).(UserContext)
	if !ok || user.UserID == 0 {
		return UserContext{}, errors.New("missing auth context")
	}
	return user, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Address  string `json:"address"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := s.market.Register(r.Context(), market.RegisterInput{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Address:  in.Address,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := s.market.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	token, err := s.tokens.Mint(user.ID, user.Name)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(s.tokens.TTL().Seconds()),
		"user":         user,
	})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Name     string `json:"name"`
		Password string `json:"password"`
		Address  string `json:"address"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.market.UpdateProfile(r.Context(), market.UpdateProfileInput{
		UserID:   user.UserID,
		Name:     in.Name,
		Password: in.Password,
		Address:  in.Address,
	}); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleGamesSearch(w http.ResponseWriter, r *http.Request) {
	var (
		out []market.Game
		err error
	)
	if r.URL.Query().Get("mine") == "1" {
		user, uerr := userFromContext(r.Context())
		if uerr != nil {
			writeError(w, http.StatusUnauthorized, uerr.Error())
			return
		}
		out, err = s.market.GamesByOwner(r.Context(), user.UserID)
	} else {
		out, err = s.market.SearchGames(r.Context(), r.URL.Query().Get("name"))
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": out})
}

func (s *Server) handleGameCreate(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Name          string `json:"name"`
		Publisher     string `json:"publisher"`
		YearPublished int    `json:"year_published"`
		System        string `json:"system"`
		Condition     string `json:"condition"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	game, err := s.market.AddGame(r.Context(), market.AddGameInput{
		OwnerID:       user.UserID,
		Name:          in.Name,
		Publisher:     in.Publisher,
		YearPublished: in.YearPublished,
		System:        in.System,
		Condition:     in.Condition,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

func (s *Server) handleGameDetail(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	game, err := s.market.Game(r.Context(), gameID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (s *Server) handleGameUpdate(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	gameID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	var in struct {
		Name          string `json:"name"`
		Publisher     string `json:"publisher"`
		YearPublished int    `json:"year_published"`
		System        string `json:"system"`
		Condition     string `json:"condition"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.market.UpdateGame(r.Context(), market.UpdateGameInput{
		ActorID:       user.UserID,
		GameID:        gameID,
		Name:          in.Name,
		Publisher:     in.Publisher,
		YearPublished: in.YearPublished,
		System:        in.System,
		Condition:     in.Condition,
	}); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleGameDelete(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	gameID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	if err := s.market.DeleteGame(r.Context(), user.UserID, gameID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleProposeOffer(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		OfferedGameID int64 `json:"offered_game_id"`
		DesiredGameID int64 `json:"desired_game_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offer, err := s.trades.ProposeOffer(r.Context(), market.ProposeOfferInput{
		SenderID:      user.UserID,
		OfferedGameID: in.OfferedGameID,
		DesiredGameID: in.DesiredGameID,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, offer)
}

func (s *Server) handleReceivedOffers(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	offers, err := s.trades.ReceivedOffers(r.Context(), user.UserID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"offers": offers})
}

func (s *Server) handleOfferDetail(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	tradeID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trade id")
		return
	}
	offer, err := s.trades.Offer(r.Context(), user.UserID, tradeID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (s *Server) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	tradeID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trade id")
		return
	}
	offer, err := s.trades.AcceptOffer(r.Context(), user.UserID, tradeID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

// writeDomainError maps the market taxonomy onto HTTP statuses. Anything
// unclassified is an internal fault: logged here, opaque to the caller.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, market.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, market.ErrInvalidInput), errors.Is(err, market.ErrInvalidOffer):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, market.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, market.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, market.ErrInvalidState), errors.Is(err, market.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error("internal failure", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
