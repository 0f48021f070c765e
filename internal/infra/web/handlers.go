package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"telegram-card-catalog/internal/domain"
	"telegram-card-catalog/internal/domain/model"
)

type loginRequest struct {
	APIKey string `json:"api_key"`
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if s.apiKey == "" || req.APIKey != s.apiKey {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		http.Error(w, "Failed to mint session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.statsUC.Totals(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("stats handler failed")
		http.Error(w, "Failed to get totals", http.StatusInternalServerError)
		return
	}

	byGroup := make(map[string]int, len(stats.CardsByGroup))
	for g, n := range stats.CardsByGroup {
		byGroup[string(g)] = n
	}
	response := struct {
		TotalUsers    int            `json:"total_users"`
		InactiveUsers int            `json:"inactive_users"`
		TotalCards    int            `json:"total_cards"`
		CardsByGroup  map[string]int `json:"cards_by_group"`
	}{
		TotalUsers:    stats.Users,
		InactiveUsers: stats.InactiveUsers,
		TotalCards:    stats.Cards,
		CardsByGroup:  byGroup,
	}
	writeJSON(w, http.StatusOK, response)
}

type cardStatsResponse struct {
	Number      int      `json:"number"`
	Groups      []string `json:"groups"`
	Category    string   `json:"category"`
	District    string   `json:"district"`
	UniqueViews int      `json:"unique_views"`
	TotalViews  int      `json:"total_views"`
	LinkClicks  int      `json:"link_clicks"`
	Saves       int      `json:"saves"`
	RatingAvg   float64  `json:"rating_avg"`
	RatingCount int      `json:"rating_count"`
	Reviews     int      `json:"reviews"`
	ExpiresAt   string   `json:"expires_at,omitempty"`
}

func (s *Server) cardStatsHandler(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		http.Error(w, "Invalid card number", http.StatusBadRequest)
		return
	}
	card, rating, reviews, err := s.statsUC.CardStats(r.Context(), number)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Card not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to get card stats", http.StatusInternalServerError)
		return
	}

	resp := cardStatsResponse{
		Number:      card.Number,
		Groups:      groupStrings(card.Groups),
		Category:    card.Category,
		District:    card.District,
		UniqueViews: card.UniqueViews,
		TotalViews:  card.TotalViews,
		LinkClicks:  card.LinkClicks,
		Saves:       card.Saves,
		RatingAvg:   rating.Average,
		RatingCount: rating.Count,
		Reviews:     reviews,
	}
	if card.ExpiresAt != nil {
		resp.ExpiresAt = card.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) cardDeleteHandler(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		http.Error(w, "Invalid card number", http.StatusBadRequest)
		return
	}
	if err := s.catalogUC.Remove(r.Context(), number); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Card not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete card", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func groupStrings(gs []model.Group) []string {
	out := make([]string, len(gs))
	for i, g := range gs {
		out[i] = string(g)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
