package handlers

import (
	"net/http"

	"github.com/robertrinh/transcendence-sub001/middleware"
	"github.com/robertrinh/transcendence-sub001/services"
)

type TournamentHandler struct {
	tournaments *services.TournamentService
}

func NewTournamentHandler(tournaments *services.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournaments: tournaments}
}

// Create handles POST /tournaments.
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	creatorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "authentication required")
		return
	}

	var input struct {
		Name            string `json:"name"`
		MaxParticipants int    `json:"max_participants"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	tournament, err := h.tournaments.Create(r.Context(), input.Name, input.MaxParticipants, creatorID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}); err != nil {
		serverErrorResponse(w, err)
	}
}

// List handles GET /tournaments.
func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	tournaments, err := h.tournaments.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}); err != nil {
		serverErrorResponse(w, err)
	}
}

// Get handles GET /tournaments/{id}.
func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	detail, err := h.tournaments.Get(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": detail}); err != nil {
		serverErrorResponse(w, err)
	}
}

// Join handles POST /tournaments/{id}/join.
func (h *TournamentHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "authentication required")
		return
	}

	tournamentID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	outcome, err := h.tournaments.Join(r.Context(), tournamentID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcome": outcome}); err != nil {
		serverErrorResponse(w, err)
	}
}

// Leave handles POST /tournaments/{id}/leave.
func (h *TournamentHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "authentication required")
		return
	}

	tournamentID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.tournaments.Leave(r.Context(), tournamentID, userID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "left tournament"}); err != nil {
		serverErrorResponse(w, err)
	}
}

// RecordResult handles POST /tournaments/{id}/result.
func (h *TournamentHandler) RecordResult(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input struct {
		GameID       int `json:"game_id"`
		ScorePlayer1 int `json:"score_player1"`
		ScorePlayer2 int `json:"score_player2"`
		WinnerID     int `json:"winner_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	if input.GameID <= 0 {
		errorResponse(w, http.StatusBadRequest, "game_id is required")
		return
	}
	if input.WinnerID <= 0 {
		errorResponse(w, http.StatusBadRequest, "winner_id is required")
		return
	}
	if input.ScorePlayer1 < 0 || input.ScorePlayer2 < 0 {
		errorResponse(w, http.StatusBadRequest, "scores must not be negative")
		return
	}

	outcome, err := h.tournaments.RecordResult(r.Context(), tournamentID,
		input.GameID, input.ScorePlayer1, input.ScorePlayer2, input.WinnerID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcome": outcome}); err != nil {
		serverErrorResponse(w, err)
	}
}

// Delete handles DELETE /tournaments/{id}.
func (h *TournamentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.tournaments.Delete(r.Context(), tournamentID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "tournament deleted"}); err != nil {
		serverErrorResponse(w, err)
	}
}
