package handlers

import (
	"net/http"
	"time"

	"github.com/robertrinh/transcendence-sub001/middleware"
	"github.com/robertrinh/transcendence-sub001/services"
)

type GameHandler struct {
	games *services.GameService
}

func NewGameHandler(games *services.GameService) *GameHandler {
	return &GameHandler{games: games}
}

// List handles GET /games.
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	games, err := h.games.ListGames(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"games": games}); err != nil {
		serverErrorResponse(w, err)
	}
}

// Get handles GET /games/{id}.
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	game, err := h.games.GetGame(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}); err != nil {
		serverErrorResponse(w, err)
	}
}

// SetReady handles POST /games/ready.
func (h *GameHandler) SetReady(w http.ResponseWriter, r *http.Request) {
	playerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "authentication required")
		return
	}

	var input struct {
		GameID int `json:"game_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	if input.GameID <= 0 {
		errorResponse(w, http.StatusBadRequest, "game_id is required")
		return
	}

	status, err := h.games.SetReady(r.Context(), input.GameID, playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"ready": status}); err != nil {
		serverErrorResponse(w, err)
	}
}

// ReadyStatus handles GET /games/{id}/ready.
func (h *GameHandler) ReadyStatus(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	status, err := h.games.GetReadyStatus(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"ready": status}); err != nil {
		serverErrorResponse(w, err)
	}
}

// Start handles PUT /games/{id}/start.
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	game, err := h.games.StartGame(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}); err != nil {
		serverErrorResponse(w, err)
	}
}

// Finish handles PUT /games/{id}/finish.
func (h *GameHandler) Finish(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input struct {
		ScorePlayer1 int `json:"score_player1"`
		ScorePlayer2 int `json:"score_player2"`
		WinnerID     int `json:"winner_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
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

	outcome, err := h.games.FinishGame(r.Context(), gameID,
		input.ScorePlayer1, input.ScorePlayer2, input.WinnerID, time.Now().UTC())
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcome": outcome}); err != nil {
		serverErrorResponse(w, err)
	}
}

// Cancel handles PUT /games/{id}/cancel.
func (h *GameHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.games.CancelGame(r.Context(), gameID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "game cancelled"}); err != nil {
		serverErrorResponse(w, err)
	}
}

// Delete handles DELETE /games/{id}.
func (h *GameHandler) Delete(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.games.DeleteGame(r.Context(), gameID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "game deleted"}); err != nil {
		serverErrorResponse(w, err)
	}
}
