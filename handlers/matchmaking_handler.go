package handlers

import (
	"net/http"

	"github.com/robertrinh/transcendence-sub001/middleware"
	"github.com/robertrinh/transcendence-sub001/services"
)

type MatchmakingHandler struct {
	matchmaking *services.MatchmakingService
}

func NewMatchmakingHandler(matchmaking *services.MatchmakingService) *MatchmakingHandler {
	return &MatchmakingHandler{matchmaking: matchmaking}
}

// Enqueue handles POST /games/matchmaking.
func (h *MatchmakingHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	playerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "authentication required")
		return
	}

	result, err := h.matchmaking.EnqueueRandom(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	status := http.StatusCreated
	if result.Matched {
		status = http.StatusOK
	}
	if err := writeJSON(w, status, jsonResponse{"result": result}); err != nil {
		serverErrorResponse(w, err)
	}
}

// Status handles GET /games/matchmaking.
func (h *MatchmakingHandler) Status(w http.ResponseWriter, r *http.Request) {
	playerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "authentication required")
		return
	}

	status, err := h.matchmaking.Status(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": status}); err != nil {
		serverErrorResponse(w, err)
	}
}

// Cancel handles PUT /games/matchmaking/cancel.
func (h *MatchmakingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	playerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "authentication required")
		return
	}

	if err := h.matchmaking.Cancel(r.Context(), playerID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "player removed from game queue"}); err != nil {
		serverErrorResponse(w, err)
	}
}

// HostLobby handles POST /games/host.
func (h *MatchmakingHandler) HostLobby(w http.ResponseWriter, r *http.Request) {
	playerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "authentication required")
		return
	}

	entry, err := h.matchmaking.HostLobby(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"entry": entry}); err != nil {
		serverErrorResponse(w, err)
	}
}

// JoinLobby handles POST /games/joinlobby.
func (h *MatchmakingHandler) JoinLobby(w http.ResponseWriter, r *http.Request) {
	playerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "authentication required")
		return
	}

	var input struct {
		LobbyID string `json:"lobby_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	if input.LobbyID == "" {
		errorResponse(w, http.StatusBadRequest, "lobby_id is required")
		return
	}

	result, err := h.matchmaking.JoinLobby(r.Context(), playerID, input.LobbyID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}); err != nil {
		serverErrorResponse(w, err)
	}
}

// ListQueue handles GET /games/queue.
func (h *MatchmakingHandler) ListQueue(w http.ResponseWriter, r *http.Request) {
	entries, err := h.matchmaking.ListQueue(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"queue": entries}); err != nil {
		serverErrorResponse(w, err)
	}
}
