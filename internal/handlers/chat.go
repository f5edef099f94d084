package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"strategic-forecast/backend-go/internal/chat"
	"strategic-forecast/backend-go/internal/models"
)

const maxChatBody = 16 << 10

func (a *API) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	ctx, cancel := a.timeboxed(r)
	defer cancel()

	resp, err := a.chat.Reply(ctx, req.Message)
	if errors.Is(err, chat.ErrEmptyMessage) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
