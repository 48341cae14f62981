package api

import (
	"net/http"

	"github.com/jmcleod/switchboard/routing"
)

const maxChatBodySize = 64 << 10

func (a *API) chatState() ChatStateResponse {
	p := a.console.Chat()
	model, memory := p.Settings()
	return ChatStateResponse{Model: model, Memory: memory, Messages: p.Transcript()}
}

// GetChat returns the playground transcript and settings.
func (a *API) GetChat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.chatState())
}

// SendChat sends one message through the gateway. A refused message is
// still recorded in the transcript as an error turn.
func (a *API) SendChat(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ChatSendRequest](w, r, maxChatBodySize)
	if !ok {
		return
	}
	if _, err := a.console.Chat().Send(r.Context(), req.Message); err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.chatState())
}

// UpdateChatSettings changes the model and memory toggle.
func (a *API) UpdateChatSettings(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ChatSettingsRequest](w, r, maxSessionBodySize)
	if !ok {
		return
	}
	p := a.console.Chat()
	if req.Model != nil {
		if err := p.SetModel(routing.Model(*req.Model)); err != nil {
			mapError(w, err)
			return
		}
	}
	if req.Memory != nil {
		p.SetMemory(*req.Memory)
	}
	writeJSON(w, http.StatusOK, a.chatState())
}

// ClearChat empties the transcript. A reply still in flight is dropped.
func (a *API) ClearChat(w http.ResponseWriter, r *http.Request) {
	a.console.Chat().Clear()
	w.WriteHeader(http.StatusNoContent)
}
