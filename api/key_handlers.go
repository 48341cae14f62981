package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/switchboard/gateway"
	"github.com/jmcleod/switchboard/internal/util"
	"github.com/jmcleod/switchboard/vault"
)

// ListKeys reloads the credential list from the gateway. ?q= narrows the
// reloaded list by name or provider.
func (a *API) ListKeys(w http.ResponseWriter, r *http.Request) {
	v := a.console.Vault()
	creds := v.List(r.Context())
	if q := r.URL.Query().Get("q"); q != "" {
		creds = v.Filter(q)
	}
	resp := ListKeysResponse{Keys: creds}
	if err := v.Err(); err != nil {
		resp.Error = gateway.Message(err)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateKey adds a provider credential and returns the reloaded list.
func (a *API) CreateKey(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[CreateKeyRequest](w, r, maxKeyBodySize)
	if !ok {
		return
	}
	secret := []byte(req.KeyValue)
	req.KeyValue = ""

	provider, err := vault.ParseProvider(req.Provider)
	if err != nil {
		util.WipeBytes(secret)
		mapError(w, err)
		return
	}
	cred, err := a.console.Vault().Create(r.Context(), vault.CreateInput{
		Name:     req.Name,
		Provider: provider,
		Secret:   secret,
	})
	if err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(AuditKeyCreated, r,
		slog.String("key_id", cred.ID),
		slog.String("provider", provider.String()),
		slog.String("key_prefix", cred.KeyPrefix))
	writeJSON(w, http.StatusCreated, ListKeysResponse{Keys: a.console.Vault().Credentials()})
}

// UpdateKey enables or disables a credential.
func (a *API) UpdateKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "keyID")
	req, ok := decodeJSON[UpdateKeyRequest](w, r, maxKeyBodySize)
	if !ok {
		return
	}
	if req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "is_active is required")
		return
	}
	if err := a.console.Vault().SetActive(r.Context(), id, *req.IsActive); err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(AuditKeyUpdated, r, slog.String("key_id", id), slog.Bool("is_active", *req.IsActive))
	writeJSON(w, http.StatusOK, ListKeysResponse{Keys: a.console.Vault().Credentials()})
}

// RequestDelete arms the delete confirmation gate for one credential.
func (a *API) RequestDelete(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[KeyIDRequest](w, r, maxSessionBodySize)
	if !ok {
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := a.console.Vault().RequestDelete(req.ID); err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(AuditKeyDeleteRequested, r, slog.String("key_id", req.ID))
	writePendingDelete(w, a.console.Vault().PendingDelete())
}

// CancelDelete disarms the gate. It has no effect on a delete that is
// already executing.
func (a *API) CancelDelete(w http.ResponseWriter, r *http.Request) {
	v := a.console.Vault()
	before := v.PendingDelete()
	v.CancelDelete()
	if !before.Executing && before.TargetID != "" {
		a.audit.log(AuditKeyDeleteCancelled, r, slog.String("key_id", before.TargetID))
	}
	writePendingDelete(w, v.PendingDelete())
}

// ConfirmDelete executes the armed delete.
func (a *API) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	v := a.console.Vault()
	target := v.PendingDelete().TargetID
	id, err := v.ConfirmDelete(r.Context())
	if err != nil {
		if !errors.Is(err, vault.ErrNoPendingDelete) && !errors.Is(err, vault.ErrDeleteInProgress) {
			a.audit.logFailure(AuditKeyDeleteFailed, r, gateway.Message(err), slog.String("key_id", target))
		}
		mapError(w, err)
		return
	}
	a.audit.log(AuditKeyDeleted, r, slog.String("key_id", id))
	writeJSON(w, http.StatusOK, DeletedResponse{DeletedID: id, Keys: v.Credentials()})
}

// GetSelected returns the credential shown in the settings panel, if any.
func (a *API) GetSelected(w http.ResponseWriter, r *http.Request) {
	resp := SelectedResponse{}
	if cred, ok := a.console.Vault().Selected(); ok {
		resp.Key = &cred
	}
	writeJSON(w, http.StatusOK, resp)
}

// SelectKey opens the settings panel on a cached credential.
func (a *API) SelectKey(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[KeyIDRequest](w, r, maxSessionBodySize)
	if !ok {
		return
	}
	v := a.console.Vault()
	if err := v.Select(req.ID); err != nil {
		mapError(w, err)
		return
	}
	cred, _ := v.Selected()
	writeJSON(w, http.StatusOK, SelectedResponse{Key: &cred})
}

// DeselectKey closes the settings panel.
func (a *API) DeselectKey(w http.ResponseWriter, r *http.Request) {
	a.console.Vault().Deselect()
	w.WriteHeader(http.StatusNoContent)
}

// ListProviders returns the display metadata of every supported provider.
func (a *API) ListProviders(w http.ResponseWriter, r *http.Request) {
	providers := vault.Providers()
	resp := ListProvidersResponse{Providers: make([]vault.ProviderInfo, 0, len(providers))}
	for _, p := range providers {
		resp.Providers = append(resp.Providers, p.Info())
	}
	writeJSON(w, http.StatusOK, resp)
}

func writePendingDelete(w http.ResponseWriter, pd vault.PendingDelete) {
	writeJSON(w, http.StatusOK, PendingDeleteResponse{TargetID: pd.TargetID, Executing: pd.Executing})
}
