package api

import (
	"net/http"

	"github.com/jmcleod/switchboard/gateway"
	"github.com/jmcleod/switchboard/logs"
	"github.com/jmcleod/switchboard/routing"
)

// ListLogs fetches a fresh snapshot of the request log and returns one page
// of it. ?q= matches model or credential name; ?status= is success or error.
func (a *API) ListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := logs.Status(q.Get("status"))
	switch status {
	case "", logs.StatusSuccess, logs.StatusError:
	default:
		writeError(w, http.StatusBadRequest, "status must be success or error")
		return
	}

	viewer := a.console.Logs()
	viewer.Fetch(r.Context())
	entries := viewer.Search(q.Get("q"), status)

	limit, offset := parsePagination(r)
	start, end, meta := paginateSlice(len(entries), limit, offset)
	resp := ListLogsResponse{
		Entries:    entries[start:end],
		Pagination: meta,
	}
	if err := viewer.Err(); err != nil {
		resp.Error = gateway.Message(err)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetRouting previews provider selection for every logical model, or for
// the one named by ?model=.
func (a *API) GetRouting(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("model")
	if name == "" {
		writeJSON(w, http.StatusOK, RoutingResponse{Routes: a.console.Routes(r.Context())})
		return
	}
	m, err := routing.ParseModel(name)
	if err != nil {
		mapError(w, err)
		return
	}
	route, err := routing.Preview(m, a.console.Vault().List(r.Context()))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RoutingResponse{Routes: []routing.Route{route}})
}

// watchExpiry records a session_expired audit event when a guarded request
// ends with the gateway having rejected the operator's token.
func (a *API) watchExpiry(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		before, had := a.console.Session().User()
		next.ServeHTTP(w, r)
		if had && !a.console.Session().IsAuthenticated() {
			a.audit.logUser(AuditSessionExpired, r, before.Username)
		}
	})
}
