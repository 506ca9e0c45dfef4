package transport

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	goerrors "github.com/goliatone/go-errors"

	"github.com/schedulehq/go-connect/auth"
	"github.com/schedulehq/go-connect/connect"
	"github.com/schedulehq/go-connect/core"
)

const maxJSONBodyBytes = 1 << 20

func (h *Handler) handleConnectURL(w http.ResponseWriter, r *http.Request) {
	authz, ok := authorizedFromContext(r.Context())
	if !ok {
		writeConnectError(w, missingAuthContextError())
		return
	}

	connectURL, err := h.orchestrator.ConnectURL(
		r.Context(),
		chi.URLParam(r, "platform"),
		authz.ProfileID,
		r.URL.Query().Get("redirect_url"),
	)
	if err != nil {
		writeConnectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": connectURL})
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.callbacks.Route(r.Context(), r.URL.Query())
	if err != nil {
		// The browser is mid-redirect; send it home with a terse reason
		// instead of a JSON body it cannot render.
		h.logger.Warn("callback routing failed", "error", err)
		params := url.Values{"error": []string{"server_error"}}
		http.Redirect(w, r, h.runtime.Config().AccountsURL+"?"+params.Encode(), http.StatusFound)
		return
	}
	http.Redirect(w, r, outcome.RedirectURL, http.StatusFound)
}

func (h *Handler) handleListEntities(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	entities, err := h.entities.Resolve(r.Context(), connect.EntityRequest{
		ConnectionID:     query.Get(connect.ParamConnectionID),
		Platform:         query.Get("platform"),
		StepType:         query.Get("stepType"),
		TempToken:        query.Get("tempToken"),
		ConnectToken:     query.Get("connectToken"),
		PendingDataToken: query.Get("pendingDataToken"),
		Organizations:    query.Get("organizations"),
	})
	if err != nil {
		writeConnectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": entities})
}

type selectEntityRequest struct {
	ConnectionID string `json:"connection_id"`
	Platform     string `json:"platform"`
	EntityID     string `json:"entityId"`
	ProfileID    string `json:"profileId"`
	TempToken    string `json:"tempToken"`
	UserProfile  any    `json:"userProfile"`
}

func (h *Handler) handleSelectEntity(w http.ResponseWriter, r *http.Request) {
	authz, ok := authorizedFromContext(r.Context())
	if !ok {
		writeConnectError(w, missingAuthContextError())
		return
	}

	var req selectEntityRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeConnectError(w, err)
		return
	}

	profileID := strings.TrimSpace(req.ProfileID)
	if profileID == "" {
		profileID = authz.ProfileID
	} else if !authz.Tenant.CanActAs(profileID) {
		writeConnectError(w, goerrors.New(
			"transport: requested profile is not accessible",
			goerrors.CategoryAuthz,
		).WithCode(http.StatusForbidden).WithTextCode(core.ConnectErrorAccessDenied))
		return
	}

	if err := h.selections.Complete(r.Context(), connect.SelectionRequest{
		ConnectionID: req.ConnectionID,
		Platform:     req.Platform,
		ProfileID:    profileID,
		EntityID:     req.EntityID,
		TempToken:    req.TempToken,
		UserProfile:  req.UserProfile,
	}); err != nil {
		writeConnectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleGenerateKey(w http.ResponseWriter, r *http.Request) {
	authz, ok := authorizedFromContext(r.Context())
	if !ok {
		writeError(w, r, missingAuthContextError())
		return
	}

	key, err := h.keys.Generate(r.Context(), authz.Tenant.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// The plaintext key is shown exactly once; only its hash is stored.
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (h *Handler) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	authz, ok := authorizedFromContext(r.Context())
	if !ok {
		writeError(w, r, missingAuthContextError())
		return
	}

	if err := h.keys.Revoke(r.Context(), authz.Tenant.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type adminTenantUpdateRequest struct {
	Email                *string    `json:"email"`
	SubscriptionStatus   *string    `json:"subscription_status"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end"`
	ClearPeriodEnd       bool       `json:"clear_period_end"`
	PrimaryProfileID     *string    `json:"primary_profile_id"`
	AccessibleProfileIDs *[]string  `json:"accessible_profile_ids"`
	IsAdmin              *bool      `json:"is_admin"`
}

type adminTenantResponse struct {
	ID                   string     `json:"id"`
	Email                string     `json:"email"`
	SubscriptionStatus   string     `json:"subscription_status"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`
	PrimaryProfileID     string     `json:"primary_profile_id"`
	AccessibleProfileIDs []string   `json:"accessible_profile_ids"`
	IsAdmin              bool       `json:"is_admin"`
	HasAPIKey            bool       `json:"has_api_key"`
}

func (h *Handler) handleAdminUpdateTenant(w http.ResponseWriter, r *http.Request) {
	caller, ok := adminFromContext(r.Context())
	if !ok {
		writeError(w, r, missingAuthContextError())
		return
	}
	targetID := chi.URLParam(r, "id")

	var req adminTenantUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	update := core.TenantUpdate{
		Email:            req.Email,
		CurrentPeriodEnd: req.CurrentPeriodEnd,
		ClearPeriodEnd:   req.ClearPeriodEnd,
		PrimaryProfileID: req.PrimaryProfileID,
		IsAdmin:          req.IsAdmin,
	}
	if req.SubscriptionStatus != nil {
		status, err := core.ParseSubscriptionStatus(*req.SubscriptionStatus)
		if err != nil {
			writeError(w, r, goerrors.Wrap(err, goerrors.CategoryBadInput, "transport: invalid subscription status").
				WithCode(http.StatusBadRequest).
				WithTextCode(core.ConnectErrorBadInput))
			return
		}
		update.SubscriptionStatus = &status
	}
	if req.AccessibleProfileIDs != nil {
		profiles := append([]string(nil), (*req.AccessibleProfileIDs)...)
		update.AccessibleProfileIDs = &profiles
	}

	if err := auth.GuardSelfDemotion(caller.ID, targetID, update); err != nil {
		writeError(w, r, err)
		return
	}

	store, err := h.runtime.RequireTenantStore()
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := store.Update(r.Context(), targetID, update)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdminTenantResponse(updated))
}

func (h *Handler) handleAdminDeleteTenant(w http.ResponseWriter, r *http.Request) {
	caller, ok := adminFromContext(r.Context())
	if !ok {
		writeError(w, r, missingAuthContextError())
		return
	}
	targetID := chi.URLParam(r, "id")

	if err := auth.GuardSelfDeletion(caller.ID, targetID); err != nil {
		writeError(w, r, err)
		return
	}

	store, err := h.runtime.RequireTenantStore()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := store.Delete(r.Context(), targetID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toAdminTenantResponse(tenant core.Tenant) adminTenantResponse {
	return adminTenantResponse{
		ID:                   tenant.ID,
		Email:                tenant.Email,
		SubscriptionStatus:   string(tenant.SubscriptionStatus),
		CurrentPeriodEnd:     tenant.CurrentPeriodEnd,
		PrimaryProfileID:     tenant.PrimaryProfileID,
		AccessibleProfileIDs: tenant.AccessibleProfileIDs,
		IsAdmin:              tenant.IsAdmin,
		HasAPIKey:            tenant.HasLiveAPIKey(),
	}
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "transport: invalid json body").
			WithCode(http.StatusBadRequest).
			WithTextCode(core.ConnectErrorBadInput)
	}
	return nil
}

func missingAuthContextError() *goerrors.Error {
	return goerrors.New("transport: authorization context is missing", goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ConnectErrorInternal)
}
