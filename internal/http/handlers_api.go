package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"caffeine/internal/auth"
	"caffeine/internal/core"
	applog "caffeine/internal/log"
)

type (
	entryJSON struct {
		ID              int64  `json:"id"`
		DrinkName       string `json:"drink_name"`
		AmountMg        int64  `json:"amount_mg"`
		ConsumptionTime int64  `json:"consumption_time"`
	}

	presetJSON struct {
		ID              int64  `json:"id"`
		DrinkName       string `json:"drink_name"`
		DefaultAmountMg int64  `json:"default_amount_mg"`
	}

	settingsJSON struct {
		DailyLimitMg int64 `json:"daily_limit_mg"`
	}

	userDataJSON struct {
		Presets  []presetJSON `json:"presets"`
		Entries  []entryJSON  `json:"entries"`
		Settings settingsJSON `json:"settings"`
	}

	roleJSON struct {
		Principal string `json:"principal"`
		Role      string `json:"role"`
		IsAdmin   bool   `json:"is_admin"`
	}

	profileJSON struct {
		Principal string `json:"principal"`
		Name      string `json:"name"`
	}
)

func toUserDataJSON(d core.UserData) userDataJSON {
	out := userDataJSON{
		Presets:  make([]presetJSON, 0, len(d.Presets)),
		Entries:  make([]entryJSON, 0, len(d.Entries)),
		Settings: settingsJSON{DailyLimitMg: d.Settings.DailyLimitMg},
	}
	for _, p := range d.Presets {
		out.Presets = append(out.Presets, presetJSON{ID: p.ID, DrinkName: p.DrinkName, DefaultAmountMg: p.DefaultAmountMg})
	}
	for _, e := range d.Entries {
		out.Entries = append(out.Entries, entryJSON{
			ID:              e.ID,
			DrinkName:       e.DrinkName,
			AmountMg:        e.AmountMg,
			ConsumptionTime: e.ConsumptionMillis(),
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeAPIError is the JSON counterpart of writeActionError.
func (s *Server) writeAPIError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case isValidationError(err):
		writeJSONError(w, http.StatusUnprocessableEntity, validationMessage(err))
	case errors.Is(err, core.ErrUnauthorized):
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, core.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "forbidden")
	default:
		caller := auth.PrincipalFromContext(r.Context())
		s.events.LogError(r.Context(), "API request failed", err, applog.ComponentBackend, op,
			applog.NewFields().WithPrincipal(caller.String()))
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleUserData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	data, err := s.data.GetUserData(r.Context(), auth.PrincipalFromContext(r.Context()))
	if err != nil {
		s.writeAPIError(w, r, err, applog.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, toUserDataJSON(data))
}

func (s *Server) handleGetRole(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	ctx := r.Context()
	caller := auth.PrincipalFromContext(ctx)
	role, err := s.data.GetCallerUserRole(ctx, caller)
	if err != nil {
		s.writeAPIError(w, r, err, applog.OpRead)
		return
	}
	isAdmin, err := s.data.IsCallerAdmin(ctx, caller)
	if err != nil {
		s.writeAPIError(w, r, err, applog.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, roleJSON{Principal: caller.String(), Role: string(role), IsAdmin: isAdmin})
}

// handleAssignRole lets an admin set another principal's role. The body is
// either JSON or form encoded with principal and role fields.
func (s *Server) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := core.ParseRole(parser.Get("role"))
	if err != nil {
		s.writeAPIError(w, r, err, applog.OpValidate)
		return
	}
	user := core.Principal(parser.Get("principal"))

	ctx := r.Context()
	caller := auth.PrincipalFromContext(ctx)
	if err := s.data.AssignCallerUserRole(ctx, caller, user, role); err != nil {
		s.writeAPIError(w, r, err, applog.OpUpdate)
		return
	}

	s.logger.InfoContext(ctx, "Role assigned",
		applog.FieldPrincipal, caller.String(),
		"user", user.String(),
		"role", string(role))
	writeJSON(w, http.StatusOK, roleJSON{Principal: user.String(), Role: string(role), IsAdmin: role == core.RoleAdmin})
}

// handleGetProfile returns the profile of the principal named in the query,
// or the caller's own profile when none is given.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	ctx := r.Context()
	caller := auth.PrincipalFromContext(ctx)
	user := core.Principal(strings.TrimSpace(r.URL.Query().Get("principal")))
	if user.IsAnonymous() {
		user = caller
	}

	profile, err := s.data.GetUserProfile(ctx, caller, user)
	if err != nil {
		s.writeAPIError(w, r, err, applog.OpRead)
		return
	}
	if profile == nil {
		writeJSONError(w, http.StatusNotFound, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, profileJSON{Principal: user.String(), Name: profile.Name})
}
