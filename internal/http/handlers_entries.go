package http

import (
	"errors"
	"net/http"

	"caffeine/internal/auth"
	"caffeine/internal/core"
	"caffeine/internal/dataaccess"
	applog "caffeine/internal/log"
)

// writeActionError maps a failed mutation onto an HTMX response. Validation
// gaps are 422, missing entries 404, and anything else from the backend 500.
// Every error carries an error toast.
func (s *Server) writeActionError(w http.ResponseWriter, r *http.Request, err error, failMsg, op string) {
	caller := auth.PrincipalFromContext(r.Context())
	switch {
	case isValidationError(err):
		s.logger.WarnContext(r.Context(), "Rejected invalid input",
			applog.FieldPrincipal, caller.String(),
			applog.FieldOperation, op,
			"error_type", applog.ErrorTypeValidation,
			"error", err)
		UnprocessableEntityError(validationMessage(err)).Write(w)
	case errors.Is(err, dataaccess.ErrEntryNotFound):
		NotFoundError("Entry not found").Write(w)
	case errors.Is(err, core.ErrUnauthorized):
		auth.RedirectToLogin(w, r)
	case errors.Is(err, core.ErrForbidden):
		ForbiddenError("You do not have permission to do that").Write(w)
	default:
		s.events.LogError(r.Context(), failMsg, err, applog.ComponentBackend, op,
			applog.NewFields().WithPrincipal(caller.String()))
		InternalServerError(failMsg).Write(w)
	}
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	ctx := r.Context()
	caller := auth.PrincipalFromContext(ctx)
	const failMsg = "Failed to add entry"

	name := sanitizeInput(r.Form.Get("drink_name"))
	amount, err := core.ParseAmountMg(r.Form.Get("amount_mg"))
	if err != nil {
		s.writeActionError(w, r, err, failMsg, applog.OpValidate)
		return
	}
	when, err := ParseConsumptionTime(r.Form.Get("consumption_time"), viewerLocation(r, s.defaultLoc), s.now())
	if err != nil {
		s.writeActionError(w, r, err, failMsg, applog.OpValidate)
		return
	}

	entry, err := s.data.AddCaffeineEntry(ctx, caller, name, amount, when)
	if err != nil {
		s.writeActionError(w, r, err, failMsg, applog.OpCreate)
		return
	}

	s.appMetrics.entriesCreated.Add(1)
	s.events.LogEntryCreated(ctx, caller.String(), entry.ID, entry.DrinkName, entry.AmountMg)

	NewHTMXResponse().
		TriggerEntryCreated(entry.ID).
		TriggerFormReset().
		TriggerPageRefresh().
		TriggerSuccessNotification("Entry added successfully!").
		Write(w)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		s.logger.ErrorContext(r.Context(), "Parse request body error", "error", err,
			"content_type", parser.ContentType())
		BadRequestError("Invalid request format").Write(w)
		return
	}

	ctx := r.Context()
	caller := auth.PrincipalFromContext(ctx)
	const failMsg = "Failed to delete entry"

	id, err := ParseEntryID(parser.Get("id"))
	if err != nil {
		s.writeActionError(w, r, err, failMsg, applog.OpValidate)
		return
	}
	if err := s.data.DeleteCaffeineEntry(ctx, caller, id); err != nil {
		s.writeActionError(w, r, err, failMsg, applog.OpDelete)
		return
	}

	s.appMetrics.entriesDeleted.Add(1)
	s.events.LogEntryDeleted(ctx, caller.String(), id)

	NewHTMXResponse().
		TriggerEntryDeleted(id).
		TriggerPageRefresh().
		TriggerSuccessNotification("Entry deleted successfully!").
		Write(w)
}

func (s *Server) handleCreatePreset(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	ctx := r.Context()
	caller := auth.PrincipalFromContext(ctx)
	const failMsg = "Failed to add preset"

	name := sanitizeInput(r.Form.Get("drink_name"))
	amountStr := sanitizeInput(r.Form.Get("default_amount_mg"))
	if name == "" || amountStr == "" {
		UnprocessableEntityError("Please fill in all fields").Write(w)
		return
	}
	amount, err := core.ParseAmountMg(amountStr)
	if err != nil {
		s.writeActionError(w, r, err, failMsg, applog.OpValidate)
		return
	}

	preset, err := s.data.AddCaffeinePreset(ctx, caller, name, amount)
	if err != nil {
		s.writeActionError(w, r, err, failMsg, applog.OpCreate)
		return
	}

	s.logger.InfoContext(ctx, "Preset created",
		applog.FieldPrincipal, caller.String(),
		"preset_id", preset.ID,
		applog.FieldDrinkName, preset.DrinkName,
		applog.FieldAmountMg, preset.DefaultAmountMg)

	NewHTMXResponse().
		TriggerFormReset().
		TriggerPageRefresh().
		TriggerSuccessNotification("Preset added successfully!").
		Write(w)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	ctx := r.Context()
	caller := auth.PrincipalFromContext(ctx)

	raw := sanitizeInput(r.Form.Get("daily_limit_mg"))
	if raw == "" {
		UnprocessableEntityError("Please enter a daily limit").Write(w)
		return
	}
	limit, err := core.ParseLimitMg(raw)
	if err != nil {
		s.writeActionError(w, r, err, "Failed to update settings", applog.OpValidate)
		return
	}

	if err := s.data.UpdateUserSettings(ctx, caller, core.UserSettings{DailyLimitMg: limit}); err != nil {
		s.writeActionError(w, r, err, "Failed to update settings", applog.OpUpdate)
		return
	}

	s.logger.InfoContext(ctx, "Settings updated",
		applog.FieldPrincipal, caller.String(),
		"daily_limit_mg", limit)

	NewHTMXResponse().
		TriggerFormReset().
		TriggerPageRefresh().
		TriggerSuccessNotification("Settings updated successfully!").
		Write(w)
}

type setupPage struct {
	layoutData
	Name string
}

// handleSetup shows the first-time profile form. It doubles as the place to
// rename an existing profile.
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	caller := auth.PrincipalFromContext(r.Context())
	state, err := s.data.GetCallerUserProfile(r.Context(), caller)
	if err != nil {
		s.events.LogError(r.Context(), "Failed to load profile", err, applog.ComponentBackend, applog.OpRead,
			applog.NewFields().WithPrincipal(caller.String()))
		s.render(w, r, "error.html", http.StatusInternalServerError, errorPage{
			layoutData: s.layout(r, "Something went wrong", ""),
			Message:    "We could not load your profile. Please try again.",
		})
		return
	}

	page := setupPage{layoutData: s.layout(r, "Welcome", "")}
	if p, ok := state.Profile(); ok {
		page.Name = p.Name
		page.UserName = p.Name
	}
	s.render(w, r, "setup.html", http.StatusOK, page)
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	ctx := r.Context()
	caller := auth.PrincipalFromContext(ctx)
	profile := core.UserProfile{Name: sanitizeInput(r.Form.Get("name"))}
	if err := s.data.SaveCallerUserProfile(ctx, caller, profile); err != nil {
		s.writeActionError(w, r, err, "Failed to save profile", applog.OpUpdate)
		return
	}

	s.logger.InfoContext(ctx, "Profile saved", applog.FieldPrincipal, caller.String())
	if isHTMX(r) {
		NewHTMXResponse().
			Redirect("/").
			TriggerSuccessNotification("Profile saved!").
			Write(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
