package http

import (
	"net/http"
	"time"

	"caffeine/internal/aggregate"
	"caffeine/internal/auth"
	"caffeine/internal/core"
	applog "caffeine/internal/log"
)

// layoutData is shared by every page rendered inside the app shell.
type layoutData struct {
	Title       string
	Active      string
	UserName    string
	Loc         *time.Location
	ShowLogout  bool
	RequestPath string
}

type dashboardPage struct {
	layoutData
	View    aggregate.Dashboard
	Presets []core.Preset
	Now     time.Time
}

type logPage struct {
	layoutData
	Groups []aggregate.DayGroup
	Count  int
}

type insightsPage struct {
	layoutData
	View aggregate.Insights
}

type settingsPage struct {
	layoutData
	Limit   int64
	Presets []core.Preset
}

type errorPage struct {
	layoutData
	Message string
}

func (s *Server) layout(r *http.Request, title, active string) layoutData {
	return layoutData{
		Title:       title,
		Active:      active,
		UserName:    profileFromContext(r.Context()).Name,
		Loc:         viewerLocation(r, s.defaultLoc),
		ShowLogout:  !s.auth.Disabled(),
		RequestPath: r.URL.Path,
	}
}

// loadUserData fetches the caller's data for a page, rendering the error page
// when the backend fails.
func (s *Server) loadUserData(w http.ResponseWriter, r *http.Request, active string) (core.UserData, bool) {
	caller := auth.PrincipalFromContext(r.Context())
	data, err := s.data.GetUserData(r.Context(), caller)
	if err != nil {
		s.events.LogError(r.Context(), "Failed to load user data", err, applog.ComponentBackend, applog.OpRead,
			applog.NewFields().WithPrincipal(caller.String()))
		s.render(w, r, "error.html", http.StatusInternalServerError, errorPage{
			layoutData: s.layout(r, "Something went wrong", active),
			Message:    "We could not load your caffeine data. Please try again.",
		})
		return core.UserData{}, false
	}
	return data, true
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	data, ok := s.loadUserData(w, r, "dashboard")
	if !ok {
		return
	}
	page := dashboardPage{
		layoutData: s.layout(r, "Dashboard", "dashboard"),
		Presets:    data.Presets,
		Now:        s.now(),
	}
	page.View = aggregate.BuildDashboard(data, page.Now, page.Loc)
	s.render(w, r, "dashboard.html", http.StatusOK, page)
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	data, ok := s.loadUserData(w, r, "log")
	if !ok {
		return
	}
	page := logPage{
		layoutData: s.layout(r, "Caffeine Log", "log"),
		Count:      len(data.Entries),
	}
	page.Groups = aggregate.GroupByDay(data.Entries, page.Loc)
	s.render(w, r, "log.html", http.StatusOK, page)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	data, ok := s.loadUserData(w, r, "insights")
	if !ok {
		return
	}
	page := insightsPage{layoutData: s.layout(r, "7-Day Insights", "insights")}
	page.View = aggregate.BuildInsights(data, s.now(), page.Loc)
	s.render(w, r, "insights.html", http.StatusOK, page)
}

// handleSettings renders the settings page on GET and saves the daily limit on POST.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
	case http.MethodPost:
		s.handleUpdateSettings(w, r)
		return
	default:
		MethodNotAllowedError("GET, POST").Write(w)
		return
	}
	data, ok := s.loadUserData(w, r, "settings")
	if !ok {
		return
	}
	s.render(w, r, "settings.html", http.StatusOK, settingsPage{
		layoutData: s.layout(r, "Settings", "settings"),
		Limit:      data.Settings.DailyLimitMg,
		Presets:    data.Presets,
	})
}
