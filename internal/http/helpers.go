package http

import (
	"errors"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"caffeine/internal/core"
	"caffeine/internal/timezone"
)

// tzCookie is set by app.js from the browser's IANA zone.
const tzCookie = "tz"

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// viewerLocation resolves the zone the page is rendered in: the tz query
// parameter, then the tz cookie, then fallback.
func viewerLocation(r *http.Request, fallback *time.Location) *time.Location {
	candidates := []string{r.URL.Query().Get("tz")}
	if c, err := r.Cookie(tzCookie); err == nil {
		candidates = append(candidates, c.Value)
	}
	return timezone.Resolve(fallback, candidates...)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirect navigates HTMX requests with HX-Redirect and plain requests with 303.
func redirect(w http.ResponseWriter, r *http.Request, url string) {
	if isHTMX(r) {
		NewHTMXResponse().Redirect(url).Write(w)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// validationMessage turns a domain validation error into a toast message.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyDrinkName):
		return "Please enter a drink name"
	case errors.Is(err, core.ErrDrinkNameTooLong):
		return "Drink name is too long (max 100 characters)"
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrNegativeAmount):
		return "Please enter a valid caffeine amount"
	case errors.Is(err, core.ErrNegativeLimit):
		return "Please enter a valid daily limit"
	case errors.Is(err, core.ErrEmptyProfileName):
		return "Please enter your name"
	case errors.Is(err, core.ErrProfileNameTooLong):
		return "Name is too long (max 80 characters)"
	case errors.Is(err, core.ErrInvalidRole):
		return "Unknown role"
	case errors.Is(err, core.ErrInvalidPrincipal):
		return "Invalid user"
	case errors.Is(err, ErrInvalidEntryID):
		return "Invalid entry"
	case errors.Is(err, ErrInvalidConsumptionTime):
		return "Invalid consumption time"
	default:
		return "Invalid input"
	}
}

func isValidationError(err error) bool {
	return core.IsValidationError(err) ||
		errors.Is(err, ErrInvalidEntryID) ||
		errors.Is(err, ErrInvalidConsumptionTime)
}

func formatMg(mg int64) string {
	return humanize.Comma(mg) + "mg"
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(math.Round(p), 'f', 0, 64) + "%"
}

func pluralEntries(n int) string {
	if n == 1 {
		return "1 entry"
	}
	return humanize.Comma(int64(n)) + " entries"
}

// templateFuncs are available to every page template.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"comma":   humanize.Comma,
		"mg":      formatMg,
		"percent": formatPercent,
		"entries": pluralEntries,
		"ago":     humanize.Time,
		"clock": func(t time.Time, loc *time.Location) string {
			return t.In(loc).Format("15:04")
		},
		"datetimeLocal": func(t time.Time, loc *time.Location) string {
			return t.In(loc).Format(datetimeLocalLayout)
		},
		"sub": func(a, b float64) float64 {
			return a - b
		},
	}
}
