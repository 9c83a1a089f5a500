package http

import (
	"errors"
	"net/http"

	"caffeine/internal/auth"
	applog "caffeine/internal/log"
)

type loginPage struct {
	layoutData
	Principal string
	Error     string
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth.Disabled() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		if !s.auth.Principal(r).IsAnonymous() {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		s.render(w, r, "login.html", http.StatusOK, loginPage{layoutData: layoutData{Title: "Login"}})
	case http.MethodPost:
		if resp := ParseFormOrFail(r); resp != nil {
			resp.Write(w)
			return
		}
		name := sanitizeInput(r.Form.Get("principal"))
		p, err := s.auth.Login(w, name, r.Form.Get("password"))
		if err != nil {
			status := http.StatusUnauthorized
			msg := "Invalid username or password"
			if !errors.Is(err, auth.ErrInvalidCredentials) {
				status = http.StatusInternalServerError
				msg = "Login failed, please try again"
				s.events.LogError(r.Context(), "Login failed", err, applog.ComponentAuth, applog.OpLogin, nil)
			} else {
				s.logger.WarnContext(r.Context(), "Invalid login attempt",
					applog.FieldPrincipal, name,
					applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
					"error_type", applog.ErrorTypeAuth)
			}
			s.render(w, r, "login.html", status, loginPage{
				layoutData: layoutData{Title: "Login"},
				Principal:  name,
				Error:      msg,
			})
			return
		}
		s.logger.InfoContext(r.Context(), "User logged in", applog.FieldPrincipal, p.String())
		redirect(w, r, "/")
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	s.auth.Logout(w, r)
	redirect(w, r, auth.LoginPath)
}
