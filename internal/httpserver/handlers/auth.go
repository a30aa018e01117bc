package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/leakdesk/internal/auth"
	"github.com/MrSnakeDoc/leakdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
	"github.com/MrSnakeDoc/leakdesk/internal/utils"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type sessionUser struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Login accepts a JSON body or a form post and opens a dashboard session.
func Login(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeLogin(w, r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed login request", nil)
			return
		}

		s, err := d.Auth.Login(r.Context(), req.Username, req.Password, req.Remember)
		switch {
		case errors.Is(err, auth.ErrMissingCredentials):
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		case errors.Is(err, auth.ErrInvalidCredentials):
			d.Logger.Warn("dashboard login rejected",
				logger.String("username", req.Username),
				logger.String("remote_ip", utils.ClientIP(r, d.TrustProxy)))
			writeError(w, http.StatusUnauthorized, err.Error(), nil)
			return
		case err != nil:
			d.Logger.Error("dashboard login failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "session could not be created", nil)
			return
		}

		d.Auth.SetCookie(w, s)
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"user":       sessionUser{Username: s.Username, Name: s.Name, Role: s.Role},
			"login_time": s.LoginTime,
		})
	}
}

func decodeLogin(w http.ResponseWriter, r *http.Request) (loginRequest, error) {
	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req)
		return req, err
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.Username = r.PostForm.Get("username")
	req.Password = r.PostForm.Get("password")
	req.Remember, _ = strconv.ParseBool(r.PostForm.Get("remember"))
	if r.PostForm.Get("remember") == "on" {
		req.Remember = true
	}
	return req, nil
}

// Logout ends the current session. It succeeds without a session too.
func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Auth.Logout(w, r)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}
