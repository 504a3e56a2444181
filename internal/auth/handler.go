package auth

import (
	"encoding/json"
	"net/http"

	"github.com/sahayak/teacher-portal/backend/internal/models"
	"github.com/sahayak/teacher-portal/backend/internal/response"
)

// Handler holds session HTTP handlers.
type Handler struct {
	gateway      *Gateway
	secureCookie bool
}

func NewHandler(gateway *Gateway, secureCookie bool) *Handler {
	return &Handler{gateway: gateway, secureCookie: secureCookie}
}

// Login exchanges an identity token for the __session cookie. The body of
// the reply is always the {success, error} result.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.JSON(w, http.StatusBadRequest, Result{Error: "Failed to create session cookie. invalid request body"})
		return
	}

	res := h.gateway.EstablishSession(r.Context(), req.IDToken)
	if !res.Success {
		response.JSON(w, http.StatusUnauthorized, res)
		return
	}

	http.SetCookie(w, SessionCookieFor(res.Token, h.secureCookie))
	response.JSON(w, http.StatusOK, res)
}

// Logout destroys the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		h.gateway.Logout(r.Context(), cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		MaxAge:   -1,
	})
	response.JSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me returns the currently authenticated teacher.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	uid := UserIDFrom(r.Context())
	if uid == "" {
		response.Fail(w, r, http.StatusUnauthorized, response.ErrUnauthenticated)
		return
	}

	teacher, err := h.gateway.Profile(r.Context(), uid)
	if err != nil || teacher == nil {
		response.Fail(w, r, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Success(w, r, http.StatusOK, teacher)
}
