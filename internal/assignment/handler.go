package assignment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sahayak/teacher-portal/backend/internal/auth"
	"github.com/sahayak/teacher-portal/backend/internal/models"
	"github.com/sahayak/teacher-portal/backend/internal/response"
)

// Handler holds classroom, content and library HTTP handlers.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// SaveResult is the reply to a successful save.
type SaveResult struct {
	State   State                  `json:"state"`
	Records []models.ContentRecord `json:"records"`
}

// ListClassrooms returns the caller's classrooms.
func (h *Handler) ListClassrooms(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserIDFrom(r.Context())
	rooms, err := h.svc.Classrooms(r.Context(), uid)
	if err != nil {
		h.svc.log.Error().Err(err).Str("teacher_id", uid).Msg("list classrooms failed")
		response.Fail(w, r, http.StatusBadGateway, response.ErrClassroomsFailed)
		return
	}
	if rooms == nil {
		rooms = []models.Classroom{}
	}
	response.Success(w, r, http.StatusOK, rooms)
}

// Save assigns a generated draft to the selected classrooms and/or the
// library.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserIDFrom(r.Context())
	if uid == "" {
		response.Fail(w, r, http.StatusUnauthorized, response.ErrUnauthenticated)
		return
	}

	var req models.SaveContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, r, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	wf := h.svc.NewWorkflow()
	if err := wf.Generated(req.Content); err != nil {
		response.FailWithFields(w, r, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"content": err.Error()})
		return
	}
	if err := wf.BeginAssigning(r.Context(), uid); err != nil {
		response.Fail(w, r, http.StatusBadGateway, response.ErrClassroomsFailed)
		return
	}
	for _, id := range req.ClassroomIDs {
		if contains(wf.Selected(), id) {
			continue
		}
		if err := wf.Toggle(id); err != nil {
			response.FailWithFields(w, r, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"classroom_ids": err.Error()})
			return
		}
	}
	wf.SetAddToLibrary(req.AddToLibrary)

	recs, err := wf.Save(r.Context(), uid)
	if err != nil {
		var perr *PartialSaveError
		switch {
		case errors.Is(err, ErrUnauthenticated):
			response.Fail(w, r, http.StatusUnauthorized, response.ErrUnauthenticated)
		case errors.As(err, &perr):
			response.Fail(w, r, http.StatusInternalServerError, response.ErrPartialSave)
		default:
			response.Fail(w, r, http.StatusInternalServerError, response.ErrSaveFailed)
		}
		return
	}

	response.Success(w, r, http.StatusCreated, SaveResult{State: wf.State(), Records: recs})
}

// Library returns the caller's resource library grouped by content type.
func (h *Handler) Library(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserIDFrom(r.Context())
	groups, err := h.svc.Library(r.Context(), uid)
	if err != nil {
		h.svc.log.Error().Err(err).Str("user_id", uid).Msg("library fetch failed")
		response.Fail(w, r, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(w, r, http.StatusOK, groups)
}

// ClassroomContents returns one classroom and the content assigned to it.
func (h *Handler) ClassroomContents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !primitive.IsValidObjectID(id) {
		response.Fail(w, r, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	uid := auth.UserIDFrom(r.Context())
	view, err := h.svc.ClassroomContents(r.Context(), uid, id)
	if err != nil {
		if IsNotFound(err) {
			response.Fail(w, r, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.svc.log.Error().Err(err).Str("classroom_id", id).Msg("classroom fetch failed")
		response.Fail(w, r, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(w, r, http.StatusOK, view)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
