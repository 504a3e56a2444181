package generation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sahayak/teacher-portal/backend/internal/auth"
	"github.com/sahayak/teacher-portal/backend/internal/models"
	"github.com/sahayak/teacher-portal/backend/internal/response"
)

// Handler exposes the generation operations over HTTP. Each generate call
// answers with the draft the caller previews before saving.
type Handler struct {
	client *Client
	log    zerolog.Logger
}

func NewHandler(client *Client, log zerolog.Logger) *Handler {
	return &Handler{client: client, log: log.With().Str("component", "generation").Logger()}
}

// DraftResponse is the reply to every generate call.
type DraftResponse struct {
	Content models.ContentDetails `json:"content"`
}

func (h *Handler) LessonPlan(w http.ResponseWriter, r *http.Request) {
	var req LessonPlanRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.client.GenerateLessonPlan(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "lesson plan")
		return
	}
	h.draft(w, r, models.ContentDetails{
		PDFURL:      res.URL,
		Title:       req.Topic,
		Topic:       req.Topic,
		Subject:     req.Subject,
		Grade:       req.Grade,
		ContentType: models.ContentLessonPlan,
	})
}

func (h *Handler) Quiz(w http.ResponseWriter, r *http.Request) {
	var req QuizRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.client.GenerateQuiz(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "quiz")
		return
	}
	h.draft(w, r, models.ContentDetails{
		PDFURL:            res.URL,
		Title:             orDefault(req.Topic, "Quiz"),
		Topic:             orDefault(req.Topic, "General"),
		Subject:           req.Subject,
		Grade:             req.Grade,
		ContentType:       models.ContentQuiz,
		UserPrompt:        req.Description,
		EvaluationJSONURL: res.EvaluationJSONURL,
	})
}

func (h *Handler) StudyMaterial(w http.ResponseWriter, r *http.Request) {
	var req StudyMaterialRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.client.GenerateStudyMaterial(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "study material")
		return
	}
	h.draft(w, r, models.ContentDetails{
		PDFURL:      res.URL,
		Title:       orDefault(req.Topic, "Study Material"),
		Topic:       orDefault(req.Topic, "General"),
		Subject:     req.Subject,
		Grade:       req.Grade,
		ContentType: models.ContentStudyMaterial,
		UserPrompt:  req.Description,
	})
}

func (h *Handler) VisualAid(w http.ResponseWriter, r *http.Request) {
	var req VisualAidRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.client.GenerateVisualAid(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "visual aid")
		return
	}
	h.draft(w, r, models.ContentDetails{
		PDFURL:      res.URL,
		Title:       req.Topic,
		Topic:       req.Topic,
		Subject:     req.Subject,
		Grade:       req.Grade,
		ContentType: models.ContentVisualAid,
		UserPrompt:  req.Description,
	})
}

func (h *Handler) Worksheet(w http.ResponseWriter, r *http.Request) {
	var req WorksheetImageRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.client.GenerateWorksheetFromImage(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "worksheet")
		return
	}
	h.draft(w, r, models.ContentDetails{
		PDFURL:      res.URL,
		Title:       req.Topic,
		Topic:       req.Topic,
		Subject:     req.Subject,
		Grade:       req.Grade,
		ContentType: models.ContentWorksheet,
		UserPrompt:  orDefault(req.Description, "Worksheet from image: "+req.ImageFilename),
	})
}

// askBody is the inbound ask request; the user id comes from the session.
type askBody struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

// Ask forwards a question, continuing the conversation named by session_id.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserIDFrom(r.Context())
	if uid == "" {
		response.Fail(w, r, http.StatusUnauthorized, response.ErrUnauthenticated)
		return
	}
	var body askBody
	if !decode(w, r, &body) {
		return
	}
	res, err := h.client.Ask(r.Context(), body.Question, Conversation{SessionID: body.SessionID}, uid)
	if err != nil {
		h.fail(w, r, err, "ask")
		return
	}
	response.Success(w, r, http.StatusOK, res)
}

func (h *Handler) draft(w http.ResponseWriter, r *http.Request, d models.ContentDetails) {
	response.Success(w, r, http.StatusOK, DraftResponse{Content: d})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, op string) {
	status, code, fields := Classify(err)
	if code != response.ErrValidation {
		h.log.Error().Err(err).Str("op", op).Int("status", status).Msg("generation failed")
	}
	response.FailWithFields(w, r, status, code, fields)
}

// Classify maps a client error to the API status, code and field errors.
func Classify(err error) (int, response.ErrCode, map[string]string) {
	var (
		verr *ValidationError
		rerr *RemoteError
		terr *TransportError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, response.ErrValidation, verr.FieldMap()
	case errors.As(err, &rerr):
		return http.StatusBadGateway, response.ErrRemote, nil
	case errors.Is(err, ErrInvalidResponse):
		return http.StatusBadGateway, response.ErrInvalidResponse, nil
	case errors.As(err, &terr):
		return http.StatusBadGateway, response.ErrTransport, nil
	default:
		return http.StatusInternalServerError, response.ErrInternal, nil
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Fail(w, r, http.StatusBadRequest, response.ErrInvalidPayload)
		return false
	}
	return true
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
