package evaluation

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sahayak/teacher-portal/backend/internal/auth"
	"github.com/sahayak/teacher-portal/backend/internal/generation"
	"github.com/sahayak/teacher-portal/backend/internal/models"
	"github.com/sahayak/teacher-portal/backend/internal/response"
)

var errFileTooLarge = &generation.ValidationError{Fields: []generation.FieldError{
	{Field: "file", Message: "Max file size is 5MB."},
}}

// Handler grades quiz submissions over HTTP.
type Handler struct {
	uploader  Uploader
	evaluator Evaluator
	archive   Archive
	log       zerolog.Logger
}

// NewHandler builds the handler. archive may be nil.
func NewHandler(uploader Uploader, evaluator Evaluator, archive Archive, log zerolog.Logger) *Handler {
	return &Handler{
		uploader:  uploader,
		evaluator: evaluator,
		archive:   archive,
		log:       log.With().Str("component", "evaluation").Logger(),
	}
}

// Result is the reply to a graded submission. Evaluation is the service's
// payload untouched; Report holds the fields the UI renders.
type Result struct {
	State         State             `json:"state"`
	SubmissionURL string            `json:"submission_url"`
	Report        Report            `json:"report"`
	Evaluation    models.Evaluation `json:"evaluation"`
}

// Submit takes a multipart form with a "file" part and the quiz's
// "evaluation_json_url".
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserIDFrom(r.Context())
	if uid == "" {
		response.Fail(w, r, http.StatusUnauthorized, response.ErrUnauthenticated)
		return
	}

	// Leave headroom over the file limit so most oversize files reach
	// Validate. Bodies past the headroom get the same field message.
	const bodyLimit = 2 * generation.MaxUploadBytes
	if r.ContentLength > bodyLimit {
		h.fail(w, r, errFileTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := r.ParseMultipartForm(generation.MaxUploadBytes); err != nil {
		var mberr *http.MaxBytesError
		if errors.As(err, &mberr) {
			h.fail(w, r, errFileTooLarge)
			return
		}
		response.Fail(w, r, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	var sub Submission
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, generation.MaxUploadBytes+1))
		if err != nil {
			response.Fail(w, r, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		sub = Submission{Filename: header.Filename, Data: data}
	}

	wf := NewWorkflow(h.uploader, h.evaluator, h.archive, h.log)
	ev, err := wf.Submit(r.Context(), uid, r.FormValue("evaluation_json_url"), sub)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, r, http.StatusOK, Result{
		State:         wf.State(),
		SubmissionURL: wf.SubmissionURL(),
		Report:        NewReport(ev),
		Evaluation:    ev,
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *generation.ValidationError
	if errors.As(err, &verr) {
		response.FailWithFields(w, r, http.StatusBadRequest, response.ErrValidation, verr.FieldMap())
		return
	}

	status, code, _ := generation.Classify(err)
	var serr *StepError
	if errors.As(err, &serr) && code == response.ErrRemote {
		// Upstream detail was logged by the workflow; name the step only.
		if serr.Step == StateUploading {
			code = response.ErrUploadFailed
		} else {
			code = response.ErrEvaluation
		}
	}
	response.Fail(w, r, status, code)
}
