package evaluation

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sahayak/teacher-portal/backend/internal/generation"
	"github.com/sahayak/teacher-portal/backend/internal/models"
)

// State is a step of the submission evaluation flow.
type State string

const (
	StateAwaitingUpload State = "awaiting_upload"
	StateUploading      State = "uploading"
	StateEvaluating     State = "evaluating"
	StateEvaluated      State = "evaluated"
	StateFailed         State = "failed"
)

// AcceptedSubmissionTypes are the MIME types a student submission may have.
var AcceptedSubmissionTypes = []string{"image/jpeg", "image/png", "application/pdf"}

var ErrInvalidState = errors.New("operation not allowed in current state")

// StepError is a failure in the upload or evaluation step.
type StepError struct {
	Step State
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("%s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

// Uploader stores a file remotely and returns its URL.
type Uploader interface {
	UploadFile(ctx context.Context, filename, contentType string, data []byte) (generation.URLResult, error)
}

// Evaluator grades a submission against an answer key.
type Evaluator interface {
	EvaluateQuiz(ctx context.Context, submissionURL, answerKeyURL string) (models.Evaluation, error)
}

// Archive keeps a local copy of submissions.
type Archive interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// Submission is the student's answer sheet.
type Submission struct {
	Filename string
	Data     []byte
}

// Report is what the teacher sees after grading.
type Report struct {
	Overall    models.OverallScore     `json:"overall"`
	HasOverall bool                    `json:"has_overall"`
	Questions  []models.QuestionResult `json:"questions"`
}

// NewReport reads the displayed fields out of an evaluation.
func NewReport(ev models.Evaluation) Report {
	overall, ok := ev.Overall()
	return Report{Overall: overall, HasOverall: ok, Questions: ev.Questions()}
}

// Workflow evaluates one submission at a time. It is not safe for
// concurrent use.
type Workflow struct {
	state         State
	submissionURL string
	result        models.Evaluation
	lastErr       error

	uploader  Uploader
	evaluator Evaluator
	archive   Archive
	log       zerolog.Logger
}

// NewWorkflow starts in StateAwaitingUpload. archive may be nil.
func NewWorkflow(uploader Uploader, evaluator Evaluator, archive Archive, log zerolog.Logger) *Workflow {
	return &Workflow{
		state:     StateAwaitingUpload,
		uploader:  uploader,
		evaluator: evaluator,
		archive:   archive,
		log:       log,
	}
}

func (w *Workflow) State() State { return w.state }
func (w *Workflow) Result() models.Evaluation { return w.result }
func (w *Workflow) SubmissionURL() string { return w.submissionURL }
func (w *Workflow) Err() error { return w.lastErr }

// Validate checks a submission. Violations leave the workflow waiting for
// a new file.
func Validate(sub Submission, answerKeyURL string) []generation.FieldError {
	var errs []generation.FieldError
	switch {
	case answerKeyURL == "":
		errs = append(errs, generation.FieldError{Field: "evaluation_json_url", Message: "The quiz has no answer key."})
	case !generation.AbsoluteURL(answerKeyURL):
		errs = append(errs, generation.FieldError{Field: "evaluation_json_url", Message: "The answer key link is not a valid URL."})
	}
	if len(sub.Data) == 0 {
		return append(errs, generation.FieldError{Field: "file", Message: "File is required."})
	}
	if len(sub.Data) > generation.MaxUploadBytes {
		errs = append(errs, generation.FieldError{Field: "file", Message: "Max file size is 5MB."})
	}
	if !accepted(mimetype.Detect(sub.Data)) {
		errs = append(errs, generation.FieldError{Field: "file", Message: "Only JPG, PNG, or PDF files are accepted."})
	}
	return errs
}

func accepted(m *mimetype.MIME) bool {
	for _, t := range AcceptedSubmissionTypes {
		if m.Is(t) {
			return true
		}
	}
	return false
}

// Submit uploads the submission, then asks for it to be graded against
// answerKeyURL. Nothing is retried; on failure the workflow is in
// StateFailed until Reset.
func (w *Workflow) Submit(ctx context.Context, userID, answerKeyURL string, sub Submission) (models.Evaluation, error) {
	if w.state != StateAwaitingUpload {
		return nil, ErrInvalidState
	}
	if errs := Validate(sub, answerKeyURL); len(errs) > 0 {
		return nil, &generation.ValidationError{Fields: errs}
	}
	mime := mimetype.Detect(sub.Data)

	w.state = StateUploading
	w.archiveCopy(ctx, userID, sub, mime)
	up, err := w.uploader.UploadFile(ctx, sub.Filename, mime.String(), sub.Data)
	if err != nil {
		return nil, w.fail(StateUploading, err)
	}
	w.submissionURL = up.URL

	w.state = StateEvaluating
	ev, err := w.evaluator.EvaluateQuiz(ctx, up.URL, answerKeyURL)
	if err != nil {
		return nil, w.fail(StateEvaluating, err)
	}

	w.result = ev
	w.state = StateEvaluated
	return ev, nil
}

// Reset returns to StateAwaitingUpload for another submission.
func (w *Workflow) Reset() error {
	if w.state != StateFailed && w.state != StateEvaluated {
		return ErrInvalidState
	}
	w.state = StateAwaitingUpload
	w.submissionURL = ""
	w.result = nil
	w.lastErr = nil
	return nil
}

func (w *Workflow) fail(step State, err error) error {
	serr := &StepError{Step: step, Err: err}
	w.state = StateFailed
	w.lastErr = serr
	w.log.Error().Err(err).Str("step", string(step)).Msg("quiz evaluation failed")
	return serr
}

func (w *Workflow) archiveCopy(ctx context.Context, userID string, sub Submission, mime *mimetype.MIME) {
	if w.archive == nil {
		return
	}
	key := fmt.Sprintf("submissions/%s/%s%s", userID, uuid.New().String(), mime.Extension())
	if err := w.archive.Upload(ctx, key, sub.Data, mime.String()); err != nil {
		w.log.Warn().Err(err).Str("key", key).Msg("submission archive failed")
	}
}
