package assignment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sahayak/teacher-portal/backend/internal/generation"
	"github.com/sahayak/teacher-portal/backend/internal/models"
)

// State is a step of the save-and-assign flow.
type State string

const (
	StateDrafting  State = "drafting"
	StateGenerated State = "generated"
	StateAssigning State = "assigning"
	StateSaved     State = "saved"
	StateFailed    State = "failed"
)

var (
	ErrUnauthenticated  = errors.New("you must be logged in to save content")
	ErrInvalidState     = errors.New("operation not allowed in current state")
	ErrUnknownClassroom = errors.New("classroom is not one of yours")
	ErrClassroomsBusy   = errors.New("classrooms are still loading")
	ErrInvalidDraft     = errors.New("generated content is incomplete")
)

// PartialSaveError reports a save where at least one record write failed.
// Records that were written stay written.
type PartialSaveError struct {
	Written int
	Failed  int
	Errs    []error
}

func (e *PartialSaveError) Error() string {
	return fmt.Sprintf("saved %d of %d content records: %v",
		e.Written, e.Written+e.Failed, errors.Join(e.Errs...))
}

func (e *PartialSaveError) Unwrap() []error { return e.Errs }

// ClassroomStore reads classrooms owned by a teacher.
type ClassroomStore interface {
	ListClassroomsByTeacher(ctx context.Context, teacherID string) ([]models.Classroom, error)
	GetClassroom(ctx context.Context, id string) (*models.Classroom, error)
}

// ContentStore persists content records.
type ContentStore interface {
	InsertContent(ctx context.Context, rec *models.ContentRecord) (string, error)
	ListLibrary(ctx context.Context, userID string) ([]models.ContentRecord, error)
	ListByClassroom(ctx context.Context, classroomID string) ([]models.ContentRecord, error)
}

// Workflow owns one generated artifact from preview until it is saved.
// It is not safe for concurrent use.
type Workflow struct {
	state State
	draft models.ContentDetails

	classrooms []models.Classroom
	loading    atomic.Bool
	selection  *Selection
	library    bool
	lastErr    error

	rooms    ClassroomStore
	contents ContentStore
	ids      *IDGenerator
	log      zerolog.Logger
}

func newWorkflow(rooms ClassroomStore, contents ContentStore, ids *IDGenerator, log zerolog.Logger) *Workflow {
	return &Workflow{
		state:     StateDrafting,
		selection: NewSelection(),
		rooms:     rooms,
		contents:  contents,
		ids:       ids,
		log:       log,
	}
}

func (w *Workflow) State() State { return w.state }
func (w *Workflow) Draft() models.ContentDetails { return w.draft }
func (w *Workflow) Classrooms() []models.Classroom { return w.classrooms }
func (w *Workflow) Selected() []string { return w.selection.IDs() }
func (w *Workflow) AddToLibrary() bool { return w.library }
func (w *Workflow) Err() error { return w.lastErr }

// Loading reports whether classrooms are being fetched. Selection is
// disabled meanwhile.
func (w *Workflow) Loading() bool { return w.loading.Load() }

// Generated records the artifact returned by the generation service. The
// selection starts empty.
func (w *Workflow) Generated(draft models.ContentDetails) error {
	if w.state != StateDrafting && w.state != StateGenerated {
		return ErrInvalidState
	}
	if !validDraft(draft) {
		return ErrInvalidDraft
	}
	w.draft = draft
	w.selection = NewSelection()
	w.library = false
	w.state = StateGenerated
	return nil
}

// BeginAssigning moves to the assigning step and loads the caller's
// classrooms. An anonymous caller gets an empty list.
func (w *Workflow) BeginAssigning(ctx context.Context, teacherID string) error {
	if w.state != StateGenerated {
		return ErrInvalidState
	}
	w.state = StateAssigning
	w.classrooms = nil
	if teacherID == "" {
		return nil
	}

	w.loading.Store(true)
	defer w.loading.Store(false)
	rooms, err := w.rooms.ListClassroomsByTeacher(ctx, teacherID)
	if err != nil {
		w.log.Error().Err(err).Str("teacher_id", teacherID).Msg("fetch classrooms failed")
		return fmt.Errorf("fetch classrooms: %w", err)
	}
	w.classrooms = rooms
	return nil
}

// Toggle adds or removes a classroom from the selection.
func (w *Workflow) Toggle(classroomID string) error {
	if w.state != StateAssigning {
		return ErrInvalidState
	}
	if w.Loading() {
		return ErrClassroomsBusy
	}
	if _, ok := w.classroom(classroomID); !ok {
		return ErrUnknownClassroom
	}
	w.selection.Toggle(classroomID)
	return nil
}

// SetAddToLibrary sets the flag copied onto every saved record.
func (w *Workflow) SetAddToLibrary(v bool) error {
	if w.state != StateAssigning {
		return ErrInvalidState
	}
	w.library = v
	return nil
}

// Save writes one record per selected classroom, concurrently, or a single
// unassigned record when nothing is selected. All writes are awaited; if
// any failed the workflow moves to StateFailed with a *PartialSaveError.
// There is no rollback of the writes that succeeded.
func (w *Workflow) Save(ctx context.Context, userID string) ([]models.ContentRecord, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if w.state != StateAssigning {
		return nil, ErrInvalidState
	}

	ids := w.selection.IDs()
	if len(ids) == 0 {
		rec := w.record(userID, "", "")
		if _, err := w.contents.InsertContent(ctx, &rec); err != nil {
			w.fail(err)
			return nil, fmt.Errorf("save content: %w", err)
		}
		w.state = StateSaved
		return []models.ContentRecord{rec}, nil
	}

	recs := make([]models.ContentRecord, len(ids))
	errs := make([]error, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		room, _ := w.classroom(id)
		recs[i] = w.record(userID, id, room.Name)
		g.Go(func() error {
			_, err := w.contents.InsertContent(ctx, &recs[i])
			errs[i] = err
			return err
		})
	}
	g.Wait()

	var perr PartialSaveError
	saved := make([]models.ContentRecord, 0, len(recs))
	for i, err := range errs {
		if err != nil {
			perr.Failed++
			perr.Errs = append(perr.Errs, fmt.Errorf("classroom %s: %w", ids[i], err))
			continue
		}
		perr.Written++
		saved = append(saved, recs[i])
	}
	if perr.Failed > 0 {
		w.fail(&perr)
		return saved, &perr
	}
	w.state = StateSaved
	return saved, nil
}

// Retry returns a failed save to the assigning step with the selection
// intact.
func (w *Workflow) Retry() error {
	if w.state != StateFailed {
		return ErrInvalidState
	}
	w.state = StateAssigning
	w.lastErr = nil
	return nil
}

// validDraft holds drafts from the request body to the same rules the
// generation calls enforce.
func validDraft(d models.ContentDetails) bool {
	return generation.AbsoluteURL(d.PDFURL) &&
		d.ContentType.Valid() &&
		utf8.RuneCountInString(strings.TrimSpace(d.Subject)) >= 3 &&
		strings.TrimSpace(d.Grade) != ""
}

func (w *Workflow) fail(err error) {
	w.state = StateFailed
	w.lastErr = err
	w.log.Error().Err(err).Str("content_type", string(w.draft.ContentType)).Msg("save content failed")
}

func (w *Workflow) classroom(id string) (models.Classroom, bool) {
	for _, c := range w.classrooms {
		if c.ID.Hex() == id {
			return c, true
		}
	}
	return models.Classroom{}, false
}

func (w *Workflow) record(userID, classroomID, classroomName string) models.ContentRecord {
	d := w.draft
	return models.ContentRecord{
		ContentID:          w.ids.Next(),
		ContentType:        d.ContentType,
		Language:           "english",
		Grade:              parseGrade(d.Grade),
		Subject:            d.Subject,
		Topic:              d.Topic,
		UserPrompt:         d.UserPrompt,
		GeneratedBy:        "gemini",
		CreatedBy:          userID,
		RelatedClassroomID: classroomID,
		ContentFileURL:     d.PDFURL,
		AddToLibrary:       w.library,
		ContentData: models.ContentData{
			Title:         d.Title,
			ClassroomName: classroomName,
			Topic:         d.Topic,
			URL:           d.PDFURL,
		},
	}
}

// parseGrade reads the leading integer of a grade label ("10", "7th").
// Anything without one, or zero, is grade 1.
func parseGrade(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n == 0 {
		return 1
	}
	return n
}
