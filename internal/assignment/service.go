package assignment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sahayak/teacher-portal/backend/internal/models"
	"github.com/sahayak/teacher-portal/backend/internal/store"
)

// Service creates workflows and serves the library and classroom views.
type Service struct {
	rooms    ClassroomStore
	contents ContentStore
	ids      *IDGenerator
	log      zerolog.Logger
}

func NewService(rooms ClassroomStore, contents ContentStore, ids *IDGenerator, log zerolog.Logger) *Service {
	return &Service{
		rooms:    rooms,
		contents: contents,
		ids:      ids,
		log:      log.With().Str("component", "assignment").Logger(),
	}
}

// NewWorkflow starts a workflow in StateDrafting.
func (s *Service) NewWorkflow() *Workflow {
	return newWorkflow(s.rooms, s.contents, s.ids, s.log)
}

// Classrooms lists the caller's classrooms.
func (s *Service) Classrooms(ctx context.Context, teacherID string) ([]models.Classroom, error) {
	return s.rooms.ListClassroomsByTeacher(ctx, teacherID)
}

// LibraryGroup is one content type's shelf in the resource library.
type LibraryGroup struct {
	Type  string                 `json:"type"`
	Label string                 `json:"label"`
	Items []models.ContentRecord `json:"items"`
}

// Library returns the caller's library records grouped by content type,
// groups ordered by type.
func (s *Service) Library(ctx context.Context, userID string) ([]LibraryGroup, error) {
	recs, err := s.contents.ListLibrary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list library: %w", err)
	}

	byType := make(map[string][]models.ContentRecord)
	for _, r := range recs {
		t := string(r.ContentType)
		if t == "" {
			t = "uncategorized"
		}
		byType[t] = append(byType[t], r)
	}

	groups := make([]LibraryGroup, 0, len(byType))
	for t, items := range byType {
		groups = append(groups, LibraryGroup{Type: t, Label: TypeLabel(t), Items: items})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Type < groups[j].Type })
	return groups, nil
}

// ClassroomView is a classroom with the content assigned to it.
type ClassroomView struct {
	Classroom models.Classroom       `json:"classroom"`
	Contents  []models.ContentRecord `json:"contents"`
}

// ClassroomContents loads a classroom owned by teacherID and its content.
// Classrooms owned by someone else are reported as not found.
func (s *Service) ClassroomContents(ctx context.Context, teacherID, classroomID string) (*ClassroomView, error) {
	room, err := s.rooms.GetClassroom(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	if room.TeacherID != teacherID {
		return nil, store.ErrNotFound
	}
	recs, err := s.contents.ListByClassroom(ctx, classroomID)
	if err != nil {
		return nil, fmt.Errorf("list classroom contents: %w", err)
	}
	if recs == nil {
		recs = []models.ContentRecord{}
	}
	return &ClassroomView{Classroom: *room, Contents: recs}, nil
}

// TypeLabel turns "study_material" into "Study Material".
func TypeLabel(t string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(t))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// IsNotFound reports whether err means the classroom does not exist for the
// caller.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
