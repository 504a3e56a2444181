package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContentType enumerates the kinds of generated artifacts.
type ContentType string

const (
	ContentLessonPlan    ContentType = "lesson_plan"
	ContentQuiz          ContentType = "quiz"
	ContentStudyMaterial ContentType = "study_material"
	ContentWorksheet     ContentType = "worksheet"
	ContentVisualAid     ContentType = "visual_aid"
)

// Valid reports whether t is one of the known content types.
func (t ContentType) Valid() bool {
	switch t {
	case ContentLessonPlan, ContentQuiz, ContentStudyMaterial, ContentWorksheet, ContentVisualAid:
		return true
	}
	return false
}

// ContentDetails is the draft produced by a generation call and held until
// it is saved.
type ContentDetails struct {
	PDFURL            string      `json:"pdf_url"`
	Title             string      `json:"title"`
	Topic             string      `json:"topic"`
	Subject           string      `json:"subject"`
	Grade             string      `json:"grade"`
	ContentType       ContentType `json:"content_type"`
	UserPrompt        string      `json:"user_prompt"`
	EvaluationJSONURL string      `json:"evaluation_json_url,omitempty"`
}

// ContentData is the display block embedded in every content record.
type ContentData struct {
	Title         string `json:"title"          bson:"title"`
	ClassroomName string `json:"classroom_name" bson:"classroom_name"`
	Topic         string `json:"topic"          bson:"topic"`
	URL           string `json:"url"            bson:"url"`
}

// ContentRecord places one artifact in a classroom and/or the library.
// Stored in the MongoDB contents collection.
type ContentRecord struct {
	ID                 primitive.ObjectID `json:"id"                   bson:"_id,omitempty"`
	ContentID          int64              `json:"content_id"           bson:"content_id"`
	ContentType        ContentType        `json:"content_type"         bson:"content_type"`
	Language           string             `json:"language"             bson:"language"`
	Grade              int                `json:"grade"                bson:"grade"`
	Subject            string             `json:"subject"              bson:"subject"`
	Topic              string             `json:"topic"                bson:"topic"`
	UserPrompt         string             `json:"user_prompt"          bson:"user_prompt"`
	GeneratedBy        string             `json:"generated_by"         bson:"generated_by"`
	CreatedBy          string             `json:"created_by"           bson:"created_by"`
	RelatedClassroomID string             `json:"related_classroom_id" bson:"related_classroom_id"`
	UploadFileURL      *string            `json:"upload_file_url"      bson:"upload_file_url"`
	ContentFileURL     string             `json:"content_file_url"     bson:"content_file_url"`
	AddToLibrary       bool               `json:"add_to_library_ind"   bson:"add_to_library_ind"`
	ContentData        ContentData        `json:"content_data"         bson:"content_data"`
	CreateDate         time.Time          `json:"create_date"          bson:"create_date"`
}

// Classroom is a teacher-owned grouping of students. Owned by the
// teacher-management flow; read-only here.
type Classroom struct {
	ID         primitive.ObjectID `json:"id"          bson:"_id,omitempty"`
	Name       string             `json:"name"        bson:"name"`
	Grade      string             `json:"grade"       bson:"grade"`
	Subject    string             `json:"subject"     bson:"subject"`
	TeacherID  string             `json:"teacher_id"  bson:"teacher_id,omitempty"`
	StudentIDs []string           `json:"student_ids" bson:"student_ids,omitempty"`
}

// SaveContentRequest is the JSON body for POST /api/contents.
type SaveContentRequest struct {
	Content      ContentDetails `json:"content"`
	ClassroomIDs []string       `json:"classroom_ids"`
	AddToLibrary bool           `json:"add_to_library"`
}
