package generation

// Request bodies sent to the AI service. The validate tags are the form
// rules checked by Validate before anything leaves the process.

type LessonPlanRequest struct {
	Subject string `json:"subject" validate:"min=3"`
	Grade   string `json:"grade"   validate:"required"`
	Topic   string `json:"topic"   validate:"min=3"`
}

type QuizRequest struct {
	Subject     string `json:"subject"               validate:"min=3"`
	Grade       string `json:"grade"                 validate:"required"`
	Topic       string `json:"topic,omitempty"`
	Description string `json:"description,omitempty"`
}

type StudyMaterialRequest struct {
	Subject     string `json:"subject"               validate:"min=3"`
	Grade       string `json:"grade"                 validate:"required"`
	Topic       string `json:"topic,omitempty"`
	Description string `json:"description,omitempty"`
}

type VisualAidRequest struct {
	Subject     string `json:"subject"               validate:"min=3"`
	Grade       string `json:"grade"                 validate:"required"`
	Topic       string `json:"topic"                 validate:"min=3"`
	Description string `json:"description,omitempty"`
}

// WorksheetImageRequest carries the source image as a data URI
// ("data:<mime>;base64,<payload>"). Only the payload is transmitted.
type WorksheetImageRequest struct {
	ImageBase64   string `json:"image_base64"   validate:"required"`
	ImageFilename string `json:"image_filename" validate:"required"`
	Grade         string `json:"grade"          validate:"required"`
	Subject       string `json:"subject"        validate:"min=3"`
	Topic         string `json:"topic"          validate:"min=3"`
	Description   string `json:"description"`
}

type AskRequest struct {
	Question  string `json:"question"             validate:"required"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

type EvaluateRequest struct {
	StudentSubmissionURL string `json:"student_submission_url" validate:"required,url"`
	EvaluationJSONURL    string `json:"evaluation_json_url"    validate:"required,url"`
}

// URLResult points at a generated document.
type URLResult struct {
	URL string `json:"url"`
}

// QuizResult is a quiz document plus, when the service provides one, the
// answer key used later for evaluation.
type QuizResult struct {
	URL               string `json:"url"`
	EvaluationJSONURL string `json:"evaluation_json_url,omitempty"`
}

type AskResult struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
}

// Conversation is the handle a caller threads through successive Ask calls.
// The zero value starts a new conversation.
type Conversation struct {
	SessionID string
}

// Conversation returns the handle that continues this exchange.
func (r AskResult) Conversation() Conversation {
	return Conversation{SessionID: r.SessionID}
}
