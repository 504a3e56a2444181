package response

// ErrCode identifies an API error class. Messages returned to the client are
// derived from the code only; technical detail stays in the logs.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrUnauthenticated ErrCode = "UNAUTHENTICATED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrInvalidID      ErrCode = "INVALID_ID"

	// ─── Upstream services ─────────────────────────────────────────────
	ErrTransport       ErrCode = "TRANSPORT_ERROR"
	ErrRemote          ErrCode = "REMOTE_ERROR"
	ErrInvalidResponse ErrCode = "INVALID_RESPONSE"
	ErrUploadFailed    ErrCode = "UPLOAD_FAILED"
	ErrEvaluation      ErrCode = "EVALUATION_FAILED"

	// ─── Content ───────────────────────────────────────────────────────
	ErrPartialSave      ErrCode = "PARTIAL_SAVE"
	ErrSaveFailed       ErrCode = "SAVE_FAILED"
	ErrClassroomsFailed ErrCode = "CLASSROOMS_UNAVAILABLE"
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrRequestInFlight  ErrCode = "REQUEST_IN_FLIGHT"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns the user-facing message for a code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrUnauthenticated:
		return "You must be logged in to do that."

	case ErrValidation:
		return "Please correct the highlighted fields."
	case ErrInvalidPayload:
		return "The request could not be read."
	case ErrInvalidID:
		return "Invalid identifier."

	case ErrTransport:
		return "Could not reach the content service. Please check your connection and try again."
	case ErrRemote:
		return "Failed to generate content. Please try again."
	case ErrInvalidResponse:
		return "Invalid response from server."
	case ErrUploadFailed:
		return "File upload failed."
	case ErrEvaluation:
		return "Failed to evaluate the quiz."

	case ErrPartialSave:
		return "Some classroom assignments could not be saved. Please try again."
	case ErrSaveFailed:
		return "Failed to save content."
	case ErrClassroomsFailed:
		return "Failed to fetch classrooms."
	case ErrNotFound:
		return "Not found."
	case ErrRequestInFlight:
		return "A request is already in progress."

	case ErrInternal:
		return "Something went wrong on our side."
	default:
		return "An unexpected error occurred."
	}
}
