package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sahayak/teacher-portal/backend/internal/models"
)

const (
	pathAsk           = "/ask_sahayak"
	pathLessonPlan    = "/generate_lesson_plan"
	pathQuiz          = "/generate_quiz"
	pathStudyMaterial = "/generate_study_material"
	pathVisualAid     = "/generate_visual_aid"
	pathWorksheet     = "/generate_worksheet_from_image"
	pathEvaluateQuiz  = "/evaluate_quiz"
	pathUploadFile    = "/upload_file"
)

// checkResp returns a *RemoteError if the status is not 2xx. The upstream
// body is kept for the logs.
func checkResp(resp *http.Response, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	return &RemoteError{Path: path, Status: resp.StatusCode, Body: string(body)}
}

// Client calls the AI content service over HTTP. Every call is a single
// attempt; nothing is retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient builds a client for baseURL. A zero timeout leaves the
// transport default in place.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "ai-client").Logger(),
	}
}

// Ask sends a question, continuing conv when it carries a session id.
func (c *Client) Ask(ctx context.Context, question string, conv Conversation, userID string) (AskResult, error) {
	req := AskRequest{Question: question, SessionID: conv.SessionID, UserID: userID}
	if errs := Validate(req); len(errs) > 0 {
		return AskResult{}, &ValidationError{Fields: errs}
	}

	var result AskResult
	if err := c.postJSON(ctx, pathAsk, req, &result); err != nil {
		return AskResult{}, err
	}
	if result.Answer == "" || result.SessionID == "" {
		return AskResult{}, fmt.Errorf("%s: %w", pathAsk, ErrInvalidResponse)
	}
	return result, nil
}

// GenerateLessonPlan calls POST /generate_lesson_plan.
func (c *Client) GenerateLessonPlan(ctx context.Context, req LessonPlanRequest) (URLResult, error) {
	return c.generateURL(ctx, pathLessonPlan, req)
}

// GenerateQuiz calls POST /generate_quiz.
func (c *Client) GenerateQuiz(ctx context.Context, req QuizRequest) (QuizResult, error) {
	if errs := Validate(req); len(errs) > 0 {
		return QuizResult{}, &ValidationError{Fields: errs}
	}
	var result QuizResult
	if err := c.postJSON(ctx, pathQuiz, req, &result); err != nil {
		return QuizResult{}, err
	}
	if !AbsoluteURL(result.URL) {
		return QuizResult{}, fmt.Errorf("%s: %w", pathQuiz, ErrInvalidResponse)
	}
	if result.EvaluationJSONURL != "" && !AbsoluteURL(result.EvaluationJSONURL) {
		c.log.Warn().Str("path", pathQuiz).Str("evaluation_json_url", result.EvaluationJSONURL).
			Msg("dropping non-absolute answer key url")
		result.EvaluationJSONURL = ""
	}
	return result, nil
}

// GenerateStudyMaterial calls POST /generate_study_material.
func (c *Client) GenerateStudyMaterial(ctx context.Context, req StudyMaterialRequest) (URLResult, error) {
	return c.generateURL(ctx, pathStudyMaterial, req)
}

// GenerateVisualAid calls POST /generate_visual_aid.
func (c *Client) GenerateVisualAid(ctx context.Context, req VisualAidRequest) (URLResult, error) {
	return c.generateURL(ctx, pathVisualAid, req)
}

// GenerateWorksheetFromImage calls POST /generate_worksheet_from_image. The
// data URI header is stripped; the base64 payload is sent as-is.
func (c *Client) GenerateWorksheetFromImage(ctx context.Context, req WorksheetImageRequest) (URLResult, error) {
	if errs := Validate(req); len(errs) > 0 {
		return URLResult{}, &ValidationError{Fields: errs}
	}
	req.ImageBase64 = StripDataURIPrefix(req.ImageBase64)
	return c.sendForURL(ctx, pathWorksheet, req)
}

// EvaluateQuiz calls POST /evaluate_quiz. The reply is returned as an
// opaque payload.
func (c *Client) EvaluateQuiz(ctx context.Context, submissionURL, answerKeyURL string) (models.Evaluation, error) {
	req := EvaluateRequest{StudentSubmissionURL: submissionURL, EvaluationJSONURL: answerKeyURL}
	if errs := Validate(req); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	var result models.Evaluation
	if err := c.postJSON(ctx, pathEvaluateQuiz, req, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%s: %w", pathEvaluateQuiz, ErrInvalidResponse)
	}
	return result, nil
}

// UploadFile sends data as the multipart "file" field of POST /upload_file
// and returns the stored URL. Type and size checks are the caller's job.
func (c *Client) UploadFile(ctx context.Context, filename, contentType string, data []byte) (URLResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return URLResult{}, fmt.Errorf("upload: build form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return URLResult{}, fmt.Errorf("upload: build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return URLResult{}, fmt.Errorf("upload: build form: %w", err)
	}

	resp, err := c.post(ctx, pathUploadFile, mw.FormDataContentType(), &buf)
	if err != nil {
		return URLResult{}, err
	}
	defer resp.Body.Close()

	if err := checkResp(resp, pathUploadFile); err != nil {
		return URLResult{}, err
	}
	var result URLResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return URLResult{}, fmt.Errorf("%s: decode: %v: %w", pathUploadFile, err, ErrInvalidResponse)
	}
	if !AbsoluteURL(result.URL) {
		return URLResult{}, fmt.Errorf("%s: %w", pathUploadFile, ErrInvalidResponse)
	}
	return result, nil
}

func (c *Client) generateURL(ctx context.Context, path string, req interface{}) (URLResult, error) {
	if errs := Validate(req); len(errs) > 0 {
		return URLResult{}, &ValidationError{Fields: errs}
	}
	return c.sendForURL(ctx, path, req)
}

func (c *Client) sendForURL(ctx context.Context, path string, req interface{}) (URLResult, error) {
	var result URLResult
	if err := c.postJSON(ctx, path, req, &result); err != nil {
		return URLResult{}, err
	}
	if !AbsoluteURL(result.URL) {
		return URLResult{}, fmt.Errorf("%s: %w", path, ErrInvalidResponse)
	}
	return result, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", path, err)
	}
	resp, err := c.post(ctx, path, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkResp(resp, path); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %v: %w", path, err, ErrInvalidResponse)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}
	c.log.Debug().Str("path", path).Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).Msg("ai-service call")
	return resp, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
