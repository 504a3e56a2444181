package generation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

// fakeService records the last request and answers with a fixed reply.
type fakeService struct {
	status int
	reply  string

	calls    atomic.Int32
	lastPath string
	lastBody map[string]interface{}
	lastRaw  *http.Request
	upload   []byte
	partType string
	filename string
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	f.lastPath = r.URL.Path
	f.lastRaw = r
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err == nil {
			f.upload, _ = io.ReadAll(file)
			f.partType = header.Header.Get("Content-Type")
			f.filename = header.Filename
		}
	} else {
		f.lastBody = nil
		json.NewDecoder(r.Body).Decode(&f.lastBody)
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
	}
	io.WriteString(w, f.reply)
}

func newTestClient(t *testing.T, svc *fakeService) *Client {
	t.Helper()
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 0, zerolog.Nop())
}

var lessonPlan = LessonPlanRequest{Subject: "Science", Grade: "6", Topic: "Photosynthesis"}

func TestGenerateLessonPlan(t *testing.T) {
	svc := &fakeService{reply: `{"url":"https://cdn.example/lp.pdf"}`}
	c := newTestClient(t, svc)

	res, err := c.GenerateLessonPlan(context.Background(), lessonPlan)
	if err != nil {
		t.Fatalf("GenerateLessonPlan: %v", err)
	}
	if res.URL != "https://cdn.example/lp.pdf" {
		t.Fatalf("URL = %q", res.URL)
	}
	if svc.lastPath != "/generate_lesson_plan" {
		t.Fatalf("path = %q", svc.lastPath)
	}
	if svc.lastBody["subject"] != "Science" || svc.lastBody["grade"] != "6" || svc.lastBody["topic"] != "Photosynthesis" {
		t.Fatalf("body = %v", svc.lastBody)
	}
	if ct := svc.lastRaw.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestGenerateRemoteError(t *testing.T) {
	svc := &fakeService{status: http.StatusInternalServerError, reply: "internal error"}
	c := newTestClient(t, svc)

	_, err := c.GenerateLessonPlan(context.Background(), lessonPlan)
	var rerr *RemoteError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want *RemoteError", err)
	}
	if rerr.Status != 500 || rerr.Body != "internal error" || rerr.Path != "/generate_lesson_plan" {
		t.Fatalf("RemoteError = %+v", rerr)
	}
}

func TestGenerateMissingURL(t *testing.T) {
	for _, reply := range []string{`{}`, `{"url":""}`, `{"url":"/relative.pdf"}`, `not json`} {
		svc := &fakeService{reply: reply}
		c := newTestClient(t, svc)
		_, err := c.GenerateVisualAid(context.Background(), VisualAidRequest{Subject: "Art", Grade: "3", Topic: "Leaves"})
		if !errors.Is(err, ErrInvalidResponse) {
			t.Fatalf("reply %q: err = %v, want ErrInvalidResponse", reply, err)
		}
	}
}

func TestGenerateValidationSkipsNetwork(t *testing.T) {
	svc := &fakeService{reply: `{"url":"https://cdn.example/x.pdf"}`}
	c := newTestClient(t, svc)

	_, err := c.GenerateLessonPlan(context.Background(), LessonPlanRequest{Subject: "Sc", Grade: "6", Topic: "Photosynthesis"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if _, ok := verr.FieldMap()["subject"]; !ok {
		t.Fatalf("fields = %v", verr.FieldMap())
	}
	if n := svc.calls.Load(); n != 0 {
		t.Fatalf("service called %d times", n)
	}
}

func TestWorksheetBadPayloadSkipsNetwork(t *testing.T) {
	svc := &fakeService{reply: `{"url":"https://cdn.example/w.pdf"}`}
	c := newTestClient(t, svc)

	_, err := c.GenerateWorksheetFromImage(context.Background(), worksheet("data:image/png;base64,!!!"))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if msg := verr.FieldMap()["image_base64"]; msg != "Image is not valid base64." {
		t.Fatalf("image_base64 = %q", msg)
	}
	if n := svc.calls.Load(); n != 0 {
		t.Fatalf("service called %d times", n)
	}
}

func TestGenerateQuiz(t *testing.T) {
	svc := &fakeService{reply: `{"url":"https://cdn.example/q.pdf","evaluation_json_url":"https://cdn.example/q.json"}`}
	c := newTestClient(t, svc)

	res, err := c.GenerateQuiz(context.Background(), QuizRequest{Subject: "History", Grade: "8"})
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if res.EvaluationJSONURL != "https://cdn.example/q.json" {
		t.Fatalf("EvaluationJSONURL = %q", res.EvaluationJSONURL)
	}
	if _, ok := svc.lastBody["topic"]; ok {
		t.Fatalf("empty topic should be omitted: %v", svc.lastBody)
	}
}

func TestGenerateQuizDropsRelativeAnswerKey(t *testing.T) {
	svc := &fakeService{reply: `{"url":"https://cdn.example/q.pdf","evaluation_json_url":"q.json"}`}
	c := newTestClient(t, svc)

	res, err := c.GenerateQuiz(context.Background(), QuizRequest{Subject: "History", Grade: "8"})
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if res.EvaluationJSONURL != "" {
		t.Fatalf("EvaluationJSONURL = %q, want dropped", res.EvaluationJSONURL)
	}
}

func TestWorksheetSendsPayloadOnly(t *testing.T) {
	svc := &fakeService{reply: `{"url":"https://cdn.example/ws.pdf"}`}
	c := newTestClient(t, svc)

	_, err := c.GenerateWorksheetFromImage(context.Background(), worksheet("data:image/png;base64,AAAA"))
	if err != nil {
		t.Fatalf("GenerateWorksheetFromImage: %v", err)
	}
	if svc.lastPath != "/generate_worksheet_from_image" {
		t.Fatalf("path = %q", svc.lastPath)
	}
	if got := svc.lastBody["image_base64"]; got != "AAAA" {
		t.Fatalf("image_base64 = %v, want AAAA", got)
	}
	if got := svc.lastBody["image_filename"]; got != "page.png" {
		t.Fatalf("image_filename = %v", got)
	}
	if _, ok := svc.lastBody["description"]; !ok {
		t.Fatal("description must always be sent")
	}
}

func TestAskConversation(t *testing.T) {
	svc := &fakeService{reply: `{"answer":"Plants make food from light.","session_id":"conv-1"}`}
	c := newTestClient(t, svc)
	ctx := context.Background()

	first, err := c.Ask(ctx, "What is photosynthesis?", Conversation{}, "teacher-1")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if _, ok := svc.lastBody["session_id"]; ok {
		t.Fatalf("new conversation sent session_id: %v", svc.lastBody)
	}
	if svc.lastBody["user_id"] != "teacher-1" {
		t.Fatalf("user_id = %v", svc.lastBody["user_id"])
	}

	if _, err := c.Ask(ctx, "And at night?", first.Conversation(), "teacher-1"); err != nil {
		t.Fatalf("Ask follow-up: %v", err)
	}
	if svc.lastBody["session_id"] != "conv-1" {
		t.Fatalf("follow-up session_id = %v", svc.lastBody["session_id"])
	}
}

func TestAskRequiresSessionInReply(t *testing.T) {
	svc := &fakeService{reply: `{"answer":"hi"}`}
	c := newTestClient(t, svc)

	_, err := c.Ask(context.Background(), "hello", Conversation{}, "")
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("err = %v, want ErrInvalidResponse", err)
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	svc := &fakeService{}
	c := newTestClient(t, svc)

	_, err := c.Ask(context.Background(), "", Conversation{}, "")
	var verr *ValidationError
	if !errors.As(err, &verr) || svc.calls.Load() != 0 {
		t.Fatalf("err = %v, calls = %d", err, svc.calls.Load())
	}
}

func TestUploadFile(t *testing.T) {
	svc := &fakeService{reply: `{"url":"https://cdn.example/sub.png"}`}
	c := newTestClient(t, svc)

	res, err := c.UploadFile(context.Background(), `ans "1".png`, "image/png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if res.URL != "https://cdn.example/sub.png" {
		t.Fatalf("URL = %q", res.URL)
	}
	if svc.lastPath != "/upload_file" {
		t.Fatalf("path = %q", svc.lastPath)
	}
	if string(svc.upload) != "png-bytes" || svc.partType != "image/png" {
		t.Fatalf("part = %q (%s)", svc.upload, svc.partType)
	}
	if svc.filename != `ans "1".png` {
		t.Fatalf("filename = %q", svc.filename)
	}
}

func TestEvaluateQuiz(t *testing.T) {
	svc := &fakeService{reply: `{"overall_feedback":{"total_marks_scored":4,"total_marks_possible":5,"feedback":"Good"},"results":[]}`}
	c := newTestClient(t, svc)

	ev, err := c.EvaluateQuiz(context.Background(), "https://cdn.example/sub.png", "https://cdn.example/key.json")
	if err != nil {
		t.Fatalf("EvaluateQuiz: %v", err)
	}
	overall, ok := ev.Overall()
	if !ok || overall.MarksScored != 4 || overall.MarksPossible != 5 {
		t.Fatalf("overall = %+v, %v", overall, ok)
	}
	if svc.lastBody["student_submission_url"] != "https://cdn.example/sub.png" {
		t.Fatalf("body = %v", svc.lastBody)
	}
}

func TestEvaluateQuizEmptyReply(t *testing.T) {
	svc := &fakeService{reply: `{}`}
	c := newTestClient(t, svc)

	_, err := c.EvaluateQuiz(context.Background(), "https://cdn.example/sub.png", "https://cdn.example/key.json")
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("err = %v, want ErrInvalidResponse", err)
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(srv.URL, 0, zerolog.Nop())

	_, err := c.GenerateLessonPlan(context.Background(), lessonPlan)
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v, want *TransportError", err)
	}
}
