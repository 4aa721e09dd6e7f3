package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-analysis-tool/internal/config"
	"alfredoptarigan/cv-analysis-tool/internal/models"
	"alfredoptarigan/cv-analysis-tool/internal/repositories"
	"alfredoptarigan/cv-analysis-tool/internal/services"
)

const (
	testCookie  = "cv_session"
	testMaxSize = 1 << 20
)

type fakeClient struct {
	failFeedback bool
}

func (f *fakeClient) CreateChat(_ context.Context, cvText, _, identifier string) (*services.ChatResponse, error) {
	if strings.Contains(cvText, "FAIL") {
		return nil, errors.New("analysis API returned 500 Internal Server Error")
	}
	return &services.ChatResponse{
		AgentResponse: json.RawMessage(`"[{\"__dict__\":{\"chat_name\":\"summary\",\"chat_response\":{\"chat_message\":{\"__dict__\":{\"content\":\"ok\"}}}}}]"`),
		ThreadID:      "thread-" + identifier,
		MessageID:     "msg-" + identifier,
	}, nil
}

func (f *fakeClient) SubmitFeedback(context.Context, string, string, bool) (map[string]any, error) {
	if f.failFeedback {
		return nil, errors.New("connection refused")
	}
	return map[string]any{}, nil
}

type memoryBlobStore struct {
	blobs map[string][]byte
}

func (m *memoryBlobStore) Upload(_ context.Context, name string, content []byte, _ string) error {
	m.blobs[name] = content
	return nil
}

func (m *memoryBlobStore) Download(_ context.Context, name string) (string, error) {
	data, ok := m.blobs[name]
	if !ok {
		return "", errors.New("blob not found")
	}
	return string(data), nil
}

type testEnv struct {
	app    *fiber.App
	client *fakeClient
	blobs  *memoryBlobStore
}

func newTestEnv(t *testing.T, blobFactory services.BlobStoreFactory) *testEnv {
	t.Helper()

	log := zap.NewNop()
	client := &fakeClient{}
	blobs := &memoryBlobStore{blobs: map[string][]byte{}}
	if blobFactory == nil {
		blobFactory = func(context.Context) (services.BlobStore, error) { return blobs, nil }
	}

	extractor := services.NewTextExtractor()
	runner := services.NewBatchRunner(extractor, client, 0, 1, log)
	workflow := services.NewWorkflowService(repositories.NewMemorySessionRepository(time.Hour), runner, client, log)
	jobCriteria := services.NewJobCriteriaService(extractor, blobFactory, log)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	SetupRoutes(app, Handlers{
		Analysis:    NewAnalysisHandler(workflow, testMaxSize),
		Results:     NewResultHandler(workflow),
		JobCriteria: NewJobCriteriaHandler(jobCriteria, testMaxSize),
	}, testCookie, time.Hour)

	return &testEnv{app: app, client: client, blobs: blobs}
}

type formFile struct {
	name string
	body string
}

func multipartRequest(t *testing.T, method, target, field string, files ...formFile) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := w.CreateFormFile(field, f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write([]byte(f.body))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func (e *testEnv) do(t *testing.T, req *http.Request, sid string) (*http.Response, []byte) {
	t.Helper()

	if sid != "" {
		req.Header.Set(SessionHeader, sid)
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, body
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("invalid JSON %s: %v", body, err)
	}
	return out
}

func TestSessionMiddlewareMintsAndReusesIDs(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/results", nil), "")
	minted := resp.Header.Get(SessionHeader)
	if _, err := uuid.Parse(minted); err != nil {
		t.Fatalf("expected a minted uuid session id, got %q", minted)
	}
	if !strings.Contains(resp.Header.Get("Set-Cookie"), testCookie+"="+minted) {
		t.Fatalf("expected session cookie, got %q", resp.Header.Get("Set-Cookie"))
	}

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/results", nil), minted)
	if resp.Header.Get(SessionHeader) != minted {
		t.Fatalf("expected session id to be reused")
	}

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/results", nil), "not-a-uuid")
	if resp.Header.Get(SessionHeader) == "not-a-uuid" {
		t.Fatal("expected malformed session id to be replaced")
	}
}

func TestIdleResultsIncludeExample(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/results", nil), uuid.NewString())
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	out := decode[models.ResultsResponse](t, body)
	if out.State != string(models.SessionIdle) || out.AnalysisCompleted || out.Example == "" {
		t.Fatalf("unexpected idle response: %+v", out)
	}
}

func TestAnalyzeFlow(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	sid := uuid.NewString()

	req := multipartRequest(t, http.MethodPost, "/api/v1/analyze", "cvs",
		formFile{name: "a.txt", body: "Alice, 5 yrs Python"},
		formFile{name: "b.txt", body: "FAIL"},
	)
	resp, body := env.do(t, req, sid)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	out := decode[models.AnalyzeResponse](t, body)
	if !out.Rerun || out.State != string(models.SessionCompleted) {
		t.Fatalf("unexpected analyze response: %+v", out)
	}
	if len(out.Results) != 1 || out.Results[0].CVName != "a.txt" {
		t.Fatalf("expected only a.txt, got %+v", out.Results)
	}
	if len(out.Results[0].Sections) != 1 || out.Results[0].Sections[0].Content != "ok" {
		t.Fatalf("expected rendered summary, got %+v", out.Results[0].Sections)
	}
	if len(out.Errors) != 1 || out.Errors[0].CVName != "b.txt" {
		t.Fatalf("expected error for b.txt, got %+v", out.Errors)
	}

	_, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/results", nil), sid)
	results := decode[models.ResultsResponse](t, body)
	if !results.AnalysisCompleted || len(results.Results) != 1 || results.Example != "" {
		t.Fatalf("unexpected stored results: %+v", results)
	}

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/results/export?format=csv", nil), sid)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected export 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get(fiber.HeaderContentDisposition), "cv_analysis_results.csv") {
		t.Fatalf("unexpected content disposition %q", resp.Header.Get(fiber.HeaderContentDisposition))
	}
	if !strings.HasPrefix(string(body), "CV Name,Analysis,Thread ID,Message ID") {
		t.Fatalf("unexpected csv: %s", body)
	}

	resp, _ = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/results", nil), sid)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected clear 200, got %d", resp.StatusCode)
	}
	_, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/results", nil), sid)
	if cleared := decode[models.ResultsResponse](t, body); cleared.AnalysisCompleted || len(cleared.Results) != 0 {
		t.Fatalf("expected cleared session, got %+v", cleared)
	}
}

func TestAnalyzeRejectsBadUploads(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		req  *http.Request
	}{
		{name: "no files", req: multipartRequest(t, http.MethodPost, "/api/v1/analyze", "cvs")},
		{name: "not multipart", req: httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader("{}"))},
		{name: "bad extension", req: multipartRequest(t, http.MethodPost, "/api/v1/analyze", "cvs", formFile{name: "cv.png", body: "x"})},
		{name: "too large", req: multipartRequest(t, http.MethodPost, "/api/v1/analyze", "cvs", formFile{name: "cv.txt", body: strings.Repeat("x", testMaxSize+1)})},
	}

	for _, tt := range tests {
		resp, body := env.do(t, tt.req, uuid.NewString())
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d: %s", tt.name, resp.StatusCode, body)
		}
	}
}

func TestFeedbackEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	sid := uuid.NewString()

	feedback := func(index, payload string) (*http.Response, []byte) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/results/"+index+"/feedback", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		return env.do(t, req, sid)
	}

	if resp, _ := feedback("0", `{"positive":true}`); resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409 before analysis, got %d", resp.StatusCode)
	}

	env.do(t, multipartRequest(t, http.MethodPost, "/api/v1/analyze", "cvs", formFile{name: "a.txt", body: "Alice"}), sid)

	resp, body := feedback("0", `{"positive":false}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if out := decode[models.FeedbackResponse](t, body); out.Message != "Thank you for your feedback. We'll improve our analysis." {
		t.Fatalf("unexpected feedback message %q", out.Message)
	}

	if resp, _ := feedback("3", `{"positive":true}`); resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown index, got %d", resp.StatusCode)
	}
	if resp, _ := feedback("0", `{}`); resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 without positive, got %d", resp.StatusCode)
	}

	env.client.failFeedback = true
	if resp, _ := feedback("0", `{"positive":true}`); resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("expected 502 when the API fails, got %d", resp.StatusCode)
	}
}

func TestJobCriteriaEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	docx := "not really a docx"

	resp, body := env.do(t, multipartRequest(t, http.MethodPost, "/api/v1/job-criteria/preview", "file", formFile{name: "role.docx", body: docx}), "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected preview 200, got %d: %s", resp.StatusCode, body)
	}
	preview := decode[models.JobCriteriaPreview](t, body)
	if preview.FileName != "role.docx" || preview.JobCriteria.JobCriteriaText != preview.ExtractedText {
		t.Fatalf("unexpected preview: %+v", preview)
	}
	if len(env.blobs.blobs) != 0 {
		t.Fatal("preview must not upload")
	}

	resp, body = env.do(t, multipartRequest(t, http.MethodPut, "/api/v1/job-criteria", "file", formFile{name: "role.docx", body: docx}), "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected update 200, got %d: %s", resp.StatusCode, body)
	}
	if _, ok := env.blobs.blobs[models.JobCriteriaBlobName]; !ok || len(env.blobs.blobs) != 1 {
		t.Fatalf("expected exactly job_criteria.json to be stored, got %v", env.blobs.blobs)
	}

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/job-criteria", nil), "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected current 200, got %d", resp.StatusCode)
	}
	if current := decode[models.JobCriteria](t, body); current.JobCriteriaText != preview.ExtractedText {
		t.Fatalf("unexpected current criteria: %+v", current)
	}

	resp, _ = env.do(t, multipartRequest(t, http.MethodPut, "/api/v1/job-criteria", "file", formFile{name: "role.txt", body: "x"}), "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for txt job criteria, got %d", resp.StatusCode)
	}
}

func TestJobCriteriaMissingSASToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, services.NewBlobStoreFactory(config.BlobConfig{
		Provider:   config.BlobProviderAzure,
		AccountURL: "https://acct.blob.core.windows.net",
	}))

	resp, body := env.do(t, multipartRequest(t, http.MethodPut, "/api/v1/job-criteria", "file", formFile{name: "role.pdf", body: "x"}), "")
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "AZURE_BLOB_SAS_TOKEN") {
		t.Fatalf("expected error to name the missing token, got %s", body)
	}
}
