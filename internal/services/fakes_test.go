package services

import (
	"context"
	"errors"
	"sync"

	"alfredoptarigan/cv-analysis-tool/internal/models"
)

type stubExtractor struct{}

func (stubExtractor) Extract(file models.UploadedFile) string {
	return "text:" + file.Name
}

type chatCall struct {
	cvText     string
	threadID   string
	identifier string
}

type feedbackCall struct {
	messageID string
	threadID  string
	positive  bool
}

// fakeAnalysisClient answers CreateChat by identifier; identifiers listed
// in failFor return an error.
type fakeAnalysisClient struct {
	mu            sync.Mutex
	failFor       map[string]bool
	failFeedback  bool
	chatCalls     []chatCall
	feedbackCalls []feedbackCall
}

func newFakeAnalysisClient(failFor ...string) *fakeAnalysisClient {
	f := &fakeAnalysisClient{failFor: map[string]bool{}}
	for _, id := range failFor {
		f.failFor[id] = true
	}
	return f
}

func (f *fakeAnalysisClient) CreateChat(_ context.Context, cvText, threadID, identifier string) (*ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatCalls = append(f.chatCalls, chatCall{cvText: cvText, threadID: threadID, identifier: identifier})
	if f.failFor[identifier] {
		return nil, &APIStatusError{StatusCode: 500, Status: "500 Internal Server Error"}
	}
	return &ChatResponse{
		AgentResponse: []byte(`"[]"`),
		ThreadID:      "thread-" + identifier,
		MessageID:     "msg-" + identifier,
	}, nil
}

func (f *fakeAnalysisClient) SubmitFeedback(_ context.Context, messageID, threadID string, positive bool) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedbackCalls = append(f.feedbackCalls, feedbackCall{messageID: messageID, threadID: threadID, positive: positive})
	if f.failFeedback {
		return nil, errors.New("connection refused")
	}
	return map[string]any{"status": "ok"}, nil
}

type upload struct {
	name        string
	content     []byte
	contentType string
}

type fakeBlobStore struct {
	mu      sync.Mutex
	uploads []upload
	blobs   map[string][]byte
	failErr error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string][]byte{}}
}

func (f *fakeBlobStore) Upload(_ context.Context, blobName string, content []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.uploads = append(f.uploads, upload{name: blobName, content: content, contentType: contentType})
	f.blobs[blobName] = content
	return nil
}

func (f *fakeBlobStore) Download(_ context.Context, blobName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[blobName]
	if !ok {
		return "", errors.New("blob not found")
	}
	return string(data), nil
}

func (f *fakeBlobStore) factory() BlobStoreFactory {
	return func(context.Context) (BlobStore, error) { return f, nil }
}
