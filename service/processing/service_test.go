package processing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"docinsight-backend/model"
	"docinsight-backend/service/extraction"
	"docinsight-backend/service/insight"
	"docinsight-backend/service/insight/insighttest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduler struct {
	mu        sync.Mutex
	err       error
	tasks     []Task
	cancelled []string
}

func (s *fakeScheduler) Schedule(_ context.Context, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.tasks = append(s.tasks, task)
	return nil
}

func (s *fakeScheduler) Cancel(documentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, task := range s.tasks {
		if task.DocumentID == documentID {
			s.cancelled = append(s.cancelled, documentID)
			return true
		}
	}
	return false
}

type serviceFixture struct {
	store     *recordingStore
	scheduler *fakeScheduler
	llm       *insighttest.FakeModel
	svc       *Service
	dir       string
}

func newServiceFixture(t *testing.T) *serviceFixture {
	store := newRecordingStore(t)
	scheduler := &fakeScheduler{}
	llm := &insighttest.FakeModel{Response: "The answer is 42."}
	dir := filepath.Join(t.TempDir(), "uploads")

	svc := NewService(store, scheduler, insight.NewGenerator(llm, "gemini-test"), dir, 1024)
	return &serviceFixture{store: store, scheduler: scheduler, llm: llm, svc: svc, dir: dir}
}

func (f *serviceFixture) markReady(t *testing.T, id, text string) {
	t.Helper()
	doc := reload(t, f.store, id)
	_, err := f.store.Update(context.Background(), id, doc.Version, map[string]any{
		"status":         model.StatusReady,
		"current_stage":  "complete",
		"progress":       100,
		"extracted_text": text,
		"insights":       "insights",
	})
	require.NoError(t, err)
}

func TestService_Upload(t *testing.T) {
	f := newServiceFixture(t)

	doc, err := f.svc.Upload(context.Background(), UploadInput{
		OriginalName: "Notes.TXT",
		MimeType:     "text/plain; charset=utf-8",
		Size:         11,
		Content:      strings.NewReader("Hello world"),
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusUploaded, doc.Status)
	assert.Equal(t, "upload", doc.CurrentStage)
	assert.Equal(t, 0, doc.Progress)
	assert.Equal(t, int64(11), doc.FileSize)
	assert.Equal(t, "Notes.TXT", doc.OriginalName)
	assert.True(t, strings.HasSuffix(doc.Filename, ".txt"))
	assert.Equal(t, "text/plain", doc.MimeType())
	assert.NotEmpty(t, doc.Metadata[model.MetaUploadDate])

	require.Len(t, f.scheduler.tasks, 1)
	task := f.scheduler.tasks[0]
	assert.Equal(t, doc.ID, task.DocumentID)
	assert.Equal(t, filepath.Join(f.dir, doc.Filename), task.FilePath)

	data, err := os.ReadFile(task.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", string(data))
}

func TestService_UploadRejects(t *testing.T) {
	tests := []struct {
		name    string
		in      UploadInput
		wantErr func(t *testing.T, err error)
	}{
		{
			name: "unsupported type",
			in:   UploadInput{OriginalName: "a.png", MimeType: "image/png", Size: 4, Content: strings.NewReader("data")},
			wantErr: func(t *testing.T, err error) {
				var unsupported *extraction.UnsupportedTypeError
				assert.ErrorAs(t, err, &unsupported)
			},
		},
		{
			name: "declared size too large",
			in:   UploadInput{OriginalName: "a.txt", MimeType: "text/plain", Size: 2048, Content: strings.NewReader("data")},
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrFileTooLarge)
			},
		},
		{
			name: "content larger than declared",
			in:   UploadInput{OriginalName: "a.txt", MimeType: "text/plain", Size: 10, Content: strings.NewReader(strings.Repeat("x", 2000))},
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrFileTooLarge)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)

			_, err := f.svc.Upload(context.Background(), tt.in)
			tt.wantErr(t, err)

			docs, listErr := f.svc.List(context.Background())
			require.NoError(t, listErr)
			assert.Empty(t, docs)
			assert.Empty(t, f.scheduler.tasks)

			entries, _ := os.ReadDir(f.dir)
			assert.Empty(t, entries)
		})
	}
}

func TestService_UploadScheduleFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.scheduler.err = ErrQueueFull

	_, err := f.svc.Upload(context.Background(), UploadInput{
		OriginalName: "a.txt",
		MimeType:     "text/plain",
		Size:         5,
		Content:      strings.NewReader("hello"),
	})
	require.ErrorIs(t, err, ErrQueueFull)

	docs, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, model.StatusError, docs[0].Status)
	require.NotNil(t, docs[0].Error)
	assert.Contains(t, *docs[0].Error, "queue is full")

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_GetNotFound(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Status(context.Background(), "missing")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "document", notFound.Resource)
}

func TestService_AnswerQuestion(t *testing.T) {
	f := newServiceFixture(t)
	doc := createDocument(t, f.store, "text/plain")
	f.markReady(t, doc.ID, "The meaning of life is 42.")

	res, err := f.svc.AnswerQuestion(context.Background(), doc.ID, "What is the meaning of life?")
	require.NoError(t, err)

	assert.Equal(t, doc.ID, res.DocumentID)
	assert.Equal(t, "What is the meaning of life?", res.Question)
	assert.Equal(t, "The answer is 42.", res.Answer)
	assert.Equal(t, "gemini-test", res.Metadata.Model)
	assert.Contains(t, f.llm.Prompts()[0], "The meaning of life is 42.")
}

func TestService_AnswerQuestionNotReady(t *testing.T) {
	f := newServiceFixture(t)
	doc := createDocument(t, f.store, "text/plain")

	_, err := f.svc.AnswerQuestion(context.Background(), doc.ID, "anything?")
	var notReady *NotReadyError
	require.ErrorAs(t, err, &notReady)
	assert.Equal(t, string(model.StatusUploaded), notReady.Status)
	assert.Zero(t, f.llm.Calls())
}

func TestService_AnswerQuestionErrors(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.AnswerQuestion(context.Background(), "missing", "q?")
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)

	_, err = f.svc.AnswerQuestion(context.Background(), "missing", "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	doc := createDocument(t, f.store, "text/plain")
	f.markReady(t, doc.ID, "text")
	f.llm.Err = errors.New("rate limited")

	_, err = f.svc.AnswerQuestion(context.Background(), doc.ID, "q?")
	var genErr *insight.GenerationError
	assert.ErrorAs(t, err, &genErr)
}

func TestService_Content(t *testing.T) {
	f := newServiceFixture(t)
	doc := createDocument(t, f.store, "text/plain")

	content, err := f.svc.Content(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Nil(t, content.ExtractedText)

	f.markReady(t, doc.ID, "Hello world")
	content, err = f.svc.Content(context.Background(), doc.ID)
	require.NoError(t, err)
	require.NotNil(t, content.ExtractedText)
	assert.Equal(t, "Hello world", *content.ExtractedText)
}

func TestService_WatchStatus(t *testing.T) {
	f := newServiceFixture(t)
	doc := createDocument(t, f.store, "text/plain")

	var mu sync.Mutex
	var seen []model.Status
	done := make(chan error, 1)
	go func() {
		done <- f.svc.WatchStatus(context.Background(), doc.ID, 5*time.Millisecond, func(v *StatusView) error {
			mu.Lock()
			seen = append(seen, v.Status)
			mu.Unlock()
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, time.Second, 5*time.Millisecond)

	f.markReady(t, doc.ID, "text")

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop on terminal status")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []model.Status{model.StatusUploaded, model.StatusReady}, seen)
}

func TestService_WatchStatusStopsOnCallbackError(t *testing.T) {
	f := newServiceFixture(t)
	doc := createDocument(t, f.store, "text/plain")
	stop := errors.New("client gone")

	err := f.svc.WatchStatus(context.Background(), doc.ID, time.Millisecond, func(*StatusView) error {
		return stop
	})
	assert.ErrorIs(t, err, stop)
}

func TestService_Cancel(t *testing.T) {
	f := newServiceFixture(t)

	doc, err := f.svc.Upload(context.Background(), UploadInput{
		OriginalName: "a.txt",
		MimeType:     "text/plain",
		Size:         5,
		Content:      strings.NewReader("hello"),
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(context.Background(), doc.ID))
	assert.Equal(t, []string{doc.ID}, f.scheduler.cancelled)

	f.markReady(t, doc.ID, "hello")
	assert.ErrorIs(t, f.svc.Cancel(context.Background(), doc.ID), ErrNotCancellable)
}
