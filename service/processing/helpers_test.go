package processing

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"docinsight-backend/dao"
	"docinsight-backend/model"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// recordingStore 记录每次成功写入的字段
type recordingStore struct {
	*dao.DocumentDAO

	mu      sync.Mutex
	updates []map[string]any
}

func newRecordingStore(t *testing.T) *recordingStore {
	return &recordingStore{DocumentDAO: dao.NewDocumentDAO(dao.OpenTestDB(t))}
}

func (s *recordingStore) Update(ctx context.Context, id string, version int64, fields map[string]any) (int64, error) {
	v, err := s.DocumentDAO.Update(ctx, id, version, fields)
	if err == nil {
		s.mu.Lock()
		s.updates = append(s.updates, fields)
		s.mu.Unlock()
	}
	return v, err
}

// progressValues 按写入顺序返回 progress 字段
func (s *recordingStore) progressValues() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var values []int
	for _, u := range s.updates {
		if p, ok := u["progress"].(int); ok {
			values = append(values, p)
		}
	}
	return values
}

func (s *recordingStore) stages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var labels []string
	for _, u := range s.updates {
		labels = append(labels, u["current_stage"].(string))
	}
	return labels
}

func createDocument(t *testing.T, store *recordingStore, mimeType string) *model.Document {
	t.Helper()
	doc := &model.Document{
		Filename:     "stored",
		OriginalName: "input",
		Metadata: datatypes.JSONMap{
			model.MetaMimeType:   mimeType,
			model.MetaUploadDate: "2025-03-01T12:00:00Z",
		},
	}
	require.NoError(t, store.Create(context.Background(), doc))
	return doc
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func reload(t *testing.T, store *recordingStore, id string) *model.Document {
	t.Helper()
	doc, err := store.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, doc)
	return doc
}
