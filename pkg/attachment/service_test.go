package attachment

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/workflow"
)

type memoryStore struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]model.Attachment
}

func (m *memoryStore) Create(_ context.Context, a *model.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	m.rows[a.ID] = *a
	return nil
}

func (m *memoryStore) Get(_ context.Context, id uint) (*model.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

func (m *memoryStore) ListByDocument(_ context.Context, documentID uint) ([]*model.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Attachment
	for id := uint(1); id <= m.nextID; id++ {
		if a, ok := m.rows[id]; ok && a.DocumentID == documentID {
			out = append(out, &a)
		}
	}
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func newTestService(t *testing.T) (*Service, string) {
	dir := filepath.Join(t.TempDir(), "uploads")
	return NewService(&memoryStore{rows: map[uint]model.Attachment{}}, dir), dir
}

func TestUploadAndDownload(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()
	body := "출장 보고서"

	a, err := svc.Upload(ctx, 7, 1, "보고서.PDF", int64(len(body)), strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "보고서.PDF", a.FileName)
	assert.Equal(t, "pdf", a.FileType)
	assert.True(t, strings.HasSuffix(a.StoredName, "_보고서.PDF"))
	assert.Len(t, strings.TrimSuffix(a.StoredName, "_보고서.PDF"), 36)
	assert.Equal(t, filepath.Dir(a.FilePath), mustAbs(t, dir))
	assert.EqualValues(t, len(body), a.FileSize)

	got, f, err := svc.Open(ctx, a.ID)
	require.NoError(t, err)
	defer f.Close()
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, body, string(content))
	assert.Equal(t, a.ID, got.ID)

	list, err := svc.ListByDocument(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func mustAbs(t *testing.T, path string) string {
	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	return abs
}

func TestUploadValidation(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	cases := map[string]struct {
		name string
		size int64
	}{
		"empty":        {"a.txt", 0},
		"too large":    {"a.txt", MaxFileSize + 1},
		"no extension": {"README", 10},
		"dot file":     {".txt", 10},
		"executable":   {"run.exe", 10},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Upload(ctx, 1, 1, tc.name, tc.size, strings.NewReader("0123456789"))
			assert.ErrorIs(t, err, workflow.ErrInvalidInput)
		})
	}

	t.Run("body larger than declared", func(t *testing.T) {
		big := bytes.NewReader(make([]byte, MaxFileSize+10))
		_, err := svc.Upload(ctx, 1, 1, "big.zip", 10, big)
		assert.ErrorIs(t, err, workflow.ErrInvalidInput)
		entries, _ := os.ReadDir(dir)
		assert.Empty(t, entries)
	})

	t.Run("path in name", func(t *testing.T) {
		a, err := svc.Upload(ctx, 1, 1, `..\..\secret.txt`, 3, strings.NewReader("abc"))
		require.NoError(t, err)
		assert.Equal(t, "secret.txt", a.FileName)
		assert.Equal(t, mustAbs(t, dir), filepath.Dir(a.FilePath))
	})
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Upload(ctx, 7, 1, "memo.txt", 4, strings.NewReader("memo"))
	require.NoError(t, err)
	b, err := svc.Upload(ctx, 7, 2, "photo.png", 4, strings.NewReader("png!"))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, a.ID, 2), workflow.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, a.ID, 1))
	_, err = os.Stat(a.FilePath)
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, svc.Delete(ctx, a.ID, 1), workflow.ErrNotFound)

	require.NoError(t, svc.DeleteByDocument(ctx, 7))
	_, _, err = svc.Open(ctx, b.ID)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}
