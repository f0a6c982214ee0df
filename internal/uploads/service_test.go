package uploads

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
)

type mockRepository struct {
	uploads map[uuid.UUID]Upload
}

func newMockRepository() *mockRepository {
	return &mockRepository{uploads: make(map[uuid.UUID]Upload)}
}

func (m *mockRepository) Create(ctx context.Context, u Upload) (Upload, error) {
	m.uploads[u.ID] = u
	return u, nil
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (Upload, error) {
	u, ok := m.uploads[id]
	if !ok {
		return Upload{}, httpx.ErrNotFound
	}
	return u, nil
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.uploads[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.uploads, id)
	return nil
}

type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) Save(objectName string, src io.Reader) (int64, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return 0, err
	}
	m.objects[objectName] = data
	return int64(len(data)), nil
}

func (m *memStore) Open(objectName string) (io.ReadCloser, error) {
	data, ok := m.objects[objectName]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Remove(objectName string) error {
	delete(m.objects, objectName)
	return nil
}

func TestSaveRejectsDisallowedContentType(t *testing.T) {
	svc := NewService(newMockRepository(), newMemStore(), 1024)

	_, err := svc.Save(context.Background(), 1, "malware.exe", "application/x-msdownload", 10, strings.NewReader("MZ"))
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestSaveRejectsOversizedDeclaration(t *testing.T) {
	svc := NewService(newMockRepository(), newMemStore(), 16)

	_, err := svc.Save(context.Background(), 1, "big.pdf", "application/pdf", 1024, strings.NewReader("x"))
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestSaveRejectsOversizedBody(t *testing.T) {
	store := newMemStore()
	svc := NewService(newMockRepository(), store, 8)

	// Declared size fits, body does not.
	_, err := svc.Save(context.Background(), 1, "lie.pdf", "application/pdf", 4, strings.NewReader(strings.Repeat("a", 64)))
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, store.objects)
}

func TestSaveAndOpenRoundTrip(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, newMemStore(), 1024)

	created, err := svc.Save(context.Background(), 7, `C:\docs\..\contract.pdf`, "application/pdf; charset=binary", 8, strings.NewReader("contents"))
	require.NoError(t, err)
	assert.Equal(t, "contract.pdf", created.FileName)
	assert.Equal(t, "application/pdf", created.ContentType)
	assert.Equal(t, int64(8), created.Size)
	assert.Equal(t, int64(7), created.UploadedBy)
	assert.True(t, strings.HasSuffix(created.ObjectName, ".pdf"))

	meta, body, err := svc.Open(context.Background(), created.ID)
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "contents", string(data))
	assert.Equal(t, created.FileName, meta.FileName)
}

func TestDeleteRemovesObject(t *testing.T) {
	repo := newMockRepository()
	store := newMemStore()
	svc := NewService(repo, store, 1024)

	created, err := svc.Save(context.Background(), 1, "a.png", "image/png", 3, strings.NewReader("png"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	assert.Empty(t, store.objects)
	_, _, err = svc.Open(context.Background(), created.ID)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestDiskStoreRejectsTraversal(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../escape.pdf", strings.NewReader("x"))
	assert.Error(t, err)
	_, err = store.Open("a/b.pdf")
	assert.Error(t, err)
}

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	n, err := store.Save("obj.pdf", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	body, err := store.Open("obj.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Remove("obj.pdf"))
	require.NoError(t, store.Remove("obj.pdf"))
}
