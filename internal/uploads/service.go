package uploads

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
)

// RepositoryPort defines metadata persistence.
type RepositoryPort interface {
	Create(ctx context.Context, u Upload) (Upload, error)
	Get(ctx context.Context, id uuid.UUID) (Upload, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ObjectStore defines blob persistence. Satisfied by DiskStore.
type ObjectStore interface {
	Save(objectName string, src io.Reader) (int64, error)
	Open(objectName string) (io.ReadCloser, error)
	Remove(objectName string) error
}

// Types of attachments the console accepts.
var allowedContentTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// Service handles upload business logic.
type Service struct {
	repo    RepositoryPort
	store   ObjectStore
	maxSize int64
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, store ObjectStore, maxSize int64) *Service {
	return &Service{repo: repo, store: store, maxSize: maxSize}
}

// MaxSize exposes the configured body limit for handlers.
func (s *Service) MaxSize() int64 {
	return s.maxSize
}

// Save validates, stores the object under a fresh uuid name and records
// metadata. declaredSize is the multipart header size, checked before any
// bytes are written.
func (s *Service) Save(ctx context.Context, actorID int64, fileName, contentType string, declaredSize int64, src io.Reader) (Upload, error) {
	contentType = normalizeContentType(contentType)
	ext, ok := allowedContentTypes[contentType]
	if !ok {
		return Upload{}, fmt.Errorf("%w: content type %q is not accepted", httpx.ErrValidation, contentType)
	}
	if s.maxSize > 0 && declaredSize > s.maxSize {
		return Upload{}, fmt.Errorf("%w: file exceeds the %d byte limit", httpx.ErrValidation, s.maxSize)
	}
	fileName = sanitizeFileName(fileName)
	if fileName == "" {
		return Upload{}, fmt.Errorf("%w: file name is required", httpx.ErrValidation)
	}

	id := uuid.New()
	objectName := id.String() + ext

	reader := src
	if s.maxSize > 0 {
		// Belt over the declared size: never write more than the limit.
		reader = io.LimitReader(src, s.maxSize+1)
	}
	written, err := s.store.Save(objectName, reader)
	if err != nil {
		return Upload{}, err
	}
	if s.maxSize > 0 && written > s.maxSize {
		_ = s.store.Remove(objectName)
		return Upload{}, fmt.Errorf("%w: file exceeds the %d byte limit", httpx.ErrValidation, s.maxSize)
	}

	created, err := s.repo.Create(ctx, Upload{
		ID:          id,
		FileName:    fileName,
		ContentType: contentType,
		Size:        written,
		ObjectName:  objectName,
		UploadedBy:  actorID,
	})
	if err != nil {
		_ = s.store.Remove(objectName)
		return Upload{}, err
	}
	return created, nil
}

// Open returns the metadata and a reader over the object body. The caller
// closes the reader.
func (s *Service) Open(ctx context.Context, id uuid.UUID) (Upload, io.ReadCloser, error) {
	meta, err := s.repo.Get(ctx, id)
	if err != nil {
		return Upload{}, nil, err
	}
	body, err := s.store.Open(meta.ObjectName)
	if err != nil {
		return Upload{}, nil, err
	}
	return meta, body, nil
}

// Delete removes metadata and the stored object.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	meta, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	return s.store.Remove(meta.ObjectName)
}

func normalizeContentType(ct string) string {
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = ct[:idx]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// sanitizeFileName strips any path components a client smuggles into the
// multipart filename.
func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, `\`, `/`)
	name = filepath.Base(name)
	name = strings.TrimSpace(name)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
