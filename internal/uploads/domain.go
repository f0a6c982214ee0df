package uploads

import (
	"time"

	"github.com/google/uuid"
)

// Upload is the metadata row for one stored attachment. The object itself
// lives on disk under a uuid name; the original filename is metadata only.
type Upload struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	ObjectName  string    `json:"-"`
	UploadedBy  int64     `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}
