package models

import (
	"io"
	"time"
)

// Attachment describes a stored invoice photo.
type Attachment struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Upload is an invoice photo on its way to the attachment storage.
type Upload struct {
	Reader      io.ReadSeeker
	Name        string
	ContentType string
	Size        int64
	UploadedAt  time.Time
}
