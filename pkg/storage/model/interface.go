package model

import (
	"io"

	"github.com/cathai/invoice-backend/pkg/models"
)

type Storer interface {
	Store(upload models.Upload) error
}

type Retriever interface {
	Retrieve(name string) (io.ReadCloser, error)
}

type Lister interface {
	List() ([]models.Attachment, error)
}

type Remover interface {
	Remove(name string) error
}

// AttachmentStorage holds the invoice photos.
type AttachmentStorage interface {
	Storer
	Retriever
	Lister
	Remover
}

type RecordAppender interface {
	// Append assigns the record's Id and Timestamp and persists it after
	// every previously appended record.
	Append(record *models.InvoiceRequest) error
}

type RecordQuerier interface {
	All() []models.InvoiceRequest
	Today() []models.InvoiceRequest
}

// RecordStore is the append-only list of accepted invoice requests.
type RecordStore interface {
	RecordAppender
	RecordQuerier
	io.Closer
}
