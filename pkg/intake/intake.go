package intake

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cathai/invoice-backend/pkg/models"
	"github.com/cathai/invoice-backend/pkg/storage/model"
)

var log = logrus.StandardLogger().WithField("package", "intake")

const (
	MaxImageSize = 10 << 20

	// Bodies above this are cut off while reading.
	maxBodySize = 2 * MaxImageSize

	maxFieldSize = 64 << 10
	maxParts     = 32

	ImageField = "image"
)

const (
	MsgMissingFields = "Vui lòng điền đầy đủ thông tin bắt buộc"
	MsgMissingImage  = "Vui lòng tải lên ảnh hóa đơn"
	MsgTooManyImages = "Vui lòng chỉ tải lên một ảnh hóa đơn"
	MsgInvalidType   = "Vui lòng chọn file ảnh hợp lệ"
	MsgTooLarge      = "Ảnh quá lớn. Vui lòng chọn ảnh nhỏ hơn 10MB"
	MsgMalformed     = "Dữ liệu gửi lên không hợp lệ"
)

// RejectError is a submission the client has to fix. Message is safe to
// show to the user.
type RejectError struct {
	Message string
	Reason  string
}

func (e *RejectError) Error() string {
	return e.Reason
}

func reject(message string, reason string) *RejectError {
	return &RejectError{Message: message, Reason: reason}
}

var extRegexp = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// Intake turns multipart submissions into invoice requests and keeps the
// attached photo.
type Intake struct {
	files model.Storer
	now   func() time.Time
}

func New(files model.Storer) *Intake {
	return &Intake{files: files, now: time.Now}
}

// Accept validates the submission in r and stores its photo. The returned
// record has ImagePath set but no Id or Timestamp yet. Validation failures
// are *RejectError, anything else is an internal error.
func (i *Intake) Accept(w http.ResponseWriter, r *http.Request) (*models.InvoiceRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	sub, err := readSubmission(r)
	defer sub.cleanup()
	if err != nil {
		return nil, err
	}

	record, img, err := sub.validate()
	if err != nil {
		return nil, err
	}

	f := img.file
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	mime, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, fmt.Errorf("unable to sniff uploaded file: %w", err)
	}
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, reject(MsgInvalidType, fmt.Sprintf("content looks like %s", mime.String()))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	now := i.now()
	name := FileName(now, img.fileName)
	err = i.files.Store(models.Upload{
		Reader:      f,
		Name:        name,
		ContentType: mime.String(),
		Size:        img.size,
		UploadedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to store %s: %w", name, err)
	}
	log.Debugf("stored %s (%d bytes, %s)", name, img.size, mime.String())

	record.ImagePath = name
	return record, nil
}

type image struct {
	fileName    string
	contentType string
	size        int64
	// Holds at most MaxImageSize+1 bytes, the rest is discarded.
	file *os.File
}

type submission struct {
	values map[string]string
	images []*image
	// The body went over maxBodySize. Parts after the cut are unknown.
	truncated bool
}

// readSubmission streams the multipart body. Fields are checked against
// what arrived before a cut-off, so an oversized body still reports a
// missing field first when the client sends the fields ahead of the image.
func readSubmission(r *http.Request) (*submission, error) {
	s := &submission{values: map[string]string{}}
	mr, err := r.MultipartReader()
	if err != nil {
		return s, reject(MsgMalformed, fmt.Sprintf("unable to read multipart body: %v", err))
	}

	for n := 0; ; n++ {
		p, err := mr.NextPart()
		if err == io.EOF {
			return s, nil
		}
		if err != nil {
			return s, s.readError(err)
		}
		if n >= maxParts {
			p.Close()
			return s, reject(MsgMalformed, fmt.Sprintf("more than %d parts", maxParts))
		}

		if p.FormName() == ImageField {
			err = s.readImage(p)
		} else {
			err = s.readValue(p)
		}
		p.Close()
		if err != nil {
			return s, s.readError(err)
		}
	}
}

func (s *submission) readError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		s.truncated = true
		return nil
	}
	var rejectErr *RejectError
	var pathErr *fs.PathError
	if errors.As(err, &rejectErr) || errors.As(err, &pathErr) {
		return err
	}
	return reject(MsgMalformed, fmt.Sprintf("unable to read multipart body: %v", err))
}

func (s *submission) readValue(p *multipart.Part) error {
	b, err := io.ReadAll(io.LimitReader(p, maxFieldSize+1))
	if err != nil {
		return err
	}
	if len(b) > maxFieldSize {
		return reject(MsgMalformed, fmt.Sprintf("field %s is too long", p.FormName()))
	}
	if _, ok := s.values[p.FormName()]; !ok {
		s.values[p.FormName()] = string(b)
	}
	return nil
}

func (s *submission) readImage(p *multipart.Part) error {
	img := &image{
		fileName:    p.FileName(),
		contentType: p.Header.Get("Content-Type"),
	}
	s.images = append(s.images, img)

	f, err := os.CreateTemp("", "invoice-upload-*")
	if err != nil {
		return err
	}
	img.file = f

	n, err := io.CopyN(f, p, MaxImageSize+1)
	img.size = n
	if err != nil && err != io.EOF {
		return err
	}
	if n > MaxImageSize {
		rest, err := io.Copy(io.Discard, p)
		img.size += rest
		return err
	}
	return nil
}

func (s *submission) cleanup() {
	for _, img := range s.images {
		if img.file == nil {
			continue
		}
		img.file.Close()
		if err := os.Remove(img.file.Name()); err != nil {
			log.Warnf("unable to remove %s: %v", img.file.Name(), err)
		}
	}
}

// validate applies the submission rules in order and returns the first
// failure.
func (s *submission) validate() (*models.InvoiceRequest, *image, error) {
	value := func(key string) string {
		return strings.TrimSpace(s.values[key])
	}

	record := &models.InvoiceRequest{
		Name:           value("name"),
		Phone:          value("phone"),
		Email:          value("email"),
		Mst:            value("mst"),
		CompanyName:    value("companyName"),
		CompanyAddress: value("companyAddress"),
		Representative: value("representative"),
	}

	for _, f := range []struct{ key, value string }{
		{"phone", record.Phone},
		{"email", record.Email},
		{"mst", record.Mst},
	} {
		if f.value == "" {
			return nil, nil, reject(MsgMissingFields, "missing "+f.key)
		}
	}

	if s.truncated {
		return nil, nil, reject(MsgTooLarge, fmt.Sprintf("body exceeds %d bytes", maxBodySize))
	}

	if len(s.images) == 0 {
		return nil, nil, reject(MsgMissingImage, "missing image")
	}
	if len(s.images) > 1 {
		return nil, nil, reject(MsgTooManyImages, fmt.Sprintf("%d images", len(s.images)))
	}
	img := s.images[0]

	if !strings.HasPrefix(strings.ToLower(img.contentType), "image/") {
		return nil, nil, reject(MsgInvalidType, fmt.Sprintf("declared content type %q", img.contentType))
	}
	if img.size > MaxImageSize {
		return nil, nil, reject(MsgTooLarge, fmt.Sprintf("image is %d bytes", img.size))
	}

	if record.Name == "" {
		record.Name = models.DefaultCustomerName
	}
	return record, img, nil
}

// FileName builds a unique name for an uploaded photo, keeping its extension
// when it looks sane.
func FileName(t time.Time, original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if !extRegexp.MatchString(ext) {
		ext = ""
	}
	return fmt.Sprintf("invoice-%d-%s%s", t.UnixMilli(), uuid.NewString(), ext)
}
