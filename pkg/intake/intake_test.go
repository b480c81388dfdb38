package intake

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cathai/invoice-backend/pkg/models"
	"github.com/cathai/invoice-backend/pkg/storage/fs"
)

func TestMain(m *testing.M) {
	logrus.SetLevel(logrus.DebugLevel)
	os.Exit(m.Run())
}

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}

func jpeg(size int) []byte {
	b := make([]byte, size)
	copy(b, jpegHeader)
	return b
}

type part struct {
	fileName    string
	contentType string
	content     []byte
}

func newRequest(t *testing.T, fields map[string]string, images ...part) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, p := range images {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, ImageField, p.fileName))
		h.Set("Content-Type", p.contentType)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(p.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/invoice", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func validFields() map[string]string {
	return map[string]string{
		"phone": "0912345678",
		"email": "a@b.com",
		"mst":   "0101234567",
	}
}

func newIntake(t *testing.T) (*Intake, string) {
	dir := t.TempDir()
	store, err := fs.New(dir)
	require.NoError(t, err)
	i := New(store)
	i.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return i, dir
}

func uploads(t *testing.T, dir string) []string {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestAccept(t *testing.T) {
	i, dir := newIntake(t)
	image := jpeg(2 << 20)
	fields := validFields()
	fields["name"] = "   "
	fields["companyName"] = "Công ty TNHH ABC"

	record, err := i.Accept(httptest.NewRecorder(), newRequest(t, fields, part{"Hoa Don.JPG", "image/jpeg", image}))
	require.NoError(t, err)

	assert.Equal(t, models.DefaultCustomerName, record.Name)
	assert.Equal(t, "0912345678", record.Phone)
	assert.Equal(t, "Công ty TNHH ABC", record.CompanyName)
	assert.Empty(t, record.Id)
	assert.Regexp(t, regexp.MustCompile(`^invoice-1700000000000-[0-9a-f-]{36}\.jpg$`), record.ImagePath)

	assert.Equal(t, []string{record.ImagePath}, uploads(t, dir))
	stored, err := os.ReadFile(filepath.Join(dir, record.ImagePath))
	require.NoError(t, err)
	assert.Equal(t, image, stored)
}

func TestAcceptRejections(t *testing.T) {
	ok := part{"a.jpg", "image/jpeg", jpeg(1024)}
	without := func(key string) map[string]string {
		f := validFields()
		delete(f, key)
		return f
	}
	blank := validFields()
	blank["email"] = "  "

	for name, tc := range map[string]struct {
		fields  map[string]string
		images  []part
		message string
	}{
		"missing phone":    {without("phone"), []part{ok}, MsgMissingFields},
		"missing email":    {without("email"), []part{ok}, MsgMissingFields},
		"blank email":      {blank, []part{ok}, MsgMissingFields},
		"missing mst":      {without("mst"), []part{ok}, MsgMissingFields},
		"phone before img": {without("phone"), nil, MsgMissingFields},
		"missing image":    {validFields(), nil, MsgMissingImage},
		"two images":       {validFields(), []part{ok, ok}, MsgTooManyImages},
		"declared pdf":     {validFields(), []part{{"a.pdf", "application/pdf", jpeg(1024)}}, MsgInvalidType},
		"sniffed text":     {validFields(), []part{{"a.jpg", "image/jpeg", []byte("just some text")}}, MsgInvalidType},
		"too large":        {validFields(), []part{{"a.jpg", "image/jpeg", jpeg(15 << 20)}}, MsgTooLarge},
	} {
		t.Run(name, func(t *testing.T) {
			i, dir := newIntake(t)
			_, err := i.Accept(httptest.NewRecorder(), newRequest(t, tc.fields, tc.images...))
			var rejectErr *RejectError
			require.True(t, errors.As(err, &rejectErr), "expected a RejectError, got %v", err)
			assert.Equal(t, tc.message, rejectErr.Message)
			assert.Empty(t, uploads(t, dir))
		})
	}
}

func TestAcceptBodyTooLarge(t *testing.T) {
	i, dir := newIntake(t)
	req := newRequest(t, validFields(), part{"a.jpg", "image/jpeg", jpeg(maxBodySize + 1024)})

	_, err := i.Accept(httptest.NewRecorder(), req)
	var rejectErr *RejectError
	require.True(t, errors.As(err, &rejectErr))
	assert.Equal(t, MsgTooLarge, rejectErr.Message)
	assert.Empty(t, uploads(t, dir))
}

func TestAcceptBodyTooLargeMissingField(t *testing.T) {
	i, dir := newIntake(t)
	fields := validFields()
	delete(fields, "phone")
	req := newRequest(t, fields, part{"a.jpg", "image/jpeg", jpeg(25 << 20)})

	_, err := i.Accept(httptest.NewRecorder(), req)
	var rejectErr *RejectError
	require.True(t, errors.As(err, &rejectErr))
	assert.Equal(t, MsgMissingFields, rejectErr.Message)
	assert.Empty(t, uploads(t, dir))
}

func TestAcceptTooManyParts(t *testing.T) {
	i, _ := newIntake(t)
	fields := validFields()
	for n := 0; n < maxParts; n++ {
		fields[fmt.Sprintf("extra%d", n)] = "x"
	}
	req := newRequest(t, fields, part{"a.jpg", "image/jpeg", jpeg(1024)})

	_, err := i.Accept(httptest.NewRecorder(), req)
	var rejectErr *RejectError
	require.True(t, errors.As(err, &rejectErr))
	assert.Equal(t, MsgMalformed, rejectErr.Message)
}

func TestAcceptMalformed(t *testing.T) {
	i, _ := newIntake(t)
	req := httptest.NewRequest(http.MethodPost, "/api/invoice", io.NopCloser(bytes.NewBufferString("{}")))
	req.Header.Set("Content-Type", "application/json")

	_, err := i.Accept(httptest.NewRecorder(), req)
	var rejectErr *RejectError
	require.True(t, errors.As(err, &rejectErr))
	assert.Equal(t, MsgMalformed, rejectErr.Message)
}

func TestFileName(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	for original, ext := range map[string]string{
		"photo.JPG":           ".jpg",
		"photo.heic":          ".heic",
		"noext":               "",
		"weird.j p g":         "",
		"../../etc/passwd":    "",
		"a.verylongextension": "",
	} {
		name := FileName(now, original)
		assert.Regexp(t, regexp.MustCompile(`^invoice-1700000000000-[0-9a-f-]{36}`+regexp.QuoteMeta(ext)+`$`), name, original)
	}
	assert.NotEqual(t, FileName(now, "a.jpg"), FileName(now, "a.jpg"))
}
