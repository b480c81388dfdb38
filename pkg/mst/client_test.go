package mst_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cathai/invoice-backend/pkg/mst"
)

const testApi = "https://esgoo.test/api-mst/"

func getClient(t *testing.T) *mst.Client {
	c, err := mst.New(testApi)
	require.NoError(t, err)
	return c
}

func TestNormalize(t *testing.T) {
	for in, want := range map[string]string{
		"0101234567":     "0101234567",
		" 0101234567 ":   "0101234567",
		"0101234567-001": "0101234567001",
		"01.012.345.67":  "0101234567",
		"01012345670012": "01012345670012",
	} {
		got, err := mst.Normalize(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "123", "010123456a", "010123456700123"} {
		_, err := mst.Normalize(in)
		assert.ErrorIs(t, err, mst.ErrInvalidTaxID, in)
	}
}

func TestClient_Lookup(t *testing.T) {
	defer gock.Off()

	gock.New("https://esgoo.test").
		Get("/api-mst/0101234567.htm").
		Reply(http.StatusOK).
		JSON(map[string]any{
			"error":      0,
			"error_text": "Có dữ liệu!",
			"data": map[string]any{
				"id":      "0101234567",
				"ten":     "CÔNG TY TNHH CÁT HẢI ",
				"dc":      "Số 1, Cát Hải, Hải Phòng",
				"daidien": "Nguyễn Văn A",
			},
		})

	c, err := getClient(t).Lookup(context.Background(), "0101234567")
	require.NoError(t, err)
	assert.Equal(t, &mst.Company{
		TaxID:          "0101234567",
		Name:           "CÔNG TY TNHH CÁT HẢI",
		Address:        "Số 1, Cát Hải, Hải Phòng",
		Representative: "Nguyễn Văn A",
	}, c)
	assert.True(t, gock.IsDone())
}

func TestClient_LookupNotFound(t *testing.T) {
	defer gock.Off()

	gock.New("https://esgoo.test").
		Get("/api-mst/0309876543.htm").
		Reply(http.StatusOK).
		JSON(map[string]any{"error": 1, "error_text": "Không có dữ liệu!"})

	_, err := getClient(t).Lookup(context.Background(), "0309876543")
	assert.ErrorIs(t, err, mst.ErrNotFound)
}

func TestClient_LookupUnavailable(t *testing.T) {
	defer gock.Off()

	gock.New("https://esgoo.test").
		Get("/api-mst/0309876543.htm").
		Reply(http.StatusBadGateway)

	_, err := getClient(t).Lookup(context.Background(), "0309876543")
	require.Error(t, err)
	assert.False(t, errors.Is(err, mst.ErrNotFound))
}

func TestClient_LookupInvalid(t *testing.T) {
	_, err := getClient(t).Lookup(context.Background(), "12")
	assert.ErrorIs(t, err, mst.ErrInvalidTaxID)
}
