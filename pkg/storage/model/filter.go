package model

import (
	"time"

	"github.com/cathai/invoice-backend/pkg/models"
)

// FilterSameDay returns the records created on the calendar day of now, as
// seen from loc.
func FilterSameDay(records []models.InvoiceRequest, now time.Time, loc *time.Location) []models.InvoiceRequest {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := now.In(loc).Date()

	today := []models.InvoiceRequest{}
	for _, r := range records {
		ry, rm, rd := r.Timestamp.In(loc).Date()
		if ry == y && rm == m && rd == d {
			today = append(today, r)
		}
	}
	return today
}
