package models

import "time"

const DefaultCustomerName = "Khách hàng"

// InvoiceRequest is a customer's request for a VAT invoice, as accepted by the
// intake endpoint.
type InvoiceRequest struct {
	Id             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email"`
	Mst            string    `json:"mst"`
	CompanyName    string    `json:"companyName"`
	CompanyAddress string    `json:"companyAddress"`
	Representative string    `json:"representative"`

	// ImagePath references the stored photo of the invoice. It only lives in
	// memory between intake and notification.
	ImagePath string `json:"-"`
}
