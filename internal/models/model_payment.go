package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// PaymentRecord tracks one charge attempt made through the gateway. It holds
// tokenized references and payment metadata only; card data and payer PII
// live in the gateway's tokens, never here.
//
// A recurring series is rooted at a record with Recurring=true; each
// successful billing cycle appends a child record (Recurring=false) to
// RecurringPayments, and the child points back via ParentID.
type PaymentRecord struct {
	ID   uint   `gorm:"column:id;primaryKey" json:"id"`
	UUID string `gorm:"column:uuid;type:uuid;uniqueIndex" json:"uuid"`
	// Code is the human-facing order reference, <prefix>-<4 digits>-<4 digits>.
	// Unique in practice but not enforced by the schema.
	Code string `gorm:"column:code;type:varchar(64);not null;index" json:"code"`
	// PaymentID is the gateway transaction id, absent while pending.
	PaymentID *string `gorm:"column:payment_id;type:varchar(64);index" json:"payment_id"`
	// CustomerID is the tokenized customer reference, present only on
	// recurring roots.
	CustomerID       *string `gorm:"column:customer_id;type:varchar(64)" json:"customer_id"`
	AuthorizedAmount string  `gorm:"column:authorized_amount;type:varchar(16);not null" json:"authorized_amount"`
	Currency         string  `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	// Status is the gateway-reported status stored verbatim; it is not
	// validated against a closed set.
	Status          string `gorm:"column:status;type:varchar(64);not null" json:"status"`
	Recurring       bool   `gorm:"column:recurring;not null" json:"recurring"`
	RecurringActive bool   `gorm:"column:recurring_active;not null;index" json:"recurring_active"`
	RecurringMax    int    `gorm:"column:recurring_max;default:12" json:"recurring_max"`
	// RecurringNext is the next time this record is eligible for a
	// merchant-initiated charge.
	RecurringNext     *time.Time                `gorm:"column:recurring_next;default:null" json:"recurring_next"`
	RecurringPayments datatypes.JSONSlice[uint] `gorm:"column:recurring_payments;type:jsonb" json:"recurring_payments"`
	// ParentID links a chained charge back to the root of its series.
	ParentID *uint `gorm:"column:parent_id;index" json:"parent_id"`
	// Environment is captured at creation and reused for every later gateway
	// lookup on this record. It never changes.
	Environment      string     `gorm:"column:environment;type:varchar(16);not null" json:"environment"`
	OrderDetailsLong string     `gorm:"column:order_details_long;type:text" json:"order_details_long"`
	SubmittedAt      *time.Time `gorm:"column:submitted_at;default:null" json:"submitted_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (PaymentRecord) TableName() string {
	return "payment_record"
}

func (p *PaymentRecord) IsActiveRecurring() bool {
	if p == nil || !p.Recurring {
		return false
	}
	return p.RecurringActive
}

// ChargeCount is the number of charges made in this series so far, the root
// included.
func (p *PaymentRecord) ChargeCount() int {
	return len(p.RecurringPayments) + 1
}

// GatewayPaymentID returns the gateway transaction id or "" while pending.
func (p *PaymentRecord) GatewayPaymentID() string {
	if p == nil || p.PaymentID == nil {
		return ""
	}
	return *p.PaymentID
}

// DonationType is the receipt-content category, inferred from the order code.
type DonationType string

const (
	DonationTypeGala     DonationType = "GALA"
	DonationTypeDonation DonationType = "DONATION"
)

// DonationType derives the campaign type from the record's code. This is the
// only place campaign type is determined; it is not a stored field.
func (p *PaymentRecord) DonationType() DonationType {
	if strings.Contains(p.Code, "GALA") {
		return DonationTypeGala
	}
	return DonationTypeDonation
}
