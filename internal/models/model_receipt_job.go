package models

import "time"

// ReceiptJob is a durable retry record for a receipt that could not be
// delivered. Jobs are consumed by the receipt worker and deleted once the
// send succeeds; a failed send leaves the row for the next drain.
//
// At most one pending job per payment record is intended, enforced by a
// best-effort scan before enqueue rather than a constraint.
type ReceiptJob struct {
	ID              uint `gorm:"column:id;primaryKey" json:"id"`
	PaymentRecordID uint `gorm:"column:payment_record_id;not null;index" json:"payment_record_id"`
	// Environment mirrors the record's environment at enqueue time, for
	// operator triage; delivery re-reads the record.
	Environment string `gorm:"column:environment;type:varchar(16);not null" json:"environment"`
	MailKey     string `gorm:"column:mail_key;type:varchar(128);not null" json:"mail_key"`
	// RecipientOverride replaces the bill-to email when set.
	RecipientOverride string    `gorm:"column:recipient_override;type:varchar(255)" json:"recipient_override"`
	Attempts          int       `gorm:"column:attempts;default:0" json:"attempts"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (ReceiptJob) TableName() string {
	return "receipt_job"
}
