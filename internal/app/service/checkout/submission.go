package checkout

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/artsarchive/giving/internal/platform/cybersource"
)

// maxTicketRows caps how many indexed ticket rows a gala submission is
// scanned for. Rows may be absent without terminating the scan.
const maxTicketRows = 15

type Name struct {
	First string `json:"first"`
	Last  string `json:"last"`
}

type Address struct {
	Address       string `json:"address"`
	Address2      string `json:"address_2"`
	City          string `json:"city"`
	StateProvince string `json:"state_province"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
}

type TicketRow struct {
	Attendee    string `json:"attendee"`
	Affiliation string `json:"affiliation"`
}

type GalaFields struct {
	// Rows is indexed by seat position; nil entries are tolerated gaps.
	Rows []*TicketRow `json:"rows"`
}

type DonationFields struct {
	// Direction is the direction-of-gift designation, required for donation
	// submissions.
	Direction string `json:"direction"`
	// HonoreeType is "honor" or "memory" when a gift names an honoree.
	HonoreeType   string `json:"honoree_type"`
	HonoreeName   string `json:"honoree_name"`
	JournalOptOut bool   `json:"journal_opt_out"`
}

// SubmissionKind tags which of the two mutually exclusive form shapes a
// submission carries, resolved once at validation time.
type SubmissionKind int

const (
	KindDonation SubmissionKind = iota
	KindGala
)

// Submission is the structured checkout payload from the form layer.
type Submission struct {
	FormID          string          `json:"form_id"`
	Amount          string          `json:"amount"`
	ExpirationMonth string          `json:"expiration_month"`
	ExpirationYear  string          `json:"expiration_year"`
	Name            *Name           `json:"name"`
	Company         string          `json:"company"`
	Address         *Address        `json:"address"`
	Phone           string          `json:"phone"`
	Email           string          `json:"email"`
	// Token is the one-time transient token from the browser-side widget.
	Token     string          `json:"token"`
	Recurring bool            `json:"recurring"`
	Gala      *GalaFields     `json:"gala,omitempty"`
	Donation  *DonationFields `json:"donation,omitempty"`
}

// Kind resolves the submission shape: the presence of the gala field group
// makes it a gala submission, anything else is a donation.
func (s *Submission) Kind() SubmissionKind {
	if s.Gala != nil {
		return KindGala
	}
	return KindDonation
}

// ValidationError is a local, pre-gateway rejection. No gateway call is made
// and nothing is persisted when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// checkRequiredFields verifies the fields a payment transaction cannot be
// built without. When several are missing only the last one left on the
// check list is named, matching the form layer's single-error surface.
func (s *Submission) checkRequiredFields() *ValidationError {
	type check struct {
		field   string
		present bool
	}

	checks := []check{
		{"amount", s.Amount != ""},
		{"expiration_month", s.ExpirationMonth != ""},
		{"expiration_year", s.ExpirationYear != ""},
		{"name", s.Name != nil && s.Name.First != "" && s.Name.Last != ""},
		{"address", s.Address != nil && s.Address.Address != ""},
		{"phone", s.Phone != ""},
		{"email", s.Email != ""},
	}
	if s.Kind() == KindDonation {
		checks = append(checks, check{"direction", s.Donation != nil && s.Donation.Direction != ""})
	}

	missing := lo.Filter(checks, func(c check, _ int) bool { return !c.present })
	if len(missing) > 0 {
		return &ValidationError{
			Field:   missing[len(missing)-1].field,
			Message: "missing necessary fields for payment transaction",
		}
	}
	return nil
}

// normalizeAmount appends the cents part when the submitted amount carries no
// decimal point, and rejects anything that does not parse to at least 1.
func normalizeAmount(amount string) (string, error) {
	if amount == "" {
		return "", fmt.Errorf("empty amount")
	}
	if !strings.Contains(amount, ".") {
		amount += ".00"
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("malformed amount %q: %w", amount, err)
	}
	if d.LessThan(decimal.NewFromInt(1)) {
		return "", fmt.Errorf("amount must be at least 1")
	}
	return amount, nil
}

// billTo maps the submission's billing block to the gateway shape.
func (s *Submission) billTo() *cybersource.BillTo {
	return &cybersource.BillTo{
		FirstName:          s.Name.First,
		LastName:           s.Name.Last,
		Company:            s.Company,
		Address1:           s.Address.Address,
		Address2:           s.Address.Address2,
		Locality:           s.Address.City,
		AdministrativeArea: s.Address.StateProvince,
		PostalCode:         s.Address.PostalCode,
		Country:            s.Address.Country,
		Email:              s.Email,
		PhoneNumber:        s.Phone,
	}
}

// merchantDefinedInfo builds the per-kind metadata sent to the gateway. The
// same lines become the record's stored order details.
func (s *Submission) merchantDefinedInfo() ([]cybersource.MerchantDefinedInformation, []string) {
	switch s.Kind() {
	case KindGala:
		return s.galaInfo()
	default:
		return s.donationInfo()
	}
}

func (s *Submission) galaInfo() ([]cybersource.MerchantDefinedInformation, []string) {
	var info []cybersource.MerchantDefinedInformation
	var details []string

	for i := 0; i < maxTicketRows; i++ {
		if i >= len(s.Gala.Rows) {
			break
		}
		row := s.Gala.Rows[i]
		if row == nil || row.Attendee == "" {
			// a gap in the table, keep scanning
			continue
		}

		line := fmt.Sprintf("Ticket %d: %s", i+1, row.Attendee)
		if row.Affiliation != "" {
			line += fmt.Sprintf(" (%s)", row.Affiliation)
		}
		info = append(info, cybersource.MerchantDefinedInformation{
			Key:   fmt.Sprintf("%d", len(info)+1),
			Value: line,
		})
		details = append(details, line)
	}

	return info, details
}

func (s *Submission) donationInfo() ([]cybersource.MerchantDefinedInformation, []string) {
	var lines []string

	if s.Donation != nil {
		if s.Donation.Direction != "" {
			lines = append(lines, "Direction of gift: "+s.Donation.Direction)
		}
		if s.Donation.HonoreeName != "" {
			kind := "honor"
			if s.Donation.HonoreeType == "memory" {
				kind = "memory"
			}
			lines = append(lines, fmt.Sprintf("In %s of %s", kind, s.Donation.HonoreeName))
		}
		if s.Donation.JournalOptOut {
			lines = append(lines, "Journal opt out: yes")
		}
	}
	if s.Recurring {
		lines = append(lines, "Recurring: monthly")
	}

	info := lo.Map(lines, func(line string, i int) cybersource.MerchantDefinedInformation {
		return cybersource.MerchantDefinedInformation{Key: fmt.Sprintf("%d", i+1), Value: line}
	})
	return info, lines
}

// Sanitize strips PII and card fields from the submission. After a
// successful charge this data lives only in the gateway's tokens.
func (s *Submission) Sanitize() {
	s.Name = nil
	s.Company = ""
	s.Address = nil
	s.Phone = ""
	s.ExpirationMonth = ""
	s.ExpirationYear = ""
	s.Token = ""
}
