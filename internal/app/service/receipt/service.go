package receipt

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	models "github.com/artsarchive/giving/internal/models"
	"github.com/artsarchive/giving/internal/platform/cybersource"
	"github.com/artsarchive/giving/internal/platform/mail"
	cfgpkg "github.com/artsarchive/giving/pkg/config"
)

// Subject is the fixed subject line for every receipt email.
const Subject = "Thank you for your support of the Arts Archive"

const donationMessage = "Thank you for supporting the Arts Archive. By giving to the Archive, " +
	"you are helping to ensure that significant records and untold stories documenting the " +
	"history of art in America are collected, preserved, and shared with the world. Unless you " +
	"opted out of receiving it, donors of at least $250 will receive the Arts Archive Journal, " +
	"with goods and services valued at $35. Gifts less than $250 or greater than $1,750 are " +
	"fully tax deductible. Should you have any questions about your donation, you can reach us " +
	"at giving@artsarchive.org."

const galaMessage = "Thank you for your support of the Arts Archive Gala. The estimated " +
	"fair-market value of goods and services for table purchases is $4,535 for Benefactor, " +
	"$3,785 for Patron, and $3,035 for Partner. Fair-market value for all ticket purchases is " +
	"$410. If you have any questions about your gift, please contact us at gala@artsarchive.org. " +
	"We look forward to seeing you."

// Gateway is the slice of the payment client receipts need. The lookup
// always targets the environment the record was charged in.
type Gateway interface {
	GetTransaction(ctx context.Context, env, id string) (*cybersource.TransactionDetails, error)
}

// JobQueue stores undeliverable receipts for a later retry.
type JobQueue interface {
	Enqueue(ctx context.Context, job *models.ReceiptJob) error
	HasPending(ctx context.Context, paymentRecordID uint) (bool, error)
}

// Service renders and delivers receipt emails. Sends that fail, either at
// transaction lookup or at the mail hop, fall back to the durable queue.
type Service struct {
	cfg    *cfgpkg.Config
	log    *zap.SugaredLogger
	mailer mail.Mailer
	queue  JobQueue
}

func NewService(cfg *cfgpkg.Config, log *zap.SugaredLogger, mailer mail.Mailer, queue *Queue) *Service {
	return &Service{cfg: cfg, log: log, mailer: mailer, queue: queue}
}

// TrySendReceipt attempts a receipt delivery and reports whether it went
// out. A failed attempt is parked in the queue, at most one pending job per
// payment record.
func (s *Service) TrySendReceipt(ctx context.Context, gw Gateway, rec *models.PaymentRecord, mailKey, toOverride string) bool {
	if err := s.SendReceipt(ctx, gw, rec, mailKey, toOverride); err != nil {
		s.log.Warnw("receipt delivery failed", "code", rec.Code, "err", err)
		s.enqueueOnce(ctx, rec, mailKey, toOverride)
		return false
	}
	return true
}

// SendReceipt looks the transaction back up at the gateway, renders the
// email, and sends it. Unlike TrySendReceipt it never touches the queue;
// the worker uses it so a retried job is not re-enqueued on failure.
func (s *Service) SendReceipt(ctx context.Context, gw Gateway, rec *models.PaymentRecord, mailKey, toOverride string) error {
	tx, err := gw.GetTransaction(ctx, rec.Environment, rec.GatewayPaymentID())
	if err != nil {
		return fmt.Errorf("transaction lookup: %w", err)
	}

	to := toOverride
	if to == "" {
		to = tx.OrderInformation.BillTo.Email
	}

	body := buildEmailBody(rec, tx)
	if err := s.mailer.SendMail(mailKey, to, Subject, body); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	s.log.Infow("receipt emailed", "code", rec.Code, "to", to)
	return nil
}

func (s *Service) enqueueOnce(ctx context.Context, rec *models.PaymentRecord, mailKey, toOverride string) {
	pending, err := s.queue.HasPending(ctx, rec.ID)
	if err != nil {
		s.log.Errorw("receipt queue lookup failed", "payment_record_id", rec.ID, "err", err)
		return
	}
	if pending {
		return
	}

	job := &models.ReceiptJob{
		PaymentRecordID:   rec.ID,
		Environment:       rec.Environment,
		MailKey:           mailKey,
		RecipientOverride: toOverride,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.log.Errorw("receipt enqueue failed", "payment_record_id", rec.ID, "err", err)
	}
}

// formatAmount renders a gateway amount string with two decimal places.
// Unparseable input passes through untouched.
func formatAmount(amount string) string {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return amount
	}
	return d.StringFixed(2)
}

// buildEmailBody is the plain-text receipt template.
func buildEmailBody(rec *models.PaymentRecord, tx *cybersource.TransactionDetails) string {
	billTo := tx.OrderInformation.BillTo
	card := tx.PaymentInformation.Card
	amount := formatAmount(tx.OrderInformation.AmountDetails.AuthorizedAmount)
	date := tx.SubmitTime().Format("January 2, 2006")

	var b strings.Builder

	if rec.DonationType() == models.DonationTypeGala {
		b.WriteString(galaMessage)
	} else {
		b.WriteString(donationMessage)
	}
	b.WriteString("\n\nRECEIPT\n\n")
	fmt.Fprintf(&b, "Date: %s\n", date)
	fmt.Fprintf(&b, "Order Number: %s\n", rec.Code)
	b.WriteString("\n------------------------------------\n\nBILLING INFORMATION\n\n")
	fmt.Fprintf(&b, "%s %s\n", billTo.FirstName, billTo.LastName)
	if billTo.Company != "" {
		fmt.Fprintf(&b, "%s\n", billTo.Company)
	}
	fmt.Fprintf(&b, "%s\n", billTo.Address1)
	if billTo.Address2 != "" {
		fmt.Fprintf(&b, "%s\n", billTo.Address2)
	}
	fmt.Fprintf(&b, "%s\n", billTo.Locality)
	fmt.Fprintf(&b, "%s\n", billTo.AdministrativeArea)
	fmt.Fprintf(&b, "%s\n", billTo.PostalCode)
	fmt.Fprintf(&b, "%s\n", billTo.Email)
	fmt.Fprintf(&b, "%s\n", billTo.PhoneNumber)
	b.WriteString("\n------------------------------------\n\nPAYMENT DETAILS\n\n")
	fmt.Fprintf(&b, "Card Type %s\n", CardTypeName(card.Type))
	fmt.Fprintf(&b, "Card Number xxxxxxxxxxxx%s\n", card.Suffix)
	fmt.Fprintf(&b, "Expiration %s-%s\n", card.ExpirationMonth, card.ExpirationYear)
	b.WriteString("\n------------------------------------\n")

	if rec.DonationType() == models.DonationTypeGala || rec.OrderDetailsLong != "" {
		b.WriteString("\nORDER DETAILS\n\n")
		for _, detail := range strings.Split(rec.OrderDetailsLong, "; ") {
			if detail == "" {
				continue
			}
			fmt.Fprintf(&b, "%s\n", detail)
		}
	}

	b.WriteString("\nTOTAL AMOUNT\n\n")
	fmt.Fprintf(&b, "$ %s\n", amount)

	return b.String()
}
