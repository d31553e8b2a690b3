package cybersource

import (
	"fmt"
	"time"
)

// Business statuses returned by the gateway on payment creation. The set is
// open: statuses are passed through and stored verbatim, these constants only
// name the ones the orchestration layer branches on.
const (
	StatusAuthorized              = "AUTHORIZED"
	StatusAuthorizedPendingReview = "AUTHORIZED_PENDING_REVIEW"
	StatusAuthorizedRiskDeclined  = "AUTHORIZED_RISK_DECLINED"
	StatusDeclined                = "DECLINED"
	StatusInvalidRequest          = "INVALID_REQUEST"
	StatusServerError             = "SERVER_ERROR"
	StatusPending                 = "PENDING"
	StatusTransmitted             = "TRANSMITTED"
)

// IsDeclineStatus reports whether a payment status means the charge must not
// be recorded.
func IsDeclineStatus(status string) bool {
	switch status {
	case StatusDeclined, StatusAuthorizedRiskDeclined, StatusInvalidRequest, StatusServerError:
		return true
	}
	return false
}

type ClientReferenceInformation struct {
	Code string `json:"code"`
}

type AmountDetails struct {
	TotalAmount string `json:"totalAmount"`
	Currency    string `json:"currency"`
}

type BillTo struct {
	FirstName          string `json:"firstName"`
	LastName           string `json:"lastName"`
	Company            string `json:"company,omitempty"`
	Address1           string `json:"address1"`
	Address2           string `json:"address2,omitempty"`
	Locality           string `json:"locality"`
	AdministrativeArea string `json:"administrativeArea"`
	PostalCode         string `json:"postalCode"`
	Country            string `json:"country"`
	Email              string `json:"email"`
	PhoneNumber        string `json:"phoneNumber"`
}

// ShipTo carries no contact fields; use BillTo.ShipTo to derive it.
type ShipTo struct {
	FirstName          string `json:"firstName"`
	LastName           string `json:"lastName"`
	Company            string `json:"company,omitempty"`
	Address1           string `json:"address1"`
	Address2           string `json:"address2,omitempty"`
	Locality           string `json:"locality"`
	AdministrativeArea string `json:"administrativeArea"`
	PostalCode         string `json:"postalCode"`
	Country            string `json:"country"`
}

// ShipTo derives a shipping address from the billing address with email and
// phone stripped.
func (b *BillTo) ShipTo() *ShipTo {
	return &ShipTo{
		FirstName:          b.FirstName,
		LastName:           b.LastName,
		Company:            b.Company,
		Address1:           b.Address1,
		Address2:           b.Address2,
		Locality:           b.Locality,
		AdministrativeArea: b.AdministrativeArea,
		PostalCode:         b.PostalCode,
		Country:            b.Country,
	}
}

type OrderInformation struct {
	AmountDetails AmountDetails `json:"amountDetails"`
	BillTo        *BillTo       `json:"billTo,omitempty"`
	ShipTo        *ShipTo       `json:"shipTo,omitempty"`
}

type TokenInformation struct {
	TransientTokenJWT string `json:"transientTokenJwt"`
}

type MerchantInitiatedTransaction struct {
	PreviousTransactionID string `json:"previousTransactionId"`
}

type Initiator struct {
	CredentialStoredOnFile       bool                          `json:"credentialStoredOnFile,omitempty"`
	StoredCredentialUsed         bool                          `json:"storedCredentialUsed,omitempty"`
	Type                         string                        `json:"type,omitempty"`
	MerchantInitiatedTransaction *MerchantInitiatedTransaction `json:"merchantInitiatedTransaction,omitempty"`
}

type AuthorizationOptions struct {
	Initiator Initiator `json:"initiator"`
}

type ProcessingInformation struct {
	AuthorizationOptions AuthorizationOptions `json:"authorizationOptions"`
	CommerceIndicator    string               `json:"commerceIndicator,omitempty"`
	ActionList           []string             `json:"actionList,omitempty"`
	ActionTokenTypes     []string             `json:"actionTokenTypes,omitempty"`
	Capture              *bool                `json:"capture,omitempty"`
}

// NewProcessingOptions builds processing information for a card-on-file
// series. With an empty previousTransactionID this is the first charge of the
// series: the card is flagged for storage and customer/instrument/shipping
// tokens are requested without capture. With a previous id it is a subsequent
// merchant-initiated charge referencing the original transaction.
func NewProcessingOptions(previousTransactionID string) *ProcessingInformation {
	if previousTransactionID == "" {
		capture := false
		return &ProcessingInformation{
			AuthorizationOptions: AuthorizationOptions{
				Initiator: Initiator{CredentialStoredOnFile: true},
			},
			ActionList:       []string{"TOKEN_CREATE"},
			ActionTokenTypes: []string{"customer", "paymentInstrument", "shippingAddress"},
			Capture:          &capture,
		}
	}

	return &ProcessingInformation{
		AuthorizationOptions: AuthorizationOptions{
			Initiator: Initiator{
				StoredCredentialUsed: true,
				Type:                 "merchant",
				MerchantInitiatedTransaction: &MerchantInitiatedTransaction{
					PreviousTransactionID: previousTransactionID,
				},
			},
		},
		CommerceIndicator: "recurring",
	}
}

type PaymentInformationCustomer struct {
	CustomerID string `json:"customerId"`
}

type PaymentInformation struct {
	Customer *PaymentInformationCustomer `json:"customer,omitempty"`
}

type MerchantDefinedInformation struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type CreatePaymentRequest struct {
	ClientReferenceInformation ClientReferenceInformation   `json:"clientReferenceInformation"`
	OrderInformation           OrderInformation             `json:"orderInformation"`
	ProcessingInformation      *ProcessingInformation       `json:"processingInformation,omitempty"`
	TokenInformation           *TokenInformation            `json:"tokenInformation,omitempty"`
	PaymentInformation         *PaymentInformation          `json:"paymentInformation,omitempty"`
	MerchantDefinedInformation []MerchantDefinedInformation `json:"merchantDefinedInformation,omitempty"`
}

type ErrorInformation struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type ResponseCustomer struct {
	ID string `json:"id"`
}

type ResponseTokenInformation struct {
	Customer *ResponseCustomer `json:"customer"`
}

// PaymentResponse is the success variant of a payment creation call.
// Transport and API failures are reported as *APIError instead.
type PaymentResponse struct {
	ID               string                    `json:"id"`
	SubmitTimeUTC    string                    `json:"submitTimeUtc"`
	Status           string                    `json:"status"`
	ErrorInformation *ErrorInformation         `json:"errorInformation,omitempty"`
	TokenInformation *ResponseTokenInformation `json:"tokenInformation,omitempty"`
}

// SubmitTime parses the gateway timestamp; falls back to now on a malformed
// value so downstream scheduling always has a base time.
func (r *PaymentResponse) SubmitTime() time.Time {
	if t, err := time.Parse(time.RFC3339, r.SubmitTimeUTC); err == nil {
		return t
	}
	return time.Now().UTC()
}

// CustomerID returns the gateway-issued customer token, empty when the
// response carries none.
func (r *PaymentResponse) CustomerID() string {
	if r.TokenInformation == nil || r.TokenInformation.Customer == nil {
		return ""
	}
	return r.TokenInformation.Customer.ID
}

type TransactionCard struct {
	Suffix          string `json:"suffix"`
	Prefix          string `json:"prefix"`
	ExpirationMonth string `json:"expirationMonth"`
	ExpirationYear  string `json:"expirationYear"`
	Type            string `json:"type"`
}

type TransactionPaymentInformation struct {
	Card TransactionCard `json:"card"`
}

type TransactionAmountDetails struct {
	TotalAmount      string `json:"totalAmount"`
	AuthorizedAmount string `json:"authorizedAmount"`
	Currency         string `json:"currency"`
}

type TransactionOrderInformation struct {
	AmountDetails TransactionAmountDetails `json:"amountDetails"`
	BillTo        BillTo                   `json:"billTo"`
}

// TransactionDetails is the read-model returned by transaction lookup, used
// to render receipts.
type TransactionDetails struct {
	ID                 string                        `json:"id"`
	SubmitTimeUTC      string                        `json:"submitTimeUTC"`
	OrderInformation   TransactionOrderInformation   `json:"orderInformation"`
	PaymentInformation TransactionPaymentInformation `json:"paymentInformation"`
}

func (t *TransactionDetails) SubmitTime() time.Time {
	if ts, err := time.Parse(time.RFC3339, t.SubmitTimeUTC); err == nil {
		return ts
	}
	return time.Now().UTC()
}

// CaptureContextRequest asks the gateway for a one-time key the browser
// widget uses to tokenize card fields.
type CaptureContextRequest struct {
	EncryptionType string `json:"encryptionType"`
	TargetOrigin   string `json:"targetOrigin"`
}

type CaptureContextResponse struct {
	KeyID string `json:"keyId"`
}

type CustomerResponse struct {
	ID               string `json:"id"`
	ObjectInformation struct {
		Title string `json:"title"`
	} `json:"objectInformation"`
}

// APIError carries the gateway's error response. Callers branch on it
// with errors.As.
type APIError struct {
	StatusCode int
	Reason     string
	Message    string
	RawBody    []byte
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cybersource: %s: %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("cybersource: %s", e.Message)
}
