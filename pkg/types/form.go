package types

// DefaultCodePrefix is used when a form has no configured order code prefix.
const DefaultCodePrefix = "AAA"

// FormConfig is the per-form configuration loaded once at startup. Each
// donation/ticketing form maps to exactly one entry; the checkout service
// receives the whole list by reference instead of querying settings ad hoc.
type FormConfig struct {
	// ID matches the form_id submitted with a checkout request.
	ID string `mapstructure:"id" json:"id"`
	// Environment overrides the merchant-wide gateway environment for
	// submissions from this form ("development" or "production").
	Environment string `mapstructure:"environment" json:"environment"`
	// CodePrefix is the order reference prefix, e.g. "GALA" or "AAA".
	CodePrefix string `mapstructure:"code_prefix" json:"code_prefix"`
}
