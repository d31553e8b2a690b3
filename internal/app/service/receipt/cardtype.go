package receipt

// cardTypeNames maps the gateway's numeric card-type codes to brand names.
var cardTypeNames = map[string]string{
	"001": "Visa",
	"002": "Mastercard",
	"003": "American Express",
	"004": "Discover",
	"005": "Diners Club",
	"006": "Carte Blanche",
	"007": "JCB",
	"042": "Maestro",
}

// CardTypeName returns the brand name for a gateway card-type code, or ""
// for an unmapped code.
func CardTypeName(code string) string {
	return cardTypeNames[code]
}
