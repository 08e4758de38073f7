package rfq

import (
	"regexp"
	"strings"
)

// Validation uses stricter label-only patterns than Extract: the user must
// spell out each field, and the first occurrence is taken.
var (
	validateMaterial = regexp.MustCompile(`(?i)material\s+number\s*:?\s*([A-Za-z0-9\-]+)`)
	validateSupplier = regexp.MustCompile(`(?i)supplier\s+id\s*:?\s*([A-Za-z0-9\-]+)`)
	validateQuantity = regexp.MustCompile(`(?i)quantity\s*:?\s*([0-9]+)`)
	validateDelivery = regexp.MustCompile(`(?i)delivery\s+date\s*:?\s*([0-9]{4}-[0-9]{2}-[0-9]{2})`)
)

func firstMatch(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// Validate checks that the four required RFQ fields are present in the
// input. It returns the extracted fields plus the human-readable names of
// any that are missing, in field order.
func Validate(input string) (Fields, []string) {
	fields := Fields{
		MaterialNumber: firstMatch(validateMaterial, input),
		SupplierID:     firstMatch(validateSupplier, input),
		Quantity:       firstMatch(validateQuantity, input),
		DeliveryDate:   firstMatch(validateDelivery, input),
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"Material Number", fields.MaterialNumber},
		{"Supplier Id", fields.SupplierID},
		{"Quantity", fields.Quantity},
		{"Delivery Date", fields.DeliveryDate},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return fields, missing
}

// MissingMessage formats the validation failure message shown to the model.
func MissingMessage(missing []string) string {
	return "Missing required information: " + strings.Join(missing, ", ")
}
