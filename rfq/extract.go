// Package rfq extracts structured request-for-quotation fields from
// free-text user input.
package rfq

import (
	"regexp"
	"strings"
)

// Fields holds the RFQ data pulled out of a conversation. Quantity stays a
// string: it is passed through to the SAP tool schema untouched.
type Fields struct {
	MaterialNumber string `json:"material_number"`
	SupplierID     string `json:"supplier_id"`
	Quantity       string `json:"quantity"`
	DeliveryDate   string `json:"delivery_date"`
	RFQName        string `json:"rfq_name,omitempty"`
}

// Pattern lists are ordered from most to least specific. For each field the
// first pattern that matches anywhere in the text wins, and within that
// pattern the last occurrence wins, so later corrections override earlier
// mentions.
var (
	materialPatterns = compileAll(
		`material\s+(?:number\s*)?:?\s*([A-Z0-9\-]+)`,
		`for\s+material\s+([A-Z0-9\-]+)`,
		`mat\s*:?\s*([A-Z0-9\-]+)`,
		`\b([A-Z]{2,4}-[A-Z]{2,4}-[A-Z0-9]{3,6}-[0-9]{2})\b`,
	)

	supplierPatterns = compileAll(
		`supplier\s+(?:id\s*)?:?\s*([A-Z0-9\-]+)`,
		`vendor\s+(?:id\s*)?:?\s*([A-Z0-9\-]+)`,
		`to\s+vendor\s+([A-Z0-9\-]+)`,
		`from\s+supplier\s+([A-Z0-9\-]+)`,
		`\b([A-Z]{3,5}-[A-Z0-9]{3,8})\b`,
	)

	quantityPatterns = compileAll(
		`quantity\s*:?\s*([0-9]+)`,
		`qty\s*:?\s*([0-9]+)`,
		`for\s+quantity\s+([0-9]+)`,
		`amount\s*:?\s*([0-9]+)`,
		`\b([0-9]{1,6})\s+(?:units?|pieces?|pcs?)`,
		`(?:qty|quantity)\s+([0-9]+)`,
	)

	deliveryPatterns = compileAll(
		`delivery\s+date\s*:?\s*([0-9]{4}-[0-9]{2}-[0-9]{2})`,
		`delivery\s*:?\s*([0-9]{4}-[0-9]{2}-[0-9]{2})`,
		`date\s*:?\s*([0-9]{4}-[0-9]{2}-[0-9]{2})`,
		`by\s+([0-9]{4}-[0-9]{2}-[0-9]{2})`,
		`on\s+([0-9]{4}-[0-9]{2}-[0-9]{2})`,
	)

	namePatterns = compileAll(
		`rfq\s+name\s*:?\s*["']?([^"';\n]+)["']?`,
		`name\s*:?\s*["']?([^"';\n]+)["']?`,
		`rfq\s+title\s*:?\s*["']?([^"';\n]+)["']?`,
		`title\s*:?\s*["']?([^"';\n]+)["']?`,
		`call\s+(?:it|this)\s*:?\s*["']?([^"';\n]+)["']?`,
		`named?\s*:?\s*["']?([^"';\n]+)["']?`,
	)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(`(?i)` + p)
	}
	return compiled
}

// lastMatch returns the capture group of the final occurrence of the first
// matching pattern, or "" when nothing matches.
func lastMatch(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		matches := re.FindAllStringSubmatch(text, -1)
		if len(matches) > 0 {
			return matches[len(matches)-1][1]
		}
	}
	return ""
}

// Extract pulls RFQ fields from the current input combined with prior
// conversation context. Context comes first so the current message can
// override it.
func Extract(input, conversationContext string) Fields {
	text := conversationContext + "\n" + input

	return Fields{
		MaterialNumber: lastMatch(materialPatterns, text),
		SupplierID:     lastMatch(supplierPatterns, text),
		Quantity:       lastMatch(quantityPatterns, text),
		DeliveryDate:   lastMatch(deliveryPatterns, text),
		RFQName:        strings.TrimSpace(lastMatch(namePatterns, text)),
	}
}
