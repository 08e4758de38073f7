package tools

import (
	"context"
	"encoding/json"

	"github.com/spasystems/spa-multiagent/rfq"
)

// ValidateRFQ checks that a message spells out all four required RFQ fields
// before the model hands them to the gateway's create_rfq tool.
type ValidateRFQ struct{}

func NewValidateRFQ() *ValidateRFQ { return &ValidateRFQ{} }

func (t *ValidateRFQ) Name() string { return "validate_rfq_data" }

func (t *ValidateRFQ) Description() string {
	return "Validate that the user input contains material number, supplier id, quantity and delivery date for an RFQ."
}

func (t *ValidateRFQ) InputSchema() map[string]any {
	return objectSchema(map[string]string{
		"user_input": "The user's message to validate",
	}, "user_input")
}

func (t *ValidateRFQ) Invoke(_ context.Context, args map[string]any) string {
	fields, missing := rfq.Validate(stringArg(args, "user_input"))
	if len(missing) > 0 {
		return rfq.MissingMessage(missing)
	}

	payload, err := json.Marshal(map[string]string{
		"material_number": fields.MaterialNumber,
		"supplier_id":     fields.SupplierID,
		"quantity":        fields.Quantity,
		"delivery_date":   fields.DeliveryDate,
	})
	if err != nil {
		return "Error validating RFQ data: " + err.Error()
	}
	return "RFQ data validated successfully: " + string(payload)
}
