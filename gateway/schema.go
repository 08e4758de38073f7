package gateway

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol/types"
)

// RFQTargetConfiguration is the Lambda target carrying the create_rfq tool
// as an inline schema. The field names mirror the SAP Lambda's event payload.
func RFQTargetConfiguration(lambdaARN string) types.TargetConfiguration {
	return &types.TargetConfigurationMemberMcp{
		Value: &types.McpTargetConfigurationMemberLambda{
			Value: types.McpLambdaTargetConfiguration{
				LambdaArn: aws.String(lambdaARN),
				ToolSchema: &types.ToolSchemaMemberInlinePayload{
					Value: []types.ToolDefinition{createRFQTool()},
				},
			},
		},
	}
}

func createRFQTool() types.ToolDefinition {
	str := func(desc string) types.SchemaDefinition {
		return types.SchemaDefinition{
			Type:        types.SchemaTypeString,
			Description: aws.String(desc),
		}
	}

	return types.ToolDefinition{
		Name:        aws.String("create_rfq"),
		Description: aws.String("Create a Request for Quotation in SAP with the supplied material, supplier, quantity and delivery date."),
		InputSchema: &types.SchemaDefinition{
			Type: types.SchemaTypeObject,
			Properties: map[string]types.SchemaDefinition{
				"material_number": str("Material number, e.g. MAT-100012"),
				"supplier_id":     str("Supplier identifier, e.g. SUP-1001"),
				"quantity":        str("Quantity to request, as a string"),
				"delivery_date":   str("Requested delivery date, YYYY-MM-DD"),
				"rfq_name":        str("Optional descriptive name for the RFQ"),
			},
			Required: []string{"material_number", "supplier_id", "quantity", "delivery_date"},
		},
	}
}
