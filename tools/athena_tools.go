package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// QueryRunner executes SQL and renders rows as tab-separated text.
type QueryRunner interface {
	Query(ctx context.Context, database, sql string) (string, error)
}

// QueryAthena runs arbitrary SQL written by the model against the supplier
// performance database.
type QueryAthena struct {
	runner   QueryRunner
	database string
}

func NewQueryAthena(runner QueryRunner, database string) *QueryAthena {
	return &QueryAthena{runner: runner, database: database}
}

func (t *QueryAthena) Name() string { return "query_athena" }

func (t *QueryAthena) Description() string {
	return "Run a SQL query in Athena and return the result rows."
}

func (t *QueryAthena) InputSchema() map[string]any {
	return objectSchema(map[string]string{
		"query": "SQL query to execute",
	}, "query")
}

func (t *QueryAthena) Invoke(ctx context.Context, args map[string]any) string {
	result, err := t.runner.Query(ctx, t.database, stringArg(args, "query"))
	if err != nil {
		log.Error().Err(err).Msg("athena query failed")
		return fmt.Sprintf("Error executing query: %v", err)
	}
	if result == "" {
		return "No results found for your query."
	}
	return result
}

// FinancialPerformance ranks a material's vendors by financial score.
type FinancialPerformance struct {
	runner   QueryRunner
	database string
}

func NewFinancialPerformance(runner QueryRunner, database string) *FinancialPerformance {
	return &FinancialPerformance{runner: runner, database: database}
}

func (t *FinancialPerformance) Name() string { return "get_financial_performance" }

func (t *FinancialPerformance) Description() string {
	return "Get financial performance data for vendors of a specific material."
}

func (t *FinancialPerformance) InputSchema() map[string]any {
	return objectSchema(map[string]string{
		"material_number": "Material number to look up",
	}, "material_number")
}

func (t *FinancialPerformance) Invoke(ctx context.Context, args map[string]any) string {
	material := stringArg(args, "material_number")
	sql := fmt.Sprintf(`SELECT
    vendor_number, material_number, material_description,
    total_orders, total_invoices, avg_po_price, financial_score
FROM v_spa_financial_performance
WHERE material_number = '%s'
ORDER BY financial_score DESC`, material)

	result, err := t.runner.Query(ctx, t.database, sql)
	if err != nil {
		log.Error().Err(err).Str("material", material).Msg("financial performance query failed")
		return fmt.Sprintf("Error retrieving financial performance data: %v", err)
	}
	if onlyHeader(result) {
		return fmt.Sprintf("No financial performance data found for material %s.", material)
	}
	return result
}

// QualityMetrics ranks a material's suppliers by quality score.
type QualityMetrics struct {
	runner   QueryRunner
	database string
}

func NewQualityMetrics(runner QueryRunner, database string) *QualityMetrics {
	return &QualityMetrics{runner: runner, database: database}
}

func (t *QualityMetrics) Name() string { return "get_supplier_quality_metrics" }

func (t *QualityMetrics) Description() string {
	return "Get quality metrics for suppliers of a specific material."
}

func (t *QualityMetrics) InputSchema() map[string]any {
	return objectSchema(map[string]string{
		"material_number": "Material number to look up",
	}, "material_number")
}

func (t *QualityMetrics) Invoke(ctx context.Context, args map[string]any) string {
	material := stringArg(args, "material_number")
	sql := fmt.Sprintf(`SELECT
    vendor_number, total_orders, goods_receipt_rate,
    non_return_rate, overall_quality_score
FROM v_spa_item_supplier_quality
WHERE material_number = '%s'
ORDER BY overall_quality_score DESC`, material)

	result, err := t.runner.Query(ctx, t.database, sql)
	if err != nil {
		log.Error().Err(err).Str("material", material).Msg("quality metrics query failed")
		return fmt.Sprintf("Error retrieving supplier quality metrics: %v", err)
	}
	if onlyHeader(result) {
		return fmt.Sprintf("No quality metrics found for material %s.", material)
	}
	return result
}

// contextWords are inputs where the model is pointing at earlier conversation
// instead of passing actual vendor numbers.
var contextWords = map[string]bool{
	"context":         true,
	"previous":        true,
	"these":           true,
	"those":           true,
	"mentioned":       true,
	"these vendors":   true,
	"those suppliers": true,
}

// VendorCompliance checks REACH/ROHS/CMRT/RBA status for a list of vendors.
// Vendor numbers are accepted in any format the model produces, including
// JSON-ish bracketed lists.
type VendorCompliance struct {
	runner   QueryRunner
	database string
}

func NewVendorCompliance(runner QueryRunner, database string) *VendorCompliance {
	return &VendorCompliance{runner: runner, database: database}
}

func (t *VendorCompliance) Name() string { return "check_vendor_compliance" }

func (t *VendorCompliance) Description() string {
	return "Check compliance status for one or more vendor numbers, comma separated."
}

func (t *VendorCompliance) InputSchema() map[string]any {
	return objectSchema(map[string]string{
		"vendor_numbers": "Comma separated vendor numbers, e.g. 100001,100002",
	}, "vendor_numbers")
}

func (t *VendorCompliance) Invoke(ctx context.Context, args map[string]any) string {
	raw := stringArg(args, "vendor_numbers")

	if contextWords[strings.ToLower(raw)] {
		return "I can see you're referring to previously mentioned vendors. Please provide the specific vendor numbers, or I can help if you tell me which material's vendors you want compliance data for."
	}

	vendors := parseVendorList(raw)
	if len(vendors) == 0 {
		return "Please provide vendor numbers to check compliance data."
	}

	sql := fmt.Sprintf(`SELECT
    vendor_number, "REACH Compliant", "ROHS Compliant", "CMRT", "RBA"
FROM v_compliance_by_vendor
WHERE vendor_number IN ('%s')
ORDER BY vendor_number`, strings.Join(vendors, "','"))

	log.Info().Strs("vendors", vendors).Msg("checking vendor compliance")
	result, err := t.runner.Query(ctx, t.database, sql)
	if err != nil {
		log.Error().Err(err).Msg("compliance query failed")
		return fmt.Sprintf("Error querying compliance database: %v", err)
	}
	if onlyHeader(result) {
		return fmt.Sprintf("No compliance data found for vendors: %s. Please verify these vendor numbers exist in your compliance system.", strings.Join(vendors, ", "))
	}
	return result
}

// parseVendorList strips bracket and quote noise and splits on commas.
// No format validation: unknown vendors simply come back empty from Athena.
func parseVendorList(raw string) []string {
	if strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]") {
		replacer := strings.NewReplacer("[", "", "]", "", `"`, "", "'", "")
		raw = replacer.Replace(raw)
	}

	var vendors []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			vendors = append(vendors, v)
		}
	}
	return vendors
}

// onlyHeader reports whether a tab-separated result holds no data rows. The
// first line Athena returns is the column header.
func onlyHeader(result string) bool {
	return result == "" || !strings.Contains(result, "\n")
}
