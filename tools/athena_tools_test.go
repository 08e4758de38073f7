package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	database string
	sql      string
	result   string
	err      error
}

func (f *fakeRunner) Query(_ context.Context, database, sql string) (string, error) {
	f.database = database
	f.sql = sql
	return f.result, f.err
}

func TestQueryAthena(t *testing.T) {
	runner := &fakeRunner{result: "vendor_number\tscore\n100001\t92"}
	tool := NewQueryAthena(runner, "spa_analytics")

	out := tool.Invoke(context.Background(), map[string]any{"query": "SELECT 1"})
	assert.Equal(t, "vendor_number\tscore\n100001\t92", out)
	assert.Equal(t, "spa_analytics", runner.database)
	assert.Equal(t, "SELECT 1", runner.sql)
}

func TestQueryAthenaEmptyAndError(t *testing.T) {
	tool := NewQueryAthena(&fakeRunner{}, "spa_analytics")
	assert.Equal(t, "No results found for your query.", tool.Invoke(context.Background(), map[string]any{"query": "SELECT 1"}))

	tool = NewQueryAthena(&fakeRunner{err: errors.New("query failed: SYNTAX_ERROR")}, "spa_analytics")
	out := tool.Invoke(context.Background(), map[string]any{"query": "SELEC"})
	assert.Contains(t, out, "Error executing query")
	assert.Contains(t, out, "SYNTAX_ERROR")
}

func TestFinancialPerformance(t *testing.T) {
	runner := &fakeRunner{result: "vendor_number\tfinancial_score\n100001\t88"}
	tool := NewFinancialPerformance(runner, "spa_analytics")

	out := tool.Invoke(context.Background(), map[string]any{"material_number": "MAT-100012"})
	assert.Contains(t, out, "100001")
	assert.Contains(t, runner.sql, "v_spa_financial_performance")
	assert.Contains(t, runner.sql, "material_number = 'MAT-100012'")
	assert.Contains(t, runner.sql, "ORDER BY financial_score DESC")
}

func TestFinancialPerformanceHeaderOnly(t *testing.T) {
	runner := &fakeRunner{result: "vendor_number\tfinancial_score"}
	tool := NewFinancialPerformance(runner, "spa_analytics")

	out := tool.Invoke(context.Background(), map[string]any{"material_number": "MAT-404"})
	assert.Equal(t, "No financial performance data found for material MAT-404.", out)
}

func TestQualityMetricsQueryShape(t *testing.T) {
	runner := &fakeRunner{result: "vendor_number\toverall_quality_score\n100002\t95"}
	tool := NewQualityMetrics(runner, "spa_analytics")

	tool.Invoke(context.Background(), map[string]any{"material_number": "MAT-100012"})
	assert.Contains(t, runner.sql, "v_spa_item_supplier_quality")
	assert.Contains(t, runner.sql, "overall_quality_score DESC")
}

func TestVendorCompliance(t *testing.T) {
	runner := &fakeRunner{result: "vendor_number\tREACH Compliant\n100001\tYes"}
	tool := NewVendorCompliance(runner, "compliance_db")

	out := tool.Invoke(context.Background(), map[string]any{"vendor_numbers": "100001, 100002"})
	require.Contains(t, out, "100001")
	assert.Equal(t, "compliance_db", runner.database)
	assert.Contains(t, runner.sql, "IN ('100001','100002')")
	assert.Contains(t, runner.sql, `"REACH Compliant"`)
}

func TestVendorComplianceBracketedInput(t *testing.T) {
	runner := &fakeRunner{result: "vendor_number\tCMRT\n100001\tYes"}
	tool := NewVendorCompliance(runner, "compliance_db")

	tool.Invoke(context.Background(), map[string]any{"vendor_numbers": `["100001", '100002']`})
	assert.Contains(t, runner.sql, "IN ('100001','100002')")
}

func TestVendorComplianceContextWords(t *testing.T) {
	tool := NewVendorCompliance(&fakeRunner{}, "compliance_db")

	for _, input := range []string{"context", "These Vendors", "those suppliers"} {
		out := tool.Invoke(context.Background(), map[string]any{"vendor_numbers": input})
		assert.Contains(t, out, "previously mentioned vendors", "input %q", input)
	}
}

func TestVendorComplianceEmptyInput(t *testing.T) {
	tool := NewVendorCompliance(&fakeRunner{}, "compliance_db")
	out := tool.Invoke(context.Background(), map[string]any{"vendor_numbers": " , "})
	assert.Equal(t, "Please provide vendor numbers to check compliance data.", out)
}

func TestVendorComplianceNoRows(t *testing.T) {
	runner := &fakeRunner{result: "vendor_number\tREACH Compliant"}
	tool := NewVendorCompliance(runner, "compliance_db")

	out := tool.Invoke(context.Background(), map[string]any{"vendor_numbers": "999999"})
	assert.True(t, strings.HasPrefix(out, "No compliance data found for vendors: 999999"))
}
