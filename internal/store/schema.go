package store

import "github.com/apache/arrow/go/v17/arrow"

// Dataset file names under the output base path, without extension.
const (
	FileCustomers     = "customers"
	FileProducts      = "products"
	FileSubscriptions = "subscription_line_items"
	FileUsage         = "usage_monthly"
	FilePipeline      = "pipeline_opportunities_snapshot"
)

// Schemas are fixed: the downstream transformation layer depends on column
// names, order, and types staying stable across runs.

func customersSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "company_id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "customer_id", Type: arrow.BinaryTypes.String},
		{Name: "customer_name", Type: arrow.BinaryTypes.String},
		{Name: "segment", Type: arrow.BinaryTypes.String},
		{Name: "region", Type: arrow.BinaryTypes.String},
		{Name: "industry", Type: arrow.BinaryTypes.String},
		{Name: "crm_health_input", Type: arrow.PrimitiveTypes.Int64},
		{Name: "created_date", Type: arrow.BinaryTypes.String},
	}, nil)
}

func productsSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "company_id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "product_id", Type: arrow.BinaryTypes.String},
		{Name: "product_family", Type: arrow.BinaryTypes.String},
		{Name: "is_recurring", Type: arrow.FixedWidthTypes.Boolean},
		{Name: "default_term_months", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
}

func subscriptionsSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "company_id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "contract_id", Type: arrow.BinaryTypes.String},
		{Name: "customer_id", Type: arrow.BinaryTypes.String},
		{Name: "product_id", Type: arrow.BinaryTypes.String},
		{Name: "contract_start_date", Type: arrow.BinaryTypes.String},
		{Name: "contract_end_date", Type: arrow.BinaryTypes.String},
		{Name: "billing_frequency", Type: arrow.BinaryTypes.String},
		{Name: "quantity", Type: arrow.PrimitiveTypes.Int64},
		{Name: "unit_price", Type: arrow.PrimitiveTypes.Float64},
		{Name: "discount_pct", Type: arrow.PrimitiveTypes.Float64},
		{Name: "status", Type: arrow.BinaryTypes.String},
	}, nil)
}

func usageSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "company_id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "month", Type: arrow.BinaryTypes.String},
		{Name: "customer_id", Type: arrow.BinaryTypes.String},
		{Name: "feature_key", Type: arrow.BinaryTypes.String},
		{Name: "usage_count", Type: arrow.PrimitiveTypes.Int64},
		{Name: "active_users", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
}

func pipelineSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "company_id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "snapshot_date", Type: arrow.BinaryTypes.String},
		{Name: "opportunity_id", Type: arrow.BinaryTypes.String},
		{Name: "customer_id", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "segment", Type: arrow.BinaryTypes.String},
		{Name: "stage", Type: arrow.BinaryTypes.String},
		{Name: "amount", Type: arrow.PrimitiveTypes.Float64},
		{Name: "expected_close_date", Type: arrow.BinaryTypes.String},
		{Name: "opportunity_type", Type: arrow.BinaryTypes.String},
	}, nil)
}
