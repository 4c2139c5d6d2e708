// Package store persists the generated datasets as Parquet files, one file
// per table, written and read as whole units. Schemas are fixed; see
// schema.go.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/apache/arrow/go/v17/parquet/file"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"

	"github.com/nvandessel/revsim/internal/tables"
)

// TablePath returns the Parquet file path for a table name under basePath.
func TablePath(basePath, name string) string {
	return filepath.Join(basePath, name+".parquet")
}

// WriteDataset writes all five tables under basePath. It is called once,
// after every generator has completed, so a generator failure never leaves
// a partial cross-entity-inconsistent dataset on disk.
func WriteDataset(basePath string, ds *tables.Dataset) error {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := WriteCustomers(TablePath(basePath, FileCustomers), ds.Customers); err != nil {
		return err
	}
	if err := WriteProducts(TablePath(basePath, FileProducts), ds.Products); err != nil {
		return err
	}
	if err := WriteSubscriptions(TablePath(basePath, FileSubscriptions), ds.Subscriptions); err != nil {
		return err
	}
	if err := WriteUsage(TablePath(basePath, FileUsage), ds.Usage); err != nil {
		return err
	}
	if err := WritePipeline(TablePath(basePath, FilePipeline), ds.Pipeline); err != nil {
		return err
	}
	return nil
}

// ReadDataset reloads all five tables from basePath.
func ReadDataset(ctx context.Context, basePath string) (*tables.Dataset, error) {
	customers, err := ReadCustomers(ctx, TablePath(basePath, FileCustomers))
	if err != nil {
		return nil, err
	}
	products, err := ReadProducts(ctx, TablePath(basePath, FileProducts))
	if err != nil {
		return nil, err
	}
	subs, err := ReadSubscriptions(ctx, TablePath(basePath, FileSubscriptions))
	if err != nil {
		return nil, err
	}
	usage, err := ReadUsage(ctx, TablePath(basePath, FileUsage))
	if err != nil {
		return nil, err
	}
	pipeline, err := ReadPipeline(ctx, TablePath(basePath, FilePipeline))
	if err != nil {
		return nil, err
	}
	return &tables.Dataset{
		Customers:     customers,
		Products:      products,
		Subscriptions: subs,
		Usage:         usage,
		Pipeline:      pipeline,
	}, nil
}

// writeTable builds a single record from fill and writes it as one Parquet
// file. Row group size covers the whole table; datasets are written and read
// as whole units, never streamed.
func writeTable(path string, schema *arrow.Schema, rows int, fill func(b *array.RecordBuilder)) error {
	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	fill(b)

	rec := b.NewRecord()
	defer rec.Release()

	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	chunk := int64(rows)
	if chunk < 1 {
		chunk = 1
	}
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	if err := pqarrow.WriteTable(tbl, f, chunk, props, pqarrow.DefaultWriterProps()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// readTable opens a Parquet file, verifies it carries the expected schema,
// and streams its records through scan. The schema check is what lets the
// per-column decoders assert concrete array types without panicking on a
// file that holds some other table.
func readTable(ctx context.Context, path string, want *arrow.Schema, scan func(rec arrow.Record) error) error {
	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer pf.Close()

	rdr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: 64 * 1024}, memory.NewGoAllocator())
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	tbl, err := rdr.ReadTable(ctx)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer tbl.Release()

	if err := checkSchema(path, tbl.Schema(), want); err != nil {
		return err
	}

	tr := array.NewTableReader(tbl, 64*1024)
	defer tr.Release()
	for tr.Next() {
		if err := scan(tr.Record()); err != nil {
			return fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}
	return nil
}

// checkSchema compares column names and types field by field. Nullability
// and field metadata are ignored; the decoders handle nulls themselves.
func checkSchema(path string, got, want *arrow.Schema) error {
	gotFields, wantFields := got.Fields(), want.Fields()
	if len(gotFields) != len(wantFields) {
		return fmt.Errorf("unexpected schema in %s: %d columns, want %d", path, len(gotFields), len(wantFields))
	}
	for i := range wantFields {
		g, w := gotFields[i], wantFields[i]
		if g.Name != w.Name || !arrow.TypeEqual(g.Type, w.Type) {
			return fmt.Errorf("unexpected schema in %s: column %d is %s %s, want %s %s",
				path, i, g.Name, g.Type, w.Name, w.Type)
		}
	}
	return nil
}

// WriteCustomers writes the customers table.
func WriteCustomers(path string, rows []tables.Customer) error {
	return writeTable(path, customersSchema(), len(rows), func(b *array.RecordBuilder) {
		for _, r := range rows {
			b.Field(0).(*array.Int64Builder).Append(r.CompanyID)
			b.Field(1).(*array.StringBuilder).Append(r.CustomerID)
			b.Field(2).(*array.StringBuilder).Append(r.CustomerName)
			b.Field(3).(*array.StringBuilder).Append(r.Segment)
			b.Field(4).(*array.StringBuilder).Append(r.Region)
			b.Field(5).(*array.StringBuilder).Append(r.Industry)
			b.Field(6).(*array.Int64Builder).Append(r.CRMHealthInput)
			b.Field(7).(*array.StringBuilder).Append(r.CreatedDate)
		}
	})
}

// ReadCustomers reads the customers table.
func ReadCustomers(ctx context.Context, path string) ([]tables.Customer, error) {
	var rows []tables.Customer
	err := readTable(ctx, path, customersSchema(), func(rec arrow.Record) error {
		companyID := rec.Column(0).(*array.Int64)
		customerID := rec.Column(1).(*array.String)
		name := rec.Column(2).(*array.String)
		segment := rec.Column(3).(*array.String)
		region := rec.Column(4).(*array.String)
		industry := rec.Column(5).(*array.String)
		health := rec.Column(6).(*array.Int64)
		created := rec.Column(7).(*array.String)
		for i := 0; i < int(rec.NumRows()); i++ {
			rows = append(rows, tables.Customer{
				CompanyID:      companyID.Value(i),
				CustomerID:     customerID.Value(i),
				CustomerName:   name.Value(i),
				Segment:        segment.Value(i),
				Region:         region.Value(i),
				Industry:       industry.Value(i),
				CRMHealthInput: health.Value(i),
				CreatedDate:    created.Value(i),
			})
		}
		return nil
	})
	return rows, err
}

// WriteProducts writes the products table.
func WriteProducts(path string, rows []tables.Product) error {
	return writeTable(path, productsSchema(), len(rows), func(b *array.RecordBuilder) {
		for _, r := range rows {
			b.Field(0).(*array.Int64Builder).Append(r.CompanyID)
			b.Field(1).(*array.StringBuilder).Append(r.ProductID)
			b.Field(2).(*array.StringBuilder).Append(r.ProductFamily)
			b.Field(3).(*array.BooleanBuilder).Append(r.IsRecurring)
			b.Field(4).(*array.Int64Builder).Append(r.DefaultTermMonths)
		}
	})
}

// ReadProducts reads the products table.
func ReadProducts(ctx context.Context, path string) ([]tables.Product, error) {
	var rows []tables.Product
	err := readTable(ctx, path, productsSchema(), func(rec arrow.Record) error {
		companyID := rec.Column(0).(*array.Int64)
		productID := rec.Column(1).(*array.String)
		family := rec.Column(2).(*array.String)
		recurring := rec.Column(3).(*array.Boolean)
		term := rec.Column(4).(*array.Int64)
		for i := 0; i < int(rec.NumRows()); i++ {
			rows = append(rows, tables.Product{
				CompanyID:         companyID.Value(i),
				ProductID:         productID.Value(i),
				ProductFamily:     family.Value(i),
				IsRecurring:       recurring.Value(i),
				DefaultTermMonths: term.Value(i),
			})
		}
		return nil
	})
	return rows, err
}

// WriteSubscriptions writes the subscription_line_items table.
func WriteSubscriptions(path string, rows []tables.SubscriptionLineItem) error {
	return writeTable(path, subscriptionsSchema(), len(rows), func(b *array.RecordBuilder) {
		for _, r := range rows {
			b.Field(0).(*array.Int64Builder).Append(r.CompanyID)
			b.Field(1).(*array.StringBuilder).Append(r.ContractID)
			b.Field(2).(*array.StringBuilder).Append(r.CustomerID)
			b.Field(3).(*array.StringBuilder).Append(r.ProductID)
			b.Field(4).(*array.StringBuilder).Append(r.ContractStartDate)
			b.Field(5).(*array.StringBuilder).Append(r.ContractEndDate)
			b.Field(6).(*array.StringBuilder).Append(r.BillingFrequency)
			b.Field(7).(*array.Int64Builder).Append(r.Quantity)
			b.Field(8).(*array.Float64Builder).Append(r.UnitPrice)
			b.Field(9).(*array.Float64Builder).Append(r.DiscountPct)
			b.Field(10).(*array.StringBuilder).Append(r.Status)
		}
	})
}

// ReadSubscriptions reads the subscription_line_items table.
func ReadSubscriptions(ctx context.Context, path string) ([]tables.SubscriptionLineItem, error) {
	var rows []tables.SubscriptionLineItem
	err := readTable(ctx, path, subscriptionsSchema(), func(rec arrow.Record) error {
		companyID := rec.Column(0).(*array.Int64)
		contractID := rec.Column(1).(*array.String)
		customerID := rec.Column(2).(*array.String)
		productID := rec.Column(3).(*array.String)
		start := rec.Column(4).(*array.String)
		end := rec.Column(5).(*array.String)
		billing := rec.Column(6).(*array.String)
		quantity := rec.Column(7).(*array.Int64)
		price := rec.Column(8).(*array.Float64)
		discount := rec.Column(9).(*array.Float64)
		status := rec.Column(10).(*array.String)
		for i := 0; i < int(rec.NumRows()); i++ {
			rows = append(rows, tables.SubscriptionLineItem{
				CompanyID:         companyID.Value(i),
				ContractID:        contractID.Value(i),
				CustomerID:        customerID.Value(i),
				ProductID:         productID.Value(i),
				ContractStartDate: start.Value(i),
				ContractEndDate:   end.Value(i),
				BillingFrequency:  billing.Value(i),
				Quantity:          quantity.Value(i),
				UnitPrice:         price.Value(i),
				DiscountPct:       discount.Value(i),
				Status:            status.Value(i),
			})
		}
		return nil
	})
	return rows, err
}

// WriteUsage writes the usage_monthly table.
func WriteUsage(path string, rows []tables.UsageRecord) error {
	return writeTable(path, usageSchema(), len(rows), func(b *array.RecordBuilder) {
		for _, r := range rows {
			b.Field(0).(*array.Int64Builder).Append(r.CompanyID)
			b.Field(1).(*array.StringBuilder).Append(r.Month)
			b.Field(2).(*array.StringBuilder).Append(r.CustomerID)
			b.Field(3).(*array.StringBuilder).Append(r.FeatureKey)
			b.Field(4).(*array.Int64Builder).Append(r.UsageCount)
			b.Field(5).(*array.Int64Builder).Append(r.ActiveUsers)
		}
	})
}

// ReadUsage reads the usage_monthly table.
func ReadUsage(ctx context.Context, path string) ([]tables.UsageRecord, error) {
	var rows []tables.UsageRecord
	err := readTable(ctx, path, usageSchema(), func(rec arrow.Record) error {
		companyID := rec.Column(0).(*array.Int64)
		month := rec.Column(1).(*array.String)
		customerID := rec.Column(2).(*array.String)
		feature := rec.Column(3).(*array.String)
		count := rec.Column(4).(*array.Int64)
		users := rec.Column(5).(*array.Int64)
		for i := 0; i < int(rec.NumRows()); i++ {
			rows = append(rows, tables.UsageRecord{
				CompanyID:   companyID.Value(i),
				Month:       month.Value(i),
				CustomerID:  customerID.Value(i),
				FeatureKey:  feature.Value(i),
				UsageCount:  count.Value(i),
				ActiveUsers: users.Value(i),
			})
		}
		return nil
	})
	return rows, err
}

// WritePipeline writes the pipeline_opportunities_snapshot table. An empty
// CustomerID marks an unlinked new-business opportunity and is persisted as
// null.
func WritePipeline(path string, rows []tables.PipelineSnapshot) error {
	return writeTable(path, pipelineSchema(), len(rows), func(b *array.RecordBuilder) {
		for _, r := range rows {
			b.Field(0).(*array.Int64Builder).Append(r.CompanyID)
			b.Field(1).(*array.StringBuilder).Append(r.SnapshotDate)
			b.Field(2).(*array.StringBuilder).Append(r.OpportunityID)
			if r.CustomerID == "" {
				b.Field(3).(*array.StringBuilder).AppendNull()
			} else {
				b.Field(3).(*array.StringBuilder).Append(r.CustomerID)
			}
			b.Field(4).(*array.StringBuilder).Append(r.Segment)
			b.Field(5).(*array.StringBuilder).Append(r.Stage)
			b.Field(6).(*array.Float64Builder).Append(r.Amount)
			b.Field(7).(*array.StringBuilder).Append(r.ExpectedCloseDate)
			b.Field(8).(*array.StringBuilder).Append(r.OpportunityType)
		}
	})
}

// ReadPipeline reads the pipeline_opportunities_snapshot table. Null
// customer linkage is surfaced as an empty CustomerID.
func ReadPipeline(ctx context.Context, path string) ([]tables.PipelineSnapshot, error) {
	var rows []tables.PipelineSnapshot
	err := readTable(ctx, path, pipelineSchema(), func(rec arrow.Record) error {
		companyID := rec.Column(0).(*array.Int64)
		snapshot := rec.Column(1).(*array.String)
		oppID := rec.Column(2).(*array.String)
		customerID := rec.Column(3).(*array.String)
		segment := rec.Column(4).(*array.String)
		stage := rec.Column(5).(*array.String)
		amount := rec.Column(6).(*array.Float64)
		closeDate := rec.Column(7).(*array.String)
		oppType := rec.Column(8).(*array.String)
		for i := 0; i < int(rec.NumRows()); i++ {
			cust := ""
			if customerID.IsValid(i) {
				cust = customerID.Value(i)
			}
			rows = append(rows, tables.PipelineSnapshot{
				CompanyID:         companyID.Value(i),
				SnapshotDate:      snapshot.Value(i),
				OpportunityID:     oppID.Value(i),
				CustomerID:        cust,
				Segment:           segment.Value(i),
				Stage:             stage.Value(i),
				Amount:            amount.Value(i),
				ExpectedCloseDate: closeDate.Value(i),
				OpportunityType:   oppType.Value(i),
			})
		}
		return nil
	})
	return rows, err
}
