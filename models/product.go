package models

// ProductRecord is one extracted catalog entry.
type ProductRecord struct {
	Brand string `json:"brand"`
	Model string `json:"model"`
	// Price holds digits only, e.g. "32990".
	Price string `json:"price"`
}

// Columns is the fixed field order used by tabular sinks.
var Columns = []string{"brand", "model", "price"}

// Row returns the record as a flat row in Columns order.
func (r ProductRecord) Row() []string {
	return []string{r.Brand, r.Model, r.Price}
}

// ExtractionBatch holds records in DOM encounter order.
type ExtractionBatch []ProductRecord

// Rows returns the batch as equal-shaped rows in Columns order.
func (b ExtractionBatch) Rows() [][]string {
	rows := make([][]string, 0, len(b))
	for _, r := range b {
		rows = append(rows, r.Row())
	}
	return rows
}

// Header returns a copy of the column names.
func (b ExtractionBatch) Header() []string {
	h := make([]string, len(Columns))
	copy(h, Columns)
	return h
}
