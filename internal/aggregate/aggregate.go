// Package aggregate turns parsed rows into the final, key-unique and sorted
// record set of a dataset, collapsing sub-annual periods when asked to.
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"fjacquet/ine-csv/internal/etlerror"
	"fjacquet/ine-csv/internal/models"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/shopspring/decimal"
)

// Supported rule values.
const (
	OverQuarter = "quarter"
	MethodMean  = "mean"
)

// Rule collapses several sub-period values into one record per key.
type Rule struct {
	Over     string `yaml:"over" json:"over"`
	Method   string `yaml:"method" json:"method"`
	Expected int    `yaml:"expected" json:"expected"`
	Round    int32  `yaml:"round" json:"round"`
}

// Validate checks the rule is one we know how to apply.
func (r Rule) Validate() error {
	if r.Over != OverQuarter {
		return &etlerror.ValidationError{Field: "aggregation.over", Value: r.Over, Reason: "only quarter is supported"}
	}
	if r.Method != MethodMean {
		return &etlerror.ValidationError{Field: "aggregation.method", Value: r.Method, Reason: "only mean is supported"}
	}
	if r.Expected < 1 {
		return &etlerror.ValidationError{Field: "aggregation.expected", Value: fmt.Sprint(r.Expected), Reason: "must be at least 1"}
	}
	if r.Round < 0 {
		return &etlerror.ValidationError{Field: "aggregation.round", Value: fmt.Sprint(r.Round), Reason: "must not be negative"}
	}
	return nil
}

// Row is one parsed, region-normalized observation.
type Row struct {
	Year       int
	Attributes models.Attributes
	Value      decimal.Decimal
	// Period identifies the sub-annual period (T1..T4) when aggregating.
	Period string
}

// Result is the outcome of Aggregate.
type Result struct {
	Records []models.ProcessedRecord
	// PartialGroups counts groups aggregated from fewer values than expected.
	PartialGroups int
}

// Internal frame columns. Attribute columns keep their own names.
const (
	colYear = "year"
	colKey  = "__key"
	colSeq  = "__seq"
)

// Aggregate builds the processed records for one dataset. Without a rule
// every row becomes a record and a repeated key is a DuplicateKeyError.
// With a rule rows are grouped by key and averaged. Records come back ordered
// by year, then by the key columns in order.
func Aggregate(dataset string, rows []Row, keyColumns []string, rule *Rule) (Result, error) {
	if len(rows) == 0 {
		return Result{Records: []models.ProcessedRecord{}}, nil
	}

	var res Result
	if rule != nil {
		collapsed, partial, err := mean(dataset, rows, keyColumns, *rule)
		if err != nil {
			return Result{}, err
		}
		rows, res.PartialGroups = collapsed, partial
	}

	df := newFrame(rows, keyColumns).Arrange(order(keyColumns)...)
	if df.Err != nil {
		return Result{}, fmt.Errorf("sorting %s: %w", dataset, df.Err)
	}

	records, err := toRecords(dataset, df, rows, keyColumns)
	if err != nil {
		return Result{}, err
	}
	res.Records = records
	return res, nil
}

// newFrame lays out the sort and group columns of rows. __seq points back
// into rows, which keep the exact values and full attribute maps.
func newFrame(rows []Row, keyColumns []string) dataframe.DataFrame {
	years := make([]int, len(rows))
	seq := make([]int, len(rows))
	keys := make([]string, len(rows))
	attrs := make([][]string, len(keyColumns))
	for c := range keyColumns {
		attrs[c] = make([]string, len(rows))
	}

	for i, row := range rows {
		rec := models.ProcessedRecord{Year: row.Year, Attributes: row.Attributes}
		years[i] = row.Year
		seq[i] = i
		keys[i] = joinKey(rec.Key(keyColumns))
		for c, col := range keyColumns {
			attrs[c][i] = row.Attributes[col]
		}
	}

	cols := []series.Series{series.New(years, series.Int, colYear)}
	for c, col := range keyColumns {
		cols = append(cols, series.New(attrs[c], series.String, col))
	}
	cols = append(cols,
		series.New(keys, series.String, colKey),
		series.New(seq, series.Int, colSeq),
	)
	return dataframe.New(cols...)
}

func order(keyColumns []string) []dataframe.Order {
	out := make([]dataframe.Order, 0, len(keyColumns)+1)
	out = append(out, dataframe.Sort(colYear))
	for _, col := range keyColumns {
		out = append(out, dataframe.Sort(col))
	}
	return out
}

// toRecords reads a sorted frame back. Equal keys sit next to each other
// after sorting, so one pass finds any duplicate.
func toRecords(dataset string, df dataframe.DataFrame, rows []Row, keyColumns []string) ([]models.ProcessedRecord, error) {
	seq, err := df.Col(colSeq).Int()
	if err != nil {
		return nil, fmt.Errorf("reading %s frame: %w", dataset, err)
	}
	keys := df.Col(colKey).Records()

	records := make([]models.ProcessedRecord, 0, df.Nrow())
	for i, idx := range seq {
		src := rows[idx]
		rec := models.ProcessedRecord{Year: src.Year, Attributes: src.Attributes, Value: src.Value}
		if i > 0 && keys[i] == keys[i-1] {
			return nil, &etlerror.DuplicateKeyError{Dataset: dataset, Key: rec.Key(keyColumns)}
		}
		records = append(records, rec)
	}
	return records, nil
}

// mean collapses rows sharing a key into one averaged row each. The first
// row of a group supplies its attributes.
func mean(dataset string, rows []Row, keyColumns []string, rule Rule) ([]Row, int, error) {
	groups := newFrame(rows, keyColumns).GroupBy(colKey)
	if groups.Err != nil {
		return nil, 0, fmt.Errorf("grouping %s: %w", dataset, groups.Err)
	}
	byKey := groups.GetGroups()

	ids := make([]string, 0, len(byKey))
	for id := range byKey {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	partial := 0
	out := make([]Row, 0, len(byKey))
	for _, id := range ids {
		g := byKey[id]
		seq, err := g.Col(colSeq).Int()
		if err != nil {
			return nil, 0, fmt.Errorf("grouping %s: %w", dataset, err)
		}
		sort.Ints(seq)
		first := rows[seq[0]]

		seen := make(map[string]bool, len(seq))
		values := make([]decimal.Decimal, 0, len(seq))
		for _, idx := range seq {
			row := rows[idx]
			if row.Period != "" {
				if seen[row.Period] {
					rec := models.ProcessedRecord{Year: first.Year, Attributes: first.Attributes}
					return nil, 0, &etlerror.DuplicateKeyError{Dataset: dataset, Key: append(rec.Key(keyColumns), row.Period)}
				}
				seen[row.Period] = true
			}
			values = append(values, row.Value)
		}
		if len(values) < rule.Expected {
			partial++
		}
		out = append(out, Row{
			Year:       first.Year,
			Attributes: first.Attributes,
			Value:      Mean(values).Round(rule.Round),
		})
	}
	return out, partial, nil
}

// Mean returns the arithmetic mean of values, zero for an empty slice.
func Mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(values[0], values[1:]...).Div(decimal.NewFromInt(int64(len(values))))
}

func joinKey(key []string) string {
	return strings.Join(key, "\x00")
}
