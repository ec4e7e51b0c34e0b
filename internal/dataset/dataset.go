// Package dataset loads tabular CSV data into named float64 columns and
// prepares feature/label tensors for training.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ShapeError reports a structural problem with tabular data: duplicate or
// missing columns, ragged rows, or mismatched row counts.
type ShapeError struct {
	Msg string
}

func (e *ShapeError) Error() string { return e.Msg }

func shapeErrorf(format string, args ...interface{}) error {
	return &ShapeError{Msg: fmt.Sprintf(format, args...)}
}

// Table holds a set of equally sized named float64 columns.
type Table struct {
	names   []string
	columns map[string][]float64
	rows    int
}

// NewTable builds a table from column names and data. Names must be unique
// and every column must have the same length.
func NewTable(names []string, columns [][]float64) (*Table, error) {
	if len(names) != len(columns) {
		return nil, shapeErrorf("dataset: %d names for %d columns", len(names), len(columns))
	}
	t := &Table{
		names:   make([]string, len(names)),
		columns: make(map[string][]float64, len(names)),
	}
	copy(t.names, names)
	for i, name := range names {
		if _, dup := t.columns[name]; dup {
			return nil, shapeErrorf("dataset: duplicate column %q", name)
		}
		if i == 0 {
			t.rows = len(columns[i])
		} else if len(columns[i]) != t.rows {
			return nil, shapeErrorf("dataset: column %q has %d rows, want %d", name, len(columns[i]), t.rows)
		}
		t.columns[name] = columns[i]
	}
	return t, nil
}

// Load reads a CSV file with a header row into a Table. Every cell must
// parse as a float64.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open dataset %s", path)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read dataset %s", path)
	}
	return t, nil
}

// Read parses CSV content with a header row into a Table.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}

	columns := make([][]float64, len(names))
	row := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read row %d", row)
		}
		for i, cell := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d column %q", row, names[i])
			}
			columns[i] = append(columns[i], v)
		}
		row++
	}

	return NewTable(names, columns)
}

// Rows returns the number of rows in the table.
func (t *Table) Rows() int { return t.rows }

// Names returns the column names in file order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Column returns the named column, or an error naming the available columns.
func (t *Table) Column(name string) ([]float64, error) {
	col, ok := t.columns[name]
	if !ok {
		return nil, shapeErrorf("dataset: no column %q (have %s)", name, strings.Join(t.names, ", "))
	}
	return col, nil
}

// Select returns a new table containing only the named columns, in order.
func (t *Table) Select(names []string) (*Table, error) {
	columns := make([][]float64, 0, len(names))
	for _, name := range names {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	return NewTable(names, columns)
}

// NormalizeNames rewrites column names containing square brackets to use
// parentheses, so "Eg[eV]" and "Eg(eV)" refer to the same column regardless
// of which convention the CSV was exported with. It fails when a rewrite
// would collide with another column, which would break name uniqueness.
func (t *Table) NormalizeNames() error {
	names := make([]string, len(t.names))
	renamed := make(map[string][]float64, len(t.columns))
	for i, name := range t.names {
		clean := strings.NewReplacer("[", "(", "]", ")").Replace(name)
		if _, dup := renamed[clean]; dup {
			return shapeErrorf("dataset: normalizing %q collides with column %q", name, clean)
		}
		names[i] = clean
		renamed[clean] = t.columns[name]
	}
	t.names = names
	t.columns = renamed
	return nil
}

// Split partitions the table's rows into two tables by a shuffled split.
// frac is the fraction of rows assigned to the first table. The same seed
// always yields the same partition.
func (t *Table) Split(frac float64, seed int64) (*Table, *Table, error) {
	if frac <= 0 || frac >= 1 {
		return nil, nil, shapeErrorf("dataset: split fraction %v outside (0, 1)", frac)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(t.rows)
	n := int(float64(t.rows) * frac)

	first := make([][]float64, len(t.names))
	second := make([][]float64, len(t.names))
	for i, name := range t.names {
		col := t.columns[name]
		first[i] = make([]float64, 0, n)
		second[i] = make([]float64, 0, t.rows-n)
		for j, p := range perm {
			if j < n {
				first[i] = append(first[i], col[p])
			} else {
				second[i] = append(second[i], col[p])
			}
		}
	}

	a, err := NewTable(t.names, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := NewTable(t.names, second)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// Tensors pairs feature rows with label rows for training and evaluation.
// X and Y have one entry per sample.
type Tensors struct {
	X [][]float64
	Y [][]float64
}

// NewTensors extracts the named input and label columns from tables that
// must have the same row count.
func NewTensors(inputs *Table, inputNames []string, labels *Table, labelNames []string) (*Tensors, error) {
	if inputs.Rows() != labels.Rows() {
		return nil, shapeErrorf("dataset: %d input rows but %d label rows", inputs.Rows(), labels.Rows())
	}
	x, err := rowsOf(inputs, inputNames)
	if err != nil {
		return nil, err
	}
	y, err := rowsOf(labels, labelNames)
	if err != nil {
		return nil, err
	}
	return &Tensors{X: x, Y: y}, nil
}

func rowsOf(t *Table, names []string) ([][]float64, error) {
	cols := make([][]float64, len(names))
	for i, name := range names {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	rows := make([][]float64, t.Rows())
	for r := range rows {
		row := make([]float64, len(names))
		for c := range names {
			row[c] = cols[c][r]
		}
		rows[r] = row
	}
	return rows, nil
}

// Len returns the number of samples.
func (d *Tensors) Len() int { return len(d.X) }

// Batch is one minibatch of samples.
type Batch struct {
	X [][]float64
	Y [][]float64
}

// Batches partitions the samples into minibatches of at most batchSize rows.
// The final batch keeps whatever rows remain. When shuffle is set the sample
// order is permuted with rng before batching.
func (d *Tensors) Batches(batchSize int, shuffle bool, rng *rand.Rand) []Batch {
	n := d.Len()
	if batchSize <= 0 || batchSize > n {
		batchSize = n
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if shuffle {
		rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	}

	batches := make([]Batch, 0, (n+batchSize-1)/batchSize)
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		b := Batch{
			X: make([][]float64, 0, end-start),
			Y: make([][]float64, 0, end-start),
		}
		for _, i := range idx[start:end] {
			b.X = append(b.X, d.X[i])
			b.Y = append(b.Y, d.Y[i])
		}
		batches = append(batches, b)
	}
	return batches
}
