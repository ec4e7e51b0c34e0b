package dataset

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	csv := "Eg[eV],FF,Jsc\n1.5,0.8,22.1\n1.6,0.75,21.0\n"
	tab, err := Read(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 2, tab.Rows())
	assert.Equal(t, []string{"Eg[eV]", "FF", "Jsc"}, tab.Names())

	col, err := tab.Column("FF")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.8, 0.75}, col)
}

func TestReadCSVBadCell(t *testing.T) {
	_, err := Read(strings.NewReader("a,b\n1,oops\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "b"`)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("x\n1\n2\n3\n"), 0o644))

	tab, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, tab.Rows())

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestNewTableValidation(t *testing.T) {
	_, err := NewTable([]string{"a", "a"}, [][]float64{{1}, {2}})
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Contains(t, err.Error(), "duplicate")

	_, err = NewTable([]string{"a", "b"}, [][]float64{{1, 2}, {3}})
	require.ErrorAs(t, err, &shapeErr)
}

func TestNormalizeNames(t *testing.T) {
	tab, err := NewTable([]string{"Eg[eV]", "Jsc[mA/cm2]"}, [][]float64{{1.5}, {22.0}})
	require.NoError(t, err)

	require.NoError(t, tab.NormalizeNames())

	assert.Equal(t, []string{"Eg(eV)", "Jsc(mA/cm2)"}, tab.Names())
	col, err := tab.Column("Eg(eV)")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5}, col)

	_, err = tab.Column("Eg[eV]")
	assert.Error(t, err)
}

func TestNormalizeNamesCollision(t *testing.T) {
	tab, err := NewTable([]string{"Eg[eV]", "Eg(eV)"}, [][]float64{{1.5}, {1.6}})
	require.NoError(t, err)

	err = tab.NormalizeNames()
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)

	// the table is left untouched on failure
	assert.Equal(t, []string{"Eg[eV]", "Eg(eV)"}, tab.Names())
	col, err := tab.Column("Eg[eV]")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5}, col)
}

func TestSelect(t *testing.T) {
	tab, err := NewTable([]string{"a", "b", "c"}, [][]float64{{1}, {2}, {3}})
	require.NoError(t, err)

	sub, err := tab.Select([]string{"c", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, sub.Names())

	_, err = tab.Select([]string{"nope"})
	assert.Error(t, err)
}

func TestSplitDeterministicAndAligned(t *testing.T) {
	n := 100
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
		ys[i] = float64(i) * 10
	}
	tab, err := NewTable([]string{"x", "y"}, [][]float64{xs, ys})
	require.NoError(t, err)

	a1, b1, err := tab.Split(0.9, 42)
	require.NoError(t, err)
	a2, b2, err := tab.Split(0.9, 42)
	require.NoError(t, err)

	assert.Equal(t, 90, a1.Rows())
	assert.Equal(t, 10, b1.Rows())

	// same seed, same partition
	c1, _ := a1.Column("x")
	c2, _ := a2.Column("x")
	assert.Equal(t, c1, c2)
	d1, _ := b1.Column("x")
	d2, _ := b2.Column("x")
	assert.Equal(t, d1, d2)

	// rows stay aligned across columns
	ax, _ := a1.Column("x")
	ay, _ := a1.Column("y")
	for i := range ax {
		assert.Equal(t, ax[i]*10, ay[i])
	}

	_, _, err = tab.Split(1.0, 42)
	assert.Error(t, err)
}

func TestNewTensors(t *testing.T) {
	in, err := NewTable([]string{"a", "b"}, [][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	lab, err := NewTable([]string{"y"}, [][]float64{{10, 20}})
	require.NoError(t, err)

	d, err := NewTensors(in, []string{"a", "b"}, lab, []string{"y"})
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []float64{1, 3}, d.X[0])
	assert.Equal(t, []float64{10}, d.Y[0])

	short, err := NewTable([]string{"y"}, [][]float64{{10}})
	require.NoError(t, err)
	_, err = NewTensors(in, []string{"a"}, short, []string{"y"})
	var shapeErr *ShapeError
	assert.ErrorAs(t, err, &shapeErr)
}

func TestBatchesKeepsRemainder(t *testing.T) {
	d := &Tensors{
		X: [][]float64{{1}, {2}, {3}, {4}, {5}},
		Y: [][]float64{{10}, {20}, {30}, {40}, {50}},
	}
	batches := d.Batches(2, false, nil)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0].X, 2)
	assert.Len(t, batches[2].X, 1)
	assert.Equal(t, []float64{5}, batches[2].X[0])
	assert.Equal(t, []float64{50}, batches[2].Y[0])
}

func TestBatchesShuffleKeepsPairs(t *testing.T) {
	d := &Tensors{
		X: [][]float64{{1}, {2}, {3}, {4}},
		Y: [][]float64{{10}, {20}, {30}, {40}},
	}
	rng := rand.New(rand.NewSource(7))
	batches := d.Batches(2, true, rng)

	seen := map[float64]bool{}
	for _, b := range batches {
		for i := range b.X {
			assert.Equal(t, b.X[i][0]*10, b.Y[i][0])
			seen[b.X[i][0]] = true
		}
	}
	assert.Len(t, seen, 4)
}
