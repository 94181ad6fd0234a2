// Package matrix provides dense matrices over GF(2^8) and Gauss-Jordan
// inversion.
package matrix

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Davincible/rabinida/pkg/gf256"
)

var (
	// ErrSingular is returned by Invert when a pivot is zero.
	ErrSingular = errors.New("matrix is singular")
	// ErrNotSquare is returned by Invert for non-square input.
	ErrNotSquare = errors.New("matrix is not square")
	// ErrDimension is returned when operand shapes do not line up.
	ErrDimension = errors.New("matrix dimension mismatch")
)

// Matrix is a rows x cols matrix stored row-major in a single slice.
type Matrix struct {
	rows, cols int
	data       []byte
}

// New returns a zero matrix.
func New(rows, cols int) *Matrix {
	return &Matrix{
		rows: rows,
		cols: cols,
		data: make([]byte, rows*cols),
	}
}

// Identity returns the size x size identity matrix.
func Identity(size int) *Matrix {
	m := New(size, size)
	for i := 0; i < size; i++ {
		m.data[i*size+i] = 1
	}
	return m
}

// Vandermonde returns the len(nodes) x cols matrix with entry (i, j) equal to
// nodes[i]^j.
func Vandermonde(nodes []byte, cols int) *Matrix {
	m := New(len(nodes), cols)
	for i, x := range nodes {
		row := m.Row(i)
		p := gf256.One()
		for j := range row {
			row[j] = p
			p = gf256.Mul(p, x)
		}
	}
	return m
}

// FromRows copies rows into a new matrix. All rows must share a length.
func FromRows(rows [][]byte) (*Matrix, error) {
	if len(rows) == 0 {
		return New(0, 0), nil
	}
	cols := len(rows[0])
	m := New(len(rows), cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(r), cols, ErrDimension)
		}
		copy(m.Row(i), r)
	}
	return m, nil
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.cols }

// At returns the entry at row i, column j.
func (m *Matrix) At(i, j int) byte {
	return m.data[i*m.cols+j]
}

// Set stores v at row i, column j.
func (m *Matrix) Set(i, j int, v byte) {
	m.data[i*m.cols+j] = v
}

// Row returns row i as a slice aliasing the matrix storage.
func (m *Matrix) Row(i int) []byte {
	return m.data[i*m.cols : (i+1)*m.cols : (i+1)*m.cols]
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	c := New(m.rows, m.cols)
	copy(c.data, m.data)
	return c
}

// Equal reports whether m and o have the same shape and entries.
func (m *Matrix) Equal(o *Matrix) bool {
	if m.rows != o.rows || m.cols != o.cols {
		return false
	}
	for i := range m.data {
		if m.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

// Mul returns the product m * o.
func (m *Matrix) Mul(o *Matrix) (*Matrix, error) {
	if m.cols != o.rows {
		return nil, fmt.Errorf("%dx%d * %dx%d: %w", m.rows, m.cols, o.rows, o.cols, ErrDimension)
	}
	out := New(m.rows, o.cols)
	for i := 0; i < m.rows; i++ {
		dst := out.Row(i)
		for k, c := range m.Row(i) {
			gf256.MulAddSlice(c, o.Row(k), dst)
		}
	}
	return out, nil
}

// Invert returns the inverse of a square matrix using Gauss-Jordan
// elimination. m is left untouched.
//
// Rows are never swapped, so a zero on the diagonal at any step reports
// ErrSingular even if some row permutation would be invertible. Vandermonde
// matrices over distinct nonzero nodes never hit this case.
func (m *Matrix) Invert() (*Matrix, error) {
	if m.rows != m.cols {
		return nil, fmt.Errorf("%dx%d: %w", m.rows, m.cols, ErrNotSquare)
	}
	size := m.rows
	work := m.Clone()
	inv := Identity(size)

	for i := 0; i < size; i++ {
		pivot, err := gf256.Inverse(work.At(i, i))
		if err != nil {
			return nil, fmt.Errorf("zero pivot at row %d: %w", i, ErrSingular)
		}

		wi, ri := work.Row(i), inv.Row(i)
		gf256.MulSlice(pivot, wi, wi)
		gf256.MulSlice(pivot, ri, ri)

		for j := 0; j < size; j++ {
			if j == i {
				continue
			}
			coeff := work.At(j, i)
			if coeff == 0 {
				continue
			}
			// Subtraction is XOR, so row_j -= coeff*row_i is a multiply-add.
			gf256.MulAddSlice(coeff, wi, work.Row(j))
			gf256.MulAddSlice(coeff, ri, inv.Row(j))
		}
	}

	return inv, nil
}

func (m *Matrix) String() string {
	var sb strings.Builder
	for i := 0; i < m.rows; i++ {
		for j, v := range m.Row(i) {
			if j != 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%02x", v)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
