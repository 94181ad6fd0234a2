package matrix

import (
	"math/rand"
	"testing"

	"github.com/Davincible/rabinida/pkg/gf256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity(t *testing.T) {
	m := Identity(4)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if i == j {
				assert.Equal(t, byte(1), m.At(i, j))
			} else {
				assert.Equal(t, byte(0), m.At(i, j))
			}
		}
	}

	inv, err := m.Invert()
	require.NoError(t, err)
	assert.True(t, inv.Equal(m))
}

func TestVandermonde(t *testing.T) {
	nodes := []byte{1, 2, 3, 0x53}
	m := Vandermonde(nodes, 4)

	require.Equal(t, 4, m.Rows())
	require.Equal(t, 4, m.Cols())
	for i, x := range nodes {
		for j := 0; j < 4; j++ {
			assert.Equal(t, gf256.Pow(x, j), m.At(i, j), "row %d col %d", i, j)
		}
	}
}

func TestInvertVandermonde(t *testing.T) {
	tests := []struct {
		name  string
		nodes []byte
	}{
		{"single node", []byte{7}},
		{"consecutive", []byte{1, 2, 3, 4, 5}},
		{"scattered", []byte{2, 9, 200, 17, 255, 64}},
		{"descending", []byte{5, 4, 3, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Vandermonde(tt.nodes, len(tt.nodes))
			orig := v.Clone()

			inv, err := v.Invert()
			require.NoError(t, err)
			assert.True(t, v.Equal(orig), "Invert must not modify its receiver")

			prod, err := v.Mul(inv)
			require.NoError(t, err)
			assert.True(t, prod.Equal(Identity(len(tt.nodes))), "V*V^-1:\n%s", prod)

			prod, err = inv.Mul(v)
			require.NoError(t, err)
			assert.True(t, prod.Equal(Identity(len(tt.nodes))))
		})
	}
}

func TestInvertAllNodes(t *testing.T) {
	nodes := make([]byte, 255)
	for i := range nodes {
		nodes[i] = byte(i + 1)
	}
	rng := rand.New(rand.NewSource(42))
	rng.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })

	for _, size := range []int{2, 16, 100, 255} {
		v := Vandermonde(nodes[:size], size)
		inv, err := v.Invert()
		require.NoError(t, err, "size %d", size)

		prod, err := v.Mul(inv)
		require.NoError(t, err)
		assert.True(t, prod.Equal(Identity(size)), "size %d", size)
	}
}

func TestInvertSingular(t *testing.T) {
	t.Run("duplicate nodes", func(t *testing.T) {
		v := Vandermonde([]byte{3, 5, 3}, 3)
		_, err := v.Invert()
		assert.ErrorIs(t, err, ErrSingular)
	})

	t.Run("zero matrix", func(t *testing.T) {
		_, err := New(3, 3).Invert()
		assert.ErrorIs(t, err, ErrSingular)
	})

	t.Run("zero leading pivot", func(t *testing.T) {
		m, err := FromRows([][]byte{
			{0, 1},
			{1, 0},
		})
		require.NoError(t, err)
		_, err = m.Invert()
		assert.ErrorIs(t, err, ErrSingular)
	})

	t.Run("not square", func(t *testing.T) {
		_, err := New(2, 3).Invert()
		assert.ErrorIs(t, err, ErrNotSquare)
	})
}

func TestFromRows(t *testing.T) {
	m, err := FromRows([][]byte{{1, 2}, {3, 4}})
	require.NoError(t, err)
	assert.Equal(t, byte(4), m.At(1, 1))

	_, err = FromRows([][]byte{{1, 2}, {3}})
	assert.ErrorIs(t, err, ErrDimension)
}

func TestMulDimension(t *testing.T) {
	_, err := New(2, 3).Mul(New(2, 3))
	assert.ErrorIs(t, err, ErrDimension)
}

func TestSetAndRowAlias(t *testing.T) {
	m := New(2, 2)
	m.Set(1, 0, 9)
	assert.Equal(t, []byte{9, 0}, m.Row(1))

	m.Row(0)[1] = 4
	assert.Equal(t, byte(4), m.At(0, 1))
	assert.Equal(t, "00 04\n09 00\n", m.String())
}

func BenchmarkInvert100(b *testing.B) {
	nodes := make([]byte, 100)
	for i := range nodes {
		nodes[i] = byte(i + 1)
	}
	v := Vandermonde(nodes, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := v.Invert(); err != nil {
			b.Fatal(err)
		}
	}
}
