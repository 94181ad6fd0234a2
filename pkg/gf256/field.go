// Package gf256 implements arithmetic over GF(2^8) with byte-valued elements.
//
// Elements are reduced modulo the Rijndael polynomial x^8 + x^4 + x^3 + x + 1
// (0x11B). Multiplication and division go through exp/log tables built from
// the generator 3.
package gf256

import (
	"errors"
)

const (
	// Poly is the irreducible reduction polynomial x^8 + x^4 + x^3 + x + 1.
	Poly = 0x11B

	// Generator is a primitive element of the multiplicative group.
	Generator = 3

	order = 255
)

// ErrDomain is returned when an operation has no result in the field,
// i.e. inverting or dividing by zero.
var ErrDomain = errors.New("gf256: zero has no multiplicative inverse")

var (
	// expTable is doubled so that log(a)+log(b) never needs a modulo.
	expTable [2 * order]byte
	logTable [256]byte
	mulTable [256][256]byte
)

func init() {
	x := byte(1)
	for i := 0; i < order; i++ {
		expTable[i] = x
		expTable[i+order] = x
		logTable[x] = byte(i)
		x = mulSlow(x, Generator)
	}

	for a := 1; a < 256; a++ {
		for b := 1; b < 256; b++ {
			mulTable[a][b] = expTable[int(logTable[a])+int(logTable[b])]
		}
	}
}

// mulSlow multiplies with the schoolbook carry-less method. Only used to
// build the tables.
func mulSlow(a, b byte) byte {
	var p byte
	for i := 0; i < 8; i++ {
		if b&1 == 1 {
			p ^= a
		}
		carry := a & 0x80
		a <<= 1
		if carry != 0 {
			a ^= byte(Poly & 0xFF)
		}
		b >>= 1
	}
	return p
}

// Zero returns the additive identity.
func Zero() byte { return 0 }

// One returns the multiplicative identity.
func One() byte { return 1 }

// Add returns a + b, which is XOR in characteristic 2.
func Add(a, b byte) byte {
	return a ^ b
}

// Sub returns a - b. Subtraction and addition coincide.
func Sub(a, b byte) byte {
	return a ^ b
}

// Mul returns a * b.
func Mul(a, b byte) byte {
	return mulTable[a][b]
}

// Div returns a / b, or ErrDomain when b is zero.
func Div(a, b byte) (byte, error) {
	if b == 0 {
		return 0, ErrDomain
	}
	if a == 0 {
		return 0, nil
	}
	return expTable[int(logTable[a])+order-int(logTable[b])], nil
}

// Inverse returns the multiplicative inverse of a, or ErrDomain for zero.
func Inverse(a byte) (byte, error) {
	if a == 0 {
		return 0, ErrDomain
	}
	return expTable[order-int(logTable[a])], nil
}

// Pow returns a raised to the exponent e. Pow(a, 0) is One for every a,
// including zero. A negative e raises the inverse of a; zero stays zero.
func Pow(a byte, e int) byte {
	if e == 0 {
		return 1
	}
	if a == 0 {
		return 0
	}
	return expTable[reduce(int(logTable[a])*reduce(e))]
}

// Exp returns Generator^e. Negative exponents are allowed.
func Exp(e int) byte {
	return expTable[reduce(e)]
}

// reduce maps e into [0, order).
func reduce(e int) int {
	return ((e % order) + order) % order
}

// Log returns the discrete logarithm of a to the base Generator.
// Log of zero is undefined and reported as ErrDomain.
func Log(a byte) (int, error) {
	if a == 0 {
		return 0, ErrDomain
	}
	return int(logTable[a]), nil
}

// MulSlice sets out[i] = c * in[i]. out must be at least as long as in.
func MulSlice(c byte, in, out []byte) {
	row := &mulTable[c]
	for i, v := range in {
		out[i] = row[v]
	}
}

// MulAddSlice sets out[i] ^= c * in[i]. out must be at least as long as in.
func MulAddSlice(c byte, in, out []byte) {
	if c == 0 {
		return
	}
	row := &mulTable[c]
	for i, v := range in {
		out[i] ^= row[v]
	}
}
