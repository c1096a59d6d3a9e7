// File: internal/infrastructure/security/srp_math.go
package security

import "math/big"

var bigOne = big.NewInt(1)

// modExp computes base^exp mod mod by square-and-multiply. Every bit of the
// exponent is processed and each iteration performs the same multiply/reduce
// pair, so the iteration structure does not leak the exponent's low bits
// through an early exit.
func modExp(base, exp, mod *big.Int) *big.Int {
	if mod.Cmp(bigOne) == 0 {
		return new(big.Int)
	}

	result := big.NewInt(1)
	scratch := new(big.Int)
	b := new(big.Int).Mod(base, mod)

	for i := 0; i < exp.BitLen(); i++ {
		scratch.Mul(result, b)
		scratch.Mod(scratch, mod)
		if exp.Bit(i) == 1 {
			result.Set(scratch)
		}
		b.Mul(b, b)
		b.Mod(b, mod)
	}

	return result
}
