// Package maths provides the arbitrary precision combinatorics behind the
// value-split and input-order channels: factorials, binomials, and the
// rank/unrank bijections for permutations and weak compositions.
package maths

import "math/big"

// Factorial computes n! exactly.
func Factorial(n int) *big.Int {
	fac := big.NewInt(1)
	for i := int64(2); i <= int64(n); i++ {
		fac.Mul(fac, big.NewInt(i))
	}
	return fac
}

// Binomial computes the binomial coefficient n choose k with the
// multiplicative recurrence. Every intermediate division is exact.
func Binomial(n, k uint64) *big.Int {
	if k > n {
		return new(big.Int)
	}

	result := big.NewInt(1)
	if k > n-k {
		k = n - k
	}

	tmp := new(big.Int)
	for i := uint64(1); i <= k; i++ {
		result.Mul(result, tmp.SetUint64(n-k+i))
		result.Div(result, tmp.SetUint64(i))
	}

	return result
}

// Compositions counts the weak compositions of n into k ordered
// non-negative parts, C(n+k-1, k-1).
func Compositions(n uint64, k int) *big.Int {
	return Binomial(n+uint64(k)-1, uint64(k)-1)
}

// PermutationRank computes the lexicographic index of a permutation of
// {0..k-1} via its Lehmer code.
func PermutationRank(perm []uint16) *big.Int {
	k := len(perm)
	idx := new(big.Int)

	tmp := new(big.Int)
	for i := 0; i <= k-2; i++ {
		a := int64(0)
		for j := i + 1; j <= k-1; j++ {
			if perm[i] > perm[j] {
				a++
			}
		}
		idx.Add(idx, tmp.Mul(big.NewInt(a), Factorial(k-i-1)))
	}

	return idx
}

// PermutationUnrank computes the permutation of {0..k-1} with the given
// lexicographic index. Inverse of PermutationRank.
func PermutationUnrank(idx *big.Int, k int) []uint16 {
	perm := make([]uint16, k)
	residual := make([]uint16, k)
	for i := range residual {
		residual[i] = uint16(i)
	}

	rem := new(big.Int).Set(idx)
	x := new(big.Int)
	for i := 0; i < k; i++ {
		fac := Factorial(k - i - 1)
		x.Div(rem, fac)
		pos := int(x.Int64())

		perm[i] = residual[pos]
		rem.Sub(rem, x.Mul(x, fac))
		residual = append(residual[:pos], residual[pos+1:]...)
	}

	return perm
}

// CompositionRank computes the lexicographic index of a weak composition.
func CompositionRank(composition []uint64) *big.Int {
	var n uint64
	for _, part := range composition {
		n += part
	}
	K := len(composition)
	k := K

	idx := new(big.Int)
	for i := 0; i <= K-2; i++ {
		idx.Add(idx, Compositions(n, k))
		idx.Sub(idx, Compositions(n-composition[i], k))

		n -= composition[i]
		k--
	}

	return idx
}

// CompositionUnrank computes the weak composition of n into k parts with
// the given lexicographic index. Each step takes the largest first part mu
// satisfying Compositions(n,k) - Compositions(n-mu,k) <= idx, located by
// binary search since Compositions(n-mu,k) is decreasing in mu.
func CompositionUnrank(idx *big.Int, n uint64, k int) []uint64 {
	K := k
	composition := make([]uint64, K)
	rem := new(big.Int).Set(idx)

	target := new(big.Int)
	for i := 0; i <= K-2; i++ {
		if n == 0 {
			break
		}

		// target = Compositions(n,k) - rem; mu is the largest value with
		// Compositions(n-mu,k) >= target
		total := Compositions(n, k)
		target.Sub(total, rem)

		lo, hi := uint64(0), n
		for lo < hi {
			mid := lo + (hi-lo+1)/2
			if Compositions(n-mid, k).Cmp(target) >= 0 {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		mu := lo

		rem.Sub(rem, total.Sub(total, Compositions(n-mu, k)))
		composition[i] = mu
		n -= mu
		k--
	}

	composition[len(composition)-1] = n

	return composition
}
