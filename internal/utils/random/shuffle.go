package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Source yields uniform integers in [0, n).
type Source interface {
	IntN(n int) int
}

// CryptoSource draws from crypto/rand.
type CryptoSource struct{}

func (CryptoSource) IntN(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(fmt.Sprintf("failed to generate random number: %v", err))
	}
	return int(v.Int64())
}

// Shuffle performs a Fisher-Yates shuffle of the slice.
func Shuffle[T any](src Source, slice []T) {
	for i := len(slice) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		slice[i], slice[j] = slice[j], slice[i]
	}
}

// Sample moves k uniformly chosen elements to the front of slice and returns
// them. The rest of the slice is left in an unspecified order.
func Sample[T any](src Source, slice []T, k int) []T {
	n := len(slice)
	if k >= n {
		Shuffle(src, slice)
		return slice
	}
	for i := 0; i < k; i++ {
		j := i + src.IntN(n-i)
		slice[i], slice[j] = slice[j], slice[i]
	}
	return slice[:k]
}
