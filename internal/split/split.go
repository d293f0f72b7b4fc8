// Package split partitions a dataset into train and validation rows.
package split

import (
	"math"
	"math/rand"

	"github.com/danielpatrickdp/baler/go-codec/internal/dataset"
	"github.com/danielpatrickdp/baler/go-codec/internal/faults"
)

// #region indices
// Indices returns the row indices of the train and test partitions of n rows.
// The test size is floor(testFraction * n); the permutation depends only on seed.
func Indices(n int, testFraction float64, seed int64) (train, test []int, err error) {
	if !(testFraction > 0 && testFraction < 1) {
		return nil, nil, faults.Data(faults.StageSplit, "test fraction %v outside (0, 1)", testFraction)
	}
	nTest := int(math.Floor(testFraction * float64(n)))
	if nTest == 0 || nTest == n {
		return nil, nil, faults.Data(faults.StageSplit, "%d rows with test fraction %v leaves an empty partition", n, testFraction)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// #endregion indices

// #region split
// Split partitions ds deterministically for a given seed. Every row lands in
// exactly one partition.
func Split(ds dataset.Dataset, testFraction float64, seed int64) (train, test dataset.Dataset, err error) {
	if err := ds.Validate(faults.StageSplit); err != nil {
		return dataset.Dataset{}, dataset.Dataset{}, err
	}
	trainIdx, testIdx, err := Indices(ds.NumRows(), testFraction, seed)
	if err != nil {
		return dataset.Dataset{}, dataset.Dataset{}, err
	}
	return ds.Rows(trainIdx), ds.Rows(testIdx), nil
}

// #endregion split
