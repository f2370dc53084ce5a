package crossval

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrFolds is returned for fold counts the data cannot support.
var ErrFolds = errors.New("invalid fold count")

// Folds assigns each of n observations a label in 1..k. Labels are the
// sequence 1,2,..,k repeated to length n, shuffled with a source seeded by
// seed, so every label appears floor(n/k) or ceil(n/k) times and the same
// seed always yields the same assignment.
func Folds(n, k int, seed int64) ([]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("%w: k=%d, need at least 2", ErrFolds, k)
	}
	if k > n {
		return nil, fmt.Errorf("%w: k=%d exceeds %d observations", ErrFolds, k, n)
	}
	labels := make([]int, n)
	for i := range labels {
		labels[i] = i%k + 1
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) { labels[i], labels[j] = labels[j], labels[i] })
	return labels, nil
}

// split returns the row indices outside and inside fold.
func split(labels []int, fold int) (train, test []int) {
	for i, l := range labels {
		if l == fold {
			test = append(test, i)
		} else {
			train = append(train, i)
		}
	}
	return train, test
}
