package vector

import (
	"fmt"
	"math"
)

// convergence threshold for the maximum centroid shift between iterations.
const trainTolerance = 1e-4

// trainPartitions runs Lloyd's k-means over vectors and returns k centroids.
// Seeds are spread evenly across the input for deterministic training.
// Training fails when k exceeds the corpus size or the centroids have not
// settled within maxIters iterations.
func trainPartitions(vectors [][]float32, k, maxIters int) ([][]float32, error) {
	n := len(vectors)
	if k <= 0 || k > n {
		return nil, fmt.Errorf("%w: %d partitions for %d vectors", ErrTrainingFailed, k, n)
	}
	dim := len(vectors[0])

	centroids := make([][]float32, k)
	for i := 0; i < k; i++ {
		seed := vectors[i*n/k]
		c := make([]float32, dim)
		copy(c, seed)
		centroids[i] = c
	}

	assignments := make([]int, n)
	counts := make([]int, k)
	sums := make([][]float64, k)
	for i := range sums {
		sums[i] = make([]float64, dim)
	}

	for iter := 0; iter < maxIters; iter++ {
		for i := range counts {
			counts[i] = 0
			for j := range sums[i] {
				sums[i][j] = 0
			}
		}
		for i, v := range vectors {
			c := nearestCentroid(v, centroids)
			assignments[i] = c
			counts[c]++
			for j, x := range v {
				sums[c][j] += float64(x)
			}
		}

		// Reseed empty partitions from the vector farthest from its centroid
		// so every partition stays non-empty.
		for c := 0; c < k; c++ {
			if counts[c] > 0 {
				continue
			}
			far := farthestVector(vectors, assignments, centroids)
			old := assignments[far]
			counts[old]--
			for j, x := range vectors[far] {
				sums[old][j] -= float64(x)
			}
			assignments[far] = c
			counts[c] = 1
			for j, x := range vectors[far] {
				sums[c][j] = float64(x)
			}
		}

		var maxShift float64
		for c := 0; c < k; c++ {
			// A reseed can empty an earlier partition within this iteration;
			// it will be reseeded on the next pass.
			if counts[c] == 0 {
				maxShift = math.Inf(1)
				continue
			}
			for j := 0; j < dim; j++ {
				next := float32(sums[c][j] / float64(counts[c]))
				shift := math.Abs(float64(next - centroids[c][j]))
				if shift > maxShift {
					maxShift = shift
				}
				centroids[c][j] = next
			}
		}
		if maxShift < trainTolerance {
			return centroids, nil
		}
	}
	return nil, fmt.Errorf("%w: no convergence after %d iterations", ErrTrainingFailed, maxIters)
}

// nearestCentroid returns the index of the centroid closest to v.
func nearestCentroid(v []float32, centroids [][]float32) int {
	best := 0
	bestDist := math.Inf(1)
	for i, c := range centroids {
		if d := l2Distance(v, c); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// farthestVector returns the index of the vector with the greatest distance
// to its assigned centroid.
func farthestVector(vectors [][]float32, assignments []int, centroids [][]float32) int {
	far := 0
	farDist := -1.0
	for i, v := range vectors {
		if d := l2Distance(v, centroids[assignments[i]]); d > farDist {
			far = i
			farDist = d
		}
	}
	return far
}
