package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	apperrors "btcsentiment/internal/errors"
)

// ClusterCandidates are the trader metric columns usable as clustering
// features, in the order they are picked
var ClusterCandidates = []string{"total_pnl", "win_rate", "trade_count", "avg_pnl", "closedPnL_sum", "closedPnL_mean"}

// Cluster assigns every account a k-means cluster label over the
// standardized candidate features. With fewer than two features, fewer
// accounts than clusters, or non-finite feature values, every account is put
// in cluster 0 instead. The input is not modified.
func (a *Analyzer) Cluster(ctx context.Context, metrics *TraderMetrics, k int) (*TraderMetrics, error) {
	if metrics.Len() == 0 {
		return nil, apperrors.NewInvalidInputError("invalid input data for clustering: no trader metrics")
	}
	if k <= 0 {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("invalid cluster count %d", k))
	}

	out := metrics.Clone()
	out.Clustered = true
	out.ClusterDegraded = false
	out.ClusterFeatures = nil

	var features []string
	var columns [][]float64
	for _, name := range ClusterCandidates {
		if values, ok := out.feature(name); ok {
			features = append(features, name)
			columns = append(columns, values)
		}
	}

	degrade := func(reason string) (*TraderMetrics, error) {
		a.logger.WarnContext(ctx, "Clustering skipped, assigning every trader to cluster 0",
			slog.String("reason", reason),
			slog.Any("features", features))
		for i := range out.Rows {
			out.Rows[i].Cluster = 0
		}
		out.ClusterDegraded = true
		return out, nil
	}

	if len(features) < 2 {
		return degrade("not enough features")
	}
	n := out.Len()
	if n < k {
		return degrade(fmt.Sprintf("%d traders for %d clusters", n, k))
	}
	for f, col := range columns {
		for _, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return degrade(fmt.Sprintf("non-finite values in %s", features[f]))
			}
		}
	}

	points := standardize(columns)

	rng := rand.New(rand.NewPCG(a.opts.Seed, a.opts.Seed))
	best := kmeansResult{inertia: math.Inf(1)}
	for run := 0; run < a.opts.Restarts; run++ {
		res := kmeans(points, k, rng, a.opts.MaxIter, a.opts.Tol)
		if res.inertia < best.inertia {
			best = res
		}
	}

	labels := relabel(best.labels)
	sizes := make([]int, k)
	for i, label := range labels {
		out.Rows[i].Cluster = label
		sizes[label]++
	}
	out.ClusterFeatures = features

	a.logger.InfoContext(ctx, "Traders clustered",
		slog.Int("clusters", k),
		slog.Any("features", features),
		slog.Any("sizes", sizes),
		slog.Float64("inertia", best.inertia),
		slog.Int("iterations", best.iters))
	return out, nil
}

// standardize converts feature columns into row vectors with zero mean and
// unit population variance per feature. A constant feature keeps scale 1.
func standardize(columns [][]float64) [][]float64 {
	n := len(columns[0])
	points := make([][]float64, n)
	for i := range points {
		points[i] = make([]float64, len(columns))
	}
	for f, col := range columns {
		mean, variance := stat.PopMeanVariance(col, nil)
		scale := math.Sqrt(variance)
		if scale == 0 {
			scale = 1
		}
		for i, v := range col {
			points[i][f] = (v - mean) / scale
		}
	}
	return points
}

type kmeansResult struct {
	labels  []int
	inertia float64
	iters   int
}

// kmeans runs one k-means++ seeded Lloyd optimization. Convergence is
// reached when the total squared center shift falls below tol times the
// mean feature variance.
func kmeans(points [][]float64, k int, rng *rand.Rand, maxIter int, tol float64) kmeansResult {
	centers := seedPlusPlus(points, k, rng)
	threshold := tol * meanVariance(points)

	labels := make([]int, len(points))
	iters := 0
	for iters < maxIter {
		iters++
		assign(points, centers, labels)
		next := recenter(points, centers, labels)

		shift := 0.0
		for c := range centers {
			shift += sqDist(centers[c], next[c])
		}
		centers = next
		if shift <= threshold {
			break
		}
	}
	inertia := assign(points, centers, labels)
	return kmeansResult{labels: labels, inertia: inertia, iters: iters}
}

// seedPlusPlus picks k initial centers, each new one drawn with probability
// proportional to its squared distance from the nearest chosen center
func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(points[rng.IntN(n)]))

	d2 := make([]float64, n)
	for i, p := range points {
		d2[i] = sqDist(p, centers[0])
	}

	for len(centers) < k {
		total := floats.Sum(d2)
		idx := rng.IntN(n)
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			for i, w := range d2 {
				acc += w
				if acc >= target && w > 0 {
					idx = i
					break
				}
			}
		}
		center := clone(points[idx])
		centers = append(centers, center)
		for i, p := range points {
			if d := sqDist(p, center); d < d2[i] {
				d2[i] = d
			}
		}
	}
	return centers
}

// assign labels every point with its nearest center and returns the sum of
// squared distances. Ties go to the lower center index.
func assign(points, centers [][]float64, labels []int) float64 {
	inertia := 0.0
	for i, p := range points {
		best, bestDist := 0, math.Inf(1)
		for c, center := range centers {
			if d := sqDist(p, center); d < bestDist {
				best, bestDist = c, d
			}
		}
		labels[i] = best
		inertia += bestDist
	}
	return inertia
}

// recenter returns the mean of each cluster. An empty cluster takes the
// point farthest from its current center.
func recenter(points, centers [][]float64, labels []int) [][]float64 {
	dim := len(points[0])
	next := make([][]float64, len(centers))
	counts := make([]int, len(centers))
	for c := range next {
		next[c] = make([]float64, dim)
	}
	for i, p := range points {
		floats.Add(next[labels[i]], p)
		counts[labels[i]]++
	}

	taken := make(map[int]bool)
	for c := range next {
		if counts[c] > 0 {
			floats.Scale(1/float64(counts[c]), next[c])
			continue
		}
		far, farDist := -1, -1.0
		for i, p := range points {
			if taken[i] {
				continue
			}
			if d := sqDist(p, centers[labels[i]]); d > farDist {
				far, farDist = i, d
			}
		}
		taken[far] = true
		copy(next[c], points[far])
	}
	return next
}

// relabel renumbers clusters in order of first appearance
func relabel(labels []int) []int {
	mapping := make(map[int]int)
	out := make([]int, len(labels))
	for i, l := range labels {
		m, ok := mapping[l]
		if !ok {
			m = len(mapping)
			mapping[l] = m
		}
		out[i] = m
	}
	return out
}

func meanVariance(points [][]float64) float64 {
	dim := len(points[0])
	col := make([]float64, len(points))
	total := 0.0
	for f := 0; f < dim; f++ {
		for i, p := range points {
			col[i] = p[f]
		}
		_, v := stat.PopMeanVariance(col, nil)
		total += v
	}
	return total / float64(dim)
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
