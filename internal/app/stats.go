package app

import (
	"math"
	"sort"

	"fairprice/internal/domain"
)

// minOutlierSample is the smallest sample on which quartile-based outlier
// detection is meaningful. Below it, removal is skipped and the quality score
// is capped instead.
const minOutlierSample = 4

// smallSampleQualityCap keeps the quality score under the low-confidence floor
// whenever outlier removal had to be skipped.
const smallSampleQualityCap = 0.4

// AnalyzeDistribution turns raw price-per-area values into robust statistics.
// Outliers are found with the classic IQR fences (Q1−1.5·IQR, Q3+1.5·IQR),
// excluded from the statistics and recorded by input index. Deterministic pure
// function: no I/O, no randomness.
func AnalyzeDistribution(values []float64) domain.DistributionStats {
	n := len(values)
	if n == 0 {
		return domain.DistributionStats{}
	}

	var kept []float64
	var outliers []int

	if n < minOutlierSample {
		kept = append([]float64(nil), values...)
	} else {
		q1, q3 := quartiles(values)
		iqr := q3 - q1
		lo, hi := q1-1.5*iqr, q3+1.5*iqr
		for i, v := range values {
			if v < lo || v > hi {
				outliers = append(outliers, i)
				continue
			}
			kept = append(kept, v)
		}
	}

	st := domain.DistributionStats{
		OutlierIdx: outliers,
		SampleSize: len(kept),
	}
	st.Mean = mean(kept)
	st.Median = median(kept)
	st.StdDev = popStdDev(kept, st.Mean)
	st.Q1, st.Q3 = quartiles(kept)
	st.IQR = st.Q3 - st.Q1
	if st.Mean > 0 {
		st.CV = st.StdDev / st.Mean
	}
	st.Quality = qualityScore(len(kept), st.CV)
	if n < minOutlierSample && st.Quality > smallSampleQualityCap {
		st.Quality = smallSampleQualityCap
	}
	return st
}

// qualityScore blends sample size and dispersion into [0,1]: ten or more
// samples max out the size term, a coefficient of variation of zero maxes out
// the dispersion term.
func qualityScore(n int, cv float64) float64 {
	sizeScore := math.Min(1, float64(n)/10)
	dispScore := math.Max(0, 1-cv)
	return clamp01(0.6*sizeScore + 0.4*dispScore)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func median(vs []float64) float64 {
	n := len(vs)
	if n == 0 {
		return 0
	}
	s := sortedCopy(vs)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// popStdDev is the population standard deviation: the sample is treated as the
// full observed population for this analysis.
func popStdDev(vs []float64, mu float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var ss float64
	for _, v := range vs {
		d := v - mu
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vs)))
}

// quartiles uses Tukey's method: the medians of the lower and upper halves,
// excluding the overall median for odd-length input.
func quartiles(vs []float64) (q1, q3 float64) {
	n := len(vs)
	if n == 0 {
		return 0, 0
	}
	if n == 1 {
		return vs[0], vs[0]
	}
	s := sortedCopy(vs)
	half := n / 2
	q1 = median(s[:half])
	if n%2 == 1 {
		q3 = median(s[half+1:])
	} else {
		q3 = median(s[half:])
	}
	return q1, q3
}

func sortedCopy(vs []float64) []float64 {
	s := append([]float64(nil), vs...)
	sort.Float64s(s)
	return s
}
