package app

import (
	"math"
	"testing"
)

func almostEq(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestAnalyzeDistribution_OutlierRoundTrip(t *testing.T) {
	// Tight cluster around 100k/m² with two injected extremes.
	values := []float64{98_000, 100_000, 101_000, 99_500, 102_000, 100_500, 5_000, 900_000}

	st := AnalyzeDistribution(values)

	if len(st.OutlierIdx) != 2 {
		t.Fatalf("outliers: got %v, want exactly the two injected indices", st.OutlierIdx)
	}
	got := map[int]bool{}
	for _, i := range st.OutlierIdx {
		got[i] = true
	}
	if !got[6] || !got[7] {
		t.Fatalf("outlier indices: got %v, want [6 7]", st.OutlierIdx)
	}
	if st.SampleSize != 6 {
		t.Fatalf("sample size after filter: got %d, want 6", st.SampleSize)
	}

	// Filtered stats must differ from the raw ones.
	rawMean := mean(values)
	rawMedian := median(values)
	if almostEq(st.Mean, rawMean) {
		t.Fatalf("filtered mean %.2f equals unfiltered %.2f", st.Mean, rawMean)
	}
	if st.Mean < 98_000 || st.Mean > 102_000 {
		t.Fatalf("filtered mean %.2f outside the cluster", st.Mean)
	}
	_ = rawMedian
}

func TestAnalyzeDistribution_SmallSampleSkipsOutlierRemoval(t *testing.T) {
	values := []float64{100_000, 101_000, 5_000} // the extreme stays in

	st := AnalyzeDistribution(values)

	if len(st.OutlierIdx) != 0 {
		t.Fatalf("expected no outlier removal below %d points, got %v", minOutlierSample, st.OutlierIdx)
	}
	if st.SampleSize != 3 {
		t.Fatalf("sample size: got %d, want 3", st.SampleSize)
	}
	if st.Quality > smallSampleQualityCap {
		t.Fatalf("quality %.2f above the small-sample cap %.2f", st.Quality, smallSampleQualityCap)
	}
}

func TestAnalyzeDistribution_QualityMonotonicInSampleSize(t *testing.T) {
	small := make([]float64, 4)
	large := make([]float64, 12)
	for i := range small {
		small[i] = 100_000
	}
	for i := range large {
		large[i] = 100_000
	}

	qs := AnalyzeDistribution(small).Quality
	ql := AnalyzeDistribution(large).Quality
	if ql <= qs {
		t.Fatalf("quality should grow with sample size: %d pts -> %.3f, %d pts -> %.3f",
			len(small), qs, len(large), ql)
	}
	if ql > 1 || qs < 0 {
		t.Fatalf("quality out of [0,1]: %.3f, %.3f", qs, ql)
	}
}

func TestAnalyzeDistribution_QualityPenalizesDispersion(t *testing.T) {
	tight := []float64{100_000, 100_500, 99_500, 100_200, 99_800, 100_100}
	loose := []float64{60_000, 140_000, 80_000, 120_000, 70_000, 130_000}

	qt := AnalyzeDistribution(tight).Quality
	ql := AnalyzeDistribution(loose).Quality
	if ql >= qt {
		t.Fatalf("dispersed sample should score lower: tight %.3f, loose %.3f", qt, ql)
	}
}

func TestAnalyzeDistribution_Empty(t *testing.T) {
	st := AnalyzeDistribution(nil)
	if st.SampleSize != 0 || st.Quality != 0 {
		t.Fatalf("empty input should yield zero stats, got %+v", st)
	}
}

func TestQuartiles(t *testing.T) {
	q1, q3 := quartiles([]float64{1, 2, 3, 4})
	if !almostEq(q1, 1.5) || !almostEq(q3, 3.5) {
		t.Fatalf("even case: got (%v, %v), want (1.5, 3.5)", q1, q3)
	}
	q1, q3 = quartiles([]float64{1, 2, 3, 4, 5})
	if !almostEq(q1, 1.5) || !almostEq(q3, 4.5) {
		t.Fatalf("odd case: got (%v, %v), want (1.5, 4.5)", q1, q3)
	}
}

func TestPopStdDev(t *testing.T) {
	vs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if sd := popStdDev(vs, mean(vs)); !almostEq(sd, 2) {
		t.Fatalf("population stddev: got %v, want 2", sd)
	}
}
