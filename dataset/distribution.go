package dataset

// Decisions are the developer decisions a merge-conflict chunk can be
// labelled with, in report order.
var Decisions = []string{
	"Version 1",
	"Version 2",
	"Combination",
	"ConcatenationV1V2",
	"ConcatenationV2V1",
	"Manual",
	"None",
}

// ClassDistribution counts labels per entry of classes. Missing labels are
// not counted. When normalized the counts become percentages of the counted
// labels; a class that never occurs is 0 either way.
func ClassDistribution(labels, classes []string, normalized bool) []float64 {
	counts := make(map[string]int, len(classes))
	total := 0
	for _, l := range labels {
		if IsNA(l) {
			continue
		}
		counts[l]++
		total++
	}
	out := make([]float64, len(classes))
	for i, c := range classes {
		n := counts[c]
		if normalized {
			if total > 0 {
				out[i] = float64(n) / float64(total) * 100
			}
		} else {
			out[i] = float64(n)
		}
	}
	return out
}
