package postprocess

import (
	"sort"

	"github.com/bmharper/flatbush-go"
	"github.com/swdee/go-detrack/postprocess/result"
)

// spatialIndexMin is the number of candidates in a class above which NMS
// looks up overlapping boxes through a spatial index instead of comparing
// every pair
const spatialIndexMin = 64

// NMS applies greedy Non-Maximum Suppression independently to each class.
// Each class of the result is ordered by descending detector confidence.
func NMS(boxes result.ClassBoxes, threshold float32) result.ClassBoxes {

	out := make(result.ClassBoxes, len(boxes))

	for c, candidates := range boxes {
		out[c] = nmsClass(candidates, threshold)
	}

	return out
}

// sortByConfidence returns a copy of boxes stable sorted by descending
// detector confidence
func sortByConfidence(boxes []result.Bbox) []result.Bbox {

	sorted := make([]result.Bbox, len(boxes))
	copy(sorted, boxes)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DetectorConfidence > sorted[j].DetectorConfidence
	})

	return sorted
}

// nmsClass suppresses boxes of a single class
func nmsClass(boxes []result.Bbox, threshold float32) []result.Bbox {

	if len(boxes) == 0 {
		return nil
	}

	sorted := sortByConfidence(boxes)

	if len(sorted) > spatialIndexMin && threshold >= 0 {
		return nmsIndexed(sorted, threshold)
	}

	return nmsGreedy(sorted, threshold)
}

// nmsGreedy keeps a candidate only if its IoU with every box kept so far does
// not exceed threshold
func nmsGreedy(sorted []result.Bbox, threshold float32) []result.Bbox {

	kept := make([]result.Bbox, 0, len(sorted))

next:
	for _, cand := range sorted {
		for _, k := range kept {
			if result.IoU(cand, k) > threshold {
				continue next
			}
		}
		kept = append(kept, cand)
	}

	return kept
}

// nmsIndexed produces the same result as nmsGreedy.  Every kept box marks the
// lower confidence boxes it overlaps too much, found via a flatbush index, so
// a candidate is suppressed exactly when a kept box ahead of it overlaps it.
func nmsIndexed(sorted []result.Bbox, threshold float32) []result.Bbox {

	fb := flatbush.NewFlatbush[float32]()
	fb.Reserve(len(sorted))
	for _, b := range sorted {
		fb.Add(b.Xmin, b.Ymin, b.Xmax, b.Ymax)
	}
	fb.Finish()

	suppressed := make([]bool, len(sorted))
	kept := make([]result.Bbox, 0, len(sorted))

	for i, cand := range sorted {
		if suppressed[i] {
			continue
		}

		kept = append(kept, cand)

		for _, j := range fb.Search(cand.Xmin, cand.Ymin, cand.Xmax, cand.Ymax) {
			if j <= i || suppressed[j] {
				continue
			}
			if result.IoU(cand, sorted[j]) > threshold {
				suppressed[j] = true
			}
		}
	}

	return kept
}
