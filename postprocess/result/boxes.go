package result

// ClassBoxes is a collection of boxes grouped by class, indexed by class ID.
// Order within a class is not significant.
type ClassBoxes [][]Bbox

// NewClassBoxes returns an empty collection for the given number of classes
func NewClassBoxes(classes int) ClassBoxes {
	return make(ClassBoxes, classes)
}

// Count returns the total number of boxes across all classes
func (cb ClassBoxes) Count() int {
	n := 0
	for _, boxes := range cb {
		n += len(boxes)
	}
	return n
}

// Flatten returns all boxes as a single list in class order
func (cb ClassBoxes) Flatten() []Bbox {
	out := make([]Bbox, 0, cb.Count())
	for _, boxes := range cb {
		out = append(out, boxes...)
	}
	return out
}

// Clone returns a deep copy of the collection
func (cb ClassBoxes) Clone() ClassBoxes {
	out := make(ClassBoxes, len(cb))
	for c, boxes := range cb {
		if boxes == nil {
			continue
		}
		out[c] = make([]Bbox, len(boxes))
		for i, b := range boxes {
			if b.Aux != nil {
				b.Aux = append([]KeyPoint(nil), b.Aux...)
			}
			out[c][i] = b
		}
	}
	return out
}
