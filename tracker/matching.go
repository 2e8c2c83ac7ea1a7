package tracker

// classMismatchCost is the cost of pairing tracks of different classes.  It
// exceeds every valid match threshold so such pairs are never associated.
const classMismatchCost = 2

// iouDistance returns the cost matrix 1-IoU between two sets of tracks.
// Pairs of different classes get classMismatchCost.
func iouDistance(aTracks, bTracks []*STrack) [][]float32 {

	if len(aTracks) == 0 || len(bTracks) == 0 {
		return nil
	}

	cost := make([][]float32, len(aTracks))

	for i, a := range aTracks {
		cost[i] = make([]float32, len(bTracks))

		for j, b := range bTracks {
			if a.GetClassID() != b.GetClassID() {
				cost[i][j] = classMismatchCost
				continue
			}

			cost[i][j] = 1 - b.rect.IoU(a.rect)
		}
	}

	return cost
}

// assign solves the rectangular assignment problem over cost, a rows x cols
// matrix.  Pairs costing more than thresh are left unmatched, including ties
// the solver could resolve either way.
func assign(cost [][]float32, rows, cols int, thresh float32) (matches [][2]int,
	unmatchedRows, unmatchedCols []int, err error) {

	if rows == 0 || cols == 0 {
		for i := 0; i < rows; i++ {
			unmatchedRows = append(unmatchedRows, i)
		}
		for j := 0; j < cols; j++ {
			unmatchedCols = append(unmatchedCols, j)
		}
		return
	}

	// extend to a square matrix where leaving a row or column unassigned
	// costs half the threshold
	n := rows + cols
	ext := make([][]float64, n)

	for i := range ext {
		ext[i] = make([]float64, n)

		for j := range ext[i] {
			switch {
			case i < rows && j < cols:
				ext[i][j] = float64(cost[i][j])
			case i >= rows && j >= cols:
				ext[i][j] = 0
			default:
				ext[i][j] = float64(thresh / 2)
			}
		}
	}

	x, _, err := solveLAP(ext)

	if err != nil {
		return nil, nil, nil, err
	}

	matchedCols := make([]bool, cols)

	for i := 0; i < rows; i++ {
		if j := x[i]; j < cols && cost[i][j] <= thresh {
			matches = append(matches, [2]int{i, j})
			matchedCols[j] = true
		} else {
			unmatchedRows = append(unmatchedRows, i)
		}
	}

	for j := 0; j < cols; j++ {
		if !matchedCols[j] {
			unmatchedCols = append(unmatchedCols, j)
		}
	}

	return matches, unmatchedRows, unmatchedCols, nil
}
