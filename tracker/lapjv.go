package tracker

import (
	"errors"
	"fmt"
)

// lapLarge is the initial value of the column duals
const lapLarge = 1000000.0

// ErrAssignment is returned when the assignment solver fails to find an
// augmenting path
var ErrAssignment = errors.New("linear assignment failed")

// lapSolver solves the dense square Linear Assignment Problem with the
// Jonker-Volgenant algorithm
type lapSolver struct {
	n    int
	cost [][]float64
	// x maps rows to their assigned column, y maps columns to their row
	x, y []int
	// v holds the column dual variables
	v []float64
	// free holds the rows not yet assigned
	free []int
}

// solveLAP returns the row and column assignments of the minimal cost
// assignment for the square cost matrix
func solveLAP(cost [][]float64) (x, y []int, err error) {

	n := len(cost)

	s := &lapSolver{
		n:    n,
		cost: cost,
		x:    make([]int, n),
		y:    make([]int, n),
		v:    make([]float64, n),
		free: make([]int, n),
	}

	nFree := s.columnReduction()

	for i := 0; nFree > 0 && i < 2; i++ {
		nFree = s.augmentingRowReduction(nFree)
	}

	if nFree > 0 {
		if err := s.augment(nFree); err != nil {
			return nil, nil, err
		}
	}

	return s.x, s.y, nil
}

// columnReduction performs column reduction and reduction transfer, returning
// the number of free rows
func (s *lapSolver) columnReduction() int {

	unique := make([]bool, s.n)

	for i := 0; i < s.n; i++ {
		s.x[i] = -1
		s.v[i] = lapLarge
		s.y[i] = 0
		unique[i] = true
	}

	for i := 0; i < s.n; i++ {
		for j := 0; j < s.n; j++ {
			if c := s.cost[i][j]; c < s.v[j] {
				s.v[j] = c
				s.y[j] = i
			}
		}
	}

	for j := s.n - 1; j >= 0; j-- {
		i := s.y[j]

		if s.x[i] < 0 {
			s.x[i] = j
		} else {
			unique[i] = false
			s.y[j] = -1
		}
	}

	nFree := 0

	for i := 0; i < s.n; i++ {

		if s.x[i] < 0 {
			s.free[nFree] = i
			nFree++
			continue
		}

		if !unique[i] {
			continue
		}

		j := s.x[i]
		minVal := lapLarge

		for j2 := 0; j2 < s.n; j2++ {
			if j2 == j {
				continue
			}

			if c := s.cost[i][j2] - s.v[j2]; c < minVal {
				minVal = c
			}
		}

		s.v[j] -= minVal
	}

	return nFree
}

// augmentingRowReduction reassigns free rows to their cheapest columns,
// returning the number of rows still free
func (s *lapSolver) augmentingRowReduction(nFree int) int {

	current := 0
	newFree := 0
	rrCnt := 0

	for current < nFree {

		rrCnt++
		freeI := s.free[current]
		current++

		// lowest and second lowest reduced cost in the row
		j1, v1 := 0, s.cost[freeI][0]-s.v[0]
		j2, v2 := -1, lapLarge

		for j := 1; j < s.n; j++ {
			c := s.cost[freeI][j] - s.v[j]

			if c >= v2 {
				continue
			}

			if c >= v1 {
				j2, v2 = j, c
			} else {
				j2, v2 = j1, v1
				j1, v1 = j, c
			}
		}

		i0 := s.y[j1]
		v1New := s.v[j1] - (v2 - v1)
		v1Lowers := v1New < s.v[j1]

		switch {
		case rrCnt < current*s.n:
			if v1Lowers {
				s.v[j1] = v1New
			} else if i0 >= 0 && j2 >= 0 {
				j1 = j2
				i0 = s.y[j2]
			}

			if i0 >= 0 {
				if v1Lowers {
					current--
					s.free[current] = i0
				} else {
					s.free[newFree] = i0
					newFree++
				}
			}

		case i0 >= 0:
			s.free[newFree] = i0
			newFree++
		}

		s.x[freeI] = j1
		s.y[j1] = freeI
	}

	return newFree
}

// collectMin moves the columns of cols[lo:] having the minimum d value to
// the front of the list, returning the end of that run
func (s *lapSolver) collectMin(lo int, d []float64, cols []int) int {

	hi := lo + 1
	mind := d[cols[lo]]

	for k := hi; k < s.n; k++ {
		j := cols[k]

		if d[j] > mind {
			continue
		}

		if d[j] < mind {
			hi = lo
			mind = d[j]
		}

		cols[k], cols[hi] = cols[hi], j
		hi++
	}

	return hi
}

// scan relaxes the unscanned columns through the columns in cols[lo:hi],
// returning an unassigned column reached at minimum distance or -1
func (s *lapSolver) scan(lo, hi *int, d []float64, cols, pred []int) int {

	for *lo != *hi {

		j := cols[*lo]
		*lo++

		i := s.y[j]
		mind := d[j]
		h := s.cost[i][j] - s.v[j] - mind

		for k := *hi; k < s.n; k++ {
			j = cols[k]
			reduced := s.cost[i][j] - s.v[j] - h

			if reduced >= d[j] {
				continue
			}

			d[j] = reduced
			pred[j] = i

			if reduced == mind {
				if s.y[j] < 0 {
					return j
				}

				cols[k], cols[*hi] = cols[*hi], j
				*hi++
			}
		}
	}

	return -1
}

// shortestPath runs the Dijkstra like search from a free row, updating the
// column duals and returning the unassigned column the path ends in
func (s *lapSolver) shortestPath(start int, pred []int) int {

	lo, hi := 0, 0
	final := -1
	ready := 0

	cols := make([]int, s.n)
	d := make([]float64, s.n)

	for i := 0; i < s.n; i++ {
		cols[i] = i
		pred[i] = start
		d[i] = s.cost[start][i] - s.v[i]
	}

	for final == -1 {

		if lo == hi {
			ready = lo
			hi = s.collectMin(lo, d, cols)

			for _, j := range cols[lo:hi] {
				if s.y[j] < 0 {
					final = j
				}
			}
		}

		if final == -1 {
			final = s.scan(&lo, &hi, d, cols, pred)
		}
	}

	mind := d[cols[lo]]

	for _, j := range cols[:ready] {
		s.v[j] += d[j] - mind
	}

	return final
}

// augment assigns the remaining free rows along shortest augmenting paths
func (s *lapSolver) augment(nFree int) error {

	pred := make([]int, s.n)

	for _, freeI := range s.free[:nFree] {

		j := s.shortestPath(freeI, pred)

		if j < 0 || j >= s.n {
			return fmt.Errorf("%w: path ended at column %d", ErrAssignment, j)
		}

		for i, steps := -1, 0; i != freeI; steps++ {
			if steps > s.n {
				return fmt.Errorf("%w: augmenting path from row %d does not terminate", ErrAssignment, freeI)
			}

			i = pred[j]
			s.y[j] = i
			j, s.x[i] = s.x[i], j
		}
	}

	return nil
}
