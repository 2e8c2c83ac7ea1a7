package tracker

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrCholesky is returned when the projected covariance is not positive
// definite and the Kalman gain can not be solved
var ErrCholesky = errors.New("projected covariance is not positive definite")

// KalmanState is the state estimate of a single track.  Mean holds the
// eight values (cx, cy, a, h, vcx, vcy, va, vh) of a constant velocity
// model over Xyah geometry.
type KalmanState struct {
	Mean *mat.VecDense
	Cov  *mat.Dense
}

// KalmanFilter is a constant velocity Kalman filter over Xyah geometry.  The
// filter carries no per track state so a single instance is shared by all
// tracks of a tracker.
type KalmanFilter struct {
	// stdPosition and stdVelocity scale the process and measurement noise
	// relative to the box height
	stdPosition float64
	stdVelocity float64
	// motion is the 8x8 state transition matrix
	motion *mat.Dense
	// observe is the 4x8 matrix projecting state into measurement space
	observe *mat.Dense
}

// NewKalmanFilter returns a filter using the given standard deviation weights
// for position and velocity
func NewKalmanFilter(stdPosition, stdVelocity float64) *KalmanFilter {

	motion := mat.NewDense(8, 8, nil)
	observe := mat.NewDense(4, 8, nil)

	for i := 0; i < 8; i++ {
		motion.Set(i, i, 1)
	}

	for i := 0; i < 4; i++ {
		motion.Set(i, i+4, 1)
		observe.Set(i, i, 1)
	}

	return &KalmanFilter{
		stdPosition: stdPosition,
		stdVelocity: stdVelocity,
		motion:      motion,
		observe:     observe,
	}
}

// squaredDiag returns a diagonal matrix of the squared standard deviations
func squaredDiag(std ...float64) *mat.Dense {
	d := mat.NewDense(len(std), len(std), nil)
	for i, s := range std {
		d.Set(i, i, s*s)
	}
	return d
}

// Initiate creates the state of a new track from an unassociated measurement
func (kf *KalmanFilter) Initiate(m Xyah) KalmanState {

	h := float64(m[3])
	pos := 2 * kf.stdPosition * h
	vel := 10 * kf.stdVelocity * h

	return KalmanState{
		Mean: mat.NewVecDense(8, []float64{
			float64(m[0]), float64(m[1]), float64(m[2]), h, 0, 0, 0, 0,
		}),
		Cov: squaredDiag(pos, pos, 1e-2, pos, vel, vel, 1e-5, vel),
	}
}

// Predict advances the state one time step
func (kf *KalmanFilter) Predict(s *KalmanState) {

	h := s.Mean.AtVec(3)
	pos := kf.stdPosition * h
	vel := kf.stdVelocity * h

	var mean mat.VecDense
	mean.MulVec(kf.motion, s.Mean)

	var cov mat.Dense
	cov.Product(kf.motion, s.Cov, kf.motion.T())
	cov.Add(&cov, squaredDiag(pos, pos, 1e-2, pos, vel, vel, 1e-5, vel))

	s.Mean = &mean
	s.Cov = &cov
}

// project maps the state into measurement space, returning the projected
// mean and the innovation covariance
func (kf *KalmanFilter) project(s *KalmanState) (*mat.VecDense, *mat.SymDense) {

	h := s.Mean.AtVec(3)
	std := []float64{kf.stdPosition * h, kf.stdPosition * h, 1e-1, kf.stdPosition * h}

	var mean mat.VecDense
	mean.MulVec(kf.observe, s.Mean)

	var cov mat.Dense
	cov.Product(kf.observe, s.Cov, kf.observe.T())

	sym := mat.NewSymDense(4, nil)

	for i := 0; i < 4; i++ {
		for j := i; j < 4; j++ {
			v := cov.At(i, j)
			if i == j {
				v += std[i] * std[i]
			}
			sym.SetSym(i, j, v)
		}
	}

	return &mean, sym
}

// Update corrects the state with an associated measurement
func (kf *KalmanFilter) Update(s *KalmanState, m Xyah) error {

	projMean, projCov := kf.project(s)

	var chol mat.Cholesky

	if ok := chol.Factorize(projCov); !ok {
		return ErrCholesky
	}

	// transposed Kalman gain, solved from S * K^T = (P * H^T)^T
	var pht mat.Dense
	pht.Mul(s.Cov, kf.observe.T())

	var gainT mat.Dense

	if err := chol.SolveTo(&gainT, pht.T()); err != nil {
		return fmt.Errorf("error solving kalman gain: %w", err)
	}

	innovation := mat.NewVecDense(4, nil)
	for i := 0; i < 4; i++ {
		innovation.SetVec(i, float64(m[i])-projMean.AtVec(i))
	}

	var delta mat.VecDense
	delta.MulVec(gainT.T(), innovation)

	var mean mat.VecDense
	mean.AddVec(s.Mean, &delta)

	var correction mat.Dense
	correction.Product(gainT.T(), projCov, &gainT)

	var cov mat.Dense
	cov.Sub(s.Cov, &correction)

	s.Mean = &mean
	s.Cov = &cov

	return nil
}
