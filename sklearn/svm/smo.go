package svm

import (
	"math"
)

// tau replaces a non-positive curvature in the two-variable subproblem.
const tau = 1e-12

// binaryProblem is the C-SVC dual for one class pair:
//
//	min ½ αᵀQα − eᵀα  s.t. yᵀα = 0, 0 ≤ α ≤ C
//
// with Q_ij = y_i y_j K(x_i, x_j).
type binaryProblem struct {
	y       []float64              // ±1 labels
	k       func(i, j int) float64 // kernel value between local samples i and j
	c       float64
	eps     float64
	maxIter int
}

type binarySolution struct {
	alpha     []float64
	rho       float64
	iter      int
	converged bool
}

// solveSMO runs sequential minimal optimization with second-order working set
// selection (Fan, Chen and Lin 2005).
func solveSMO(p *binaryProblem) binarySolution {
	n := len(p.y)
	alpha := make([]float64, n)
	grad := make([]float64, n)
	qd := make([]float64, n)
	for i := range grad {
		grad[i] = -1
		qd[i] = p.k(i, i)
	}

	// Q の行を一時的に保持する
	qi := make([]float64, n)
	qj := make([]float64, n)
	qRow := func(dst []float64, i int) {
		for t := 0; t < n; t++ {
			dst[t] = p.y[i] * p.y[t] * p.k(i, t)
		}
	}

	upper := func(t int) bool { return alpha[t] >= p.c }
	lower := func(t int) bool { return alpha[t] <= 0 }

	iter := 0
	converged := false
	for iter < p.maxIter {
		// working set selection
		gmax, gmax2 := math.Inf(-1), math.Inf(-1)
		i, j := -1, -1
		for t := 0; t < n; t++ {
			if p.y[t] == 1 {
				if !upper(t) && -grad[t] >= gmax {
					gmax = -grad[t]
					i = t
				}
			} else if !lower(t) && grad[t] >= gmax {
				gmax = grad[t]
				i = t
			}
		}
		if i == -1 {
			converged = true
			break
		}
		qRow(qi, i)

		objMin := math.Inf(1)
		for t := 0; t < n; t++ {
			if p.y[t] == 1 {
				if lower(t) {
					continue
				}
				gradDiff := gmax + grad[t]
				if grad[t] >= gmax2 {
					gmax2 = grad[t]
				}
				if gradDiff > 0 {
					quad := qd[i] + qd[t] - 2*p.y[i]*qi[t]
					if quad <= 0 {
						quad = tau
					}
					if obj := -gradDiff * gradDiff / quad; obj <= objMin {
						j = t
						objMin = obj
					}
				}
			} else {
				if upper(t) {
					continue
				}
				gradDiff := gmax - grad[t]
				if -grad[t] >= gmax2 {
					gmax2 = -grad[t]
				}
				if gradDiff > 0 {
					quad := qd[i] + qd[t] + 2*p.y[i]*qi[t]
					if quad <= 0 {
						quad = tau
					}
					if obj := -gradDiff * gradDiff / quad; obj <= objMin {
						j = t
						objMin = obj
					}
				}
			}
		}
		if gmax+gmax2 < p.eps || j == -1 {
			converged = true
			break
		}

		iter++
		qRow(qj, j)
		oldI, oldJ := alpha[i], alpha[j]
		updatePair(alpha, grad, qd, qi, p.y, i, j, p.c)

		dI, dJ := alpha[i]-oldI, alpha[j]-oldJ
		for t := 0; t < n; t++ {
			grad[t] += qi[t]*dI + qj[t]*dJ
		}
	}

	return binarySolution{
		alpha:     alpha,
		rho:       computeRho(alpha, grad, p.y, p.c),
		iter:      iter,
		converged: converged,
	}
}

// updatePair solves the two-variable subproblem for (i, j) analytically and
// clips the result to the box.
func updatePair(alpha, grad, qd, qi, y []float64, i, j int, c float64) {
	if y[i] != y[j] {
		quad := qd[i] + qd[j] + 2*qi[j]
		if quad <= 0 {
			quad = tau
		}
		delta := (-grad[i] - grad[j]) / quad
		diff := alpha[i] - alpha[j]
		alpha[i] += delta
		alpha[j] += delta

		if diff > 0 {
			if alpha[j] < 0 {
				alpha[j] = 0
				alpha[i] = diff
			}
		} else if alpha[i] < 0 {
			alpha[i] = 0
			alpha[j] = -diff
		}
		if diff > 0 {
			if alpha[i] > c {
				alpha[i] = c
				alpha[j] = c - diff
			}
		} else if alpha[j] > c {
			alpha[j] = c
			alpha[i] = c + diff
		}
		return
	}

	quad := qd[i] + qd[j] - 2*qi[j]
	if quad <= 0 {
		quad = tau
	}
	delta := (grad[i] - grad[j]) / quad
	sum := alpha[i] + alpha[j]
	alpha[i] -= delta
	alpha[j] += delta

	if sum > c {
		if alpha[i] > c {
			alpha[i] = c
			alpha[j] = sum - c
		}
	} else if alpha[j] < 0 {
		alpha[j] = 0
		alpha[i] = sum
	}
	if sum > c {
		if alpha[j] > c {
			alpha[j] = c
			alpha[i] = sum - c
		}
	} else if alpha[i] < 0 {
		alpha[i] = 0
		alpha[j] = sum
	}
}

// computeRho returns the bias term: the mean of y·∇f over free support
// vectors, or the midpoint of the feasible interval when none is free.
func computeRho(alpha, grad, y []float64, c float64) float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	var sumFree float64
	nFree := 0
	for t := range alpha {
		yG := y[t] * grad[t]
		switch {
		case alpha[t] >= c:
			if y[t] == -1 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		case alpha[t] <= 0:
			if y[t] == 1 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		default:
			nFree++
			sumFree += yG
		}
	}
	if nFree > 0 {
		return sumFree / float64(nFree)
	}
	switch {
	case math.IsInf(ub, 1):
		return lb
	case math.IsInf(lb, -1):
		return ub
	}
	return (ub + lb) / 2
}
