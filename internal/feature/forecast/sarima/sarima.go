package sarima

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"forecast_backend/internal/feature/forecast/domain"
	"forecast_backend/internal/feature/forecast/domain/entity"
)

const (
	maxIterations = 2000
	stationaryCap = 0.9 // bound for autocorrelation starting values
)

// Model is a fitted seasonal ARIMA model.
type Model struct {
	Order      entity.Order
	ARCoeffs   []float64 // Non-seasonal AR coefficients
	SARCoeffs  []float64 // Seasonal AR coefficients
	Variance   float64   // Innovation variance
	LogLik     float64
	AIC        float64
	NObs       int
	Iterations int
	data       []float64
	diffPoly   []float64
	arPoly     []float64
	burnIn     int // first index with a defined difference
}

// Fit estimates the autoregressive parameters of order on values.
func Fit(values []float64, order entity.Order) (*Model, error) {
	if err := validate(len(values), order); err != nil {
		return nil, err
	}

	m := &Model{
		Order:    order,
		NObs:     len(values),
		data:     append([]float64(nil), values...),
		diffPoly: differencingPoly(order),
	}
	m.burnIn = len(m.diffPoly) - 1

	w := applyPoly(m.diffPoly, m.data)
	if len(w) < order.P+order.SP+2 {
		return nil, fmt.Errorf("%w: %w: %d differenced observations for %d parameters",
			domain.ErrModelFit, domain.ErrInsufficientData, len(w), order.P+order.SP)
	}
	if floats.Norm(w, 2) == 0 {
		return nil, fmt.Errorf("%w: differenced series is identically zero", domain.ErrModelFit)
	}

	k := order.P + order.SP
	x0 := startParams(w, order)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			ar, sar := m.unpack(x)
			return -concentratedLogLik(w, arPolynomial(ar, sar, order.S))
		},
	}

	var x []float64
	if k > 0 {
		settings := &optimize.Settings{
			MajorIterations: maxIterations,
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-10,
				Relative:   1e-10,
				Iterations: 100,
			},
		}
		res, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
		if err == nil {
			err = res.Status.Err()
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrModelFit, err)
		}
		x = res.X
		m.Iterations = res.MajorIterations
	}

	m.ARCoeffs, m.SARCoeffs = m.unpack(x)
	m.arPoly = arPolynomial(m.ARCoeffs, m.SARCoeffs, order.S)

	css := conditionalSS(w, m.arPoly)
	nw := float64(len(w))
	m.Variance = css / nw
	m.LogLik = concentratedLogLik(w, m.arPoly)
	if math.IsNaN(m.LogLik) || math.IsInf(m.LogLik, 0) {
		return nil, fmt.Errorf("%w: likelihood is not finite", domain.ErrModelFit)
	}
	m.AIC = -2*m.LogLik + 2*float64(k+1)
	return m, nil
}

func validate(n int, order entity.Order) error {
	switch {
	case order.P < 0 || order.D < 0 || order.SP < 0 || order.SD < 0:
		return fmt.Errorf("%w: negative order %+v", domain.ErrModelFit, order)
	case order.Q != 0 || order.SQ != 0:
		return fmt.Errorf("%w: moving-average terms are not supported", domain.ErrModelFit)
	case (order.SP > 0 || order.SD > 0) && order.S < 2:
		return fmt.Errorf("%w: seasonal period %d must be at least 2", domain.ErrModelFit, order.S)
	case order.S >= n:
		return fmt.Errorf("%w: %w: seasonal period %d is not smaller than the series length %d",
			domain.ErrModelFit, domain.ErrInsufficientData, order.S, n)
	}
	return nil
}

// Predict returns point predictions for the zero-based positions start..end inclusive.
// From start onwards predictions are dynamic: each step feeds on earlier predictions, never on
// observed values, and positions at or past NObs are out-of-sample.
func (m *Model) Predict(start, end int) ([]float64, error) {
	n := len(m.data)
	if start < 0 || end < start {
		return nil, fmt.Errorf("invalid prediction range [%d, %d]", start, end)
	}
	if start > n {
		return nil, fmt.Errorf("prediction start %d is past the end of the sample (%d)", start, n)
	}

	y := make([]float64, end+1)
	copy(y, m.data[:start])
	w := make([]float64, end+1)
	for s := m.burnIn; s < start; s++ {
		w[s] = dot(m.diffPoly, y, s)
	}

	for t := start; t <= end; t++ {
		wHat := 0.0
		for k := 1; k < len(m.arPoly); k++ {
			if t-k >= m.burnIn {
				wHat -= m.arPoly[k] * w[t-k]
			}
		}

		var pred float64
		switch {
		case t >= m.burnIn:
			pred = wHat
			for k := 1; k < len(m.diffPoly); k++ {
				pred -= m.diffPoly[k] * y[t-k]
			}
			w[t] = wHat
		case t > 0:
			// no defined difference yet: carry the last level forward
			pred = y[t-1]
		}
		y[t] = pred
	}

	out := make([]float64, end-start+1)
	copy(out, y[start:])
	return out, nil
}

// Forecast returns steps out-of-sample predictions following the last observation.
func (m *Model) Forecast(steps int) ([]float64, error) {
	if steps < 1 {
		return nil, errors.New("steps must be at least 1")
	}
	return m.Predict(len(m.data), len(m.data)+steps-1)
}

// unpack maps unconstrained optimiser coordinates onto stationary AR coefficients.
func (m *Model) unpack(x []float64) (ar, sar []float64) {
	p := m.Order.P
	if len(x) < p+m.Order.SP {
		return make([]float64, p), make([]float64, m.Order.SP)
	}
	return constrainStationary(x[:p]), constrainStationary(x[p : p+m.Order.SP])
}

// constrainStationary is the Monahan (1984) map from R^n onto the stationary region.
func constrainStationary(x []float64) []float64 {
	n := len(x)
	if n == 0 {
		return []float64{}
	}
	prev := make([]float64, n)
	cur := make([]float64, n)
	for k := 0; k < n; k++ {
		r := x[k] / math.Sqrt(1+x[k]*x[k])
		for i := 0; i < k; i++ {
			cur[i] = prev[i] + r*prev[k-i-1]
		}
		cur[k] = r
		copy(prev, cur)
	}
	return cur
}

// startParams seeds the first non-seasonal and the first seasonal coefficient with the lag-1 and
// lag-S autocorrelations of w. With the remaining coordinates at zero the Monahan map returns
// exactly those values.
func startParams(w []float64, order entity.Order) []float64 {
	x0 := make([]float64, order.P+order.SP)
	if order.P > 0 {
		x0[0] = unconstrain(lagCorrelation(w, 1))
	}
	if order.SP > 0 {
		x0[order.P] = unconstrain(lagCorrelation(w, order.S))
	}
	return x0
}

func lagCorrelation(w []float64, lag int) float64 {
	if lag <= 0 || len(w)-lag < 3 {
		return 0
	}
	r := stat.Correlation(w[lag:], w[:len(w)-lag], nil)
	if math.IsNaN(r) {
		return 0
	}
	return math.Max(-stationaryCap, math.Min(stationaryCap, r))
}

func unconstrain(r float64) float64 {
	return r / math.Sqrt(1-r*r)
}

// differencingPoly returns the coefficients of (1-B)^d (1-B^S)^D.
func differencingPoly(order entity.Order) []float64 {
	poly := []float64{1}
	for i := 0; i < order.D; i++ {
		poly = polyMul(poly, []float64{1, -1})
	}
	if order.SD > 0 {
		seasonal := make([]float64, order.S+1)
		seasonal[0], seasonal[order.S] = 1, -1
		for i := 0; i < order.SD; i++ {
			poly = polyMul(poly, seasonal)
		}
	}
	return poly
}

// arPolynomial returns the coefficients of (1 - Σφ_i B^i)(1 - ΣΦ_j B^{jS}).
func arPolynomial(ar, sar []float64, period int) []float64 {
	nonSeasonal := make([]float64, len(ar)+1)
	nonSeasonal[0] = 1
	for i, c := range ar {
		nonSeasonal[i+1] = -c
	}
	seasonal := make([]float64, len(sar)*period+1)
	seasonal[0] = 1
	for j, c := range sar {
		seasonal[(j+1)*period] = -c
	}
	return polyMul(nonSeasonal, seasonal)
}

func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		if x == 0 {
			continue
		}
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

// applyPoly filters values with poly, dropping positions where the filter is undefined.
func applyPoly(poly, values []float64) []float64 {
	burn := len(poly) - 1
	if len(values) <= burn {
		return []float64{}
	}
	out := make([]float64, len(values)-burn)
	for t := burn; t < len(values); t++ {
		out[t-burn] = dot(poly, values, t)
	}
	return out
}

// dot returns Σ_k poly[k]*values[t-k].
func dot(poly, values []float64, t int) float64 {
	v := 0.0
	for k, c := range poly {
		v += c * values[t-k]
	}
	return v
}

// conditionalSS sums squared innovations of w under arPoly, with pre-sample w at zero.
func conditionalSS(w, arPoly []float64) float64 {
	css := 0.0
	for t := range w {
		e := w[t]
		for k := 1; k < len(arPoly) && k <= t; k++ {
			e += arPoly[k] * w[t-k]
		}
		css += e * e
	}
	return css
}

func concentratedLogLik(w, arPoly []float64) float64 {
	n := float64(len(w))
	sigma2 := conditionalSS(w, arPoly) / n
	return -n / 2 * (math.Log(2*math.Pi*sigma2) + 1)
}
