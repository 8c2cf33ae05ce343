package stationarity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"forecast_backend/internal/feature/forecast/domain"
	"forecast_backend/internal/feature/forecast/domain/entity"
)

// SignificanceLevel is the p-value at or below which the unit-root null is rejected.
const SignificanceLevel = 0.05

// MacKinnon (1994) approximate p-value surface, constant-only regression, one variable.
const (
	tauMaxC  = 2.74
	tauMinC  = -18.83
	tauStarC = -1.61
)

var (
	tauSmallPC = []float64{2.1659, 1.4412, 0.038269}
	tauLargePC = []float64{1.7339, 0.93202, -0.12745, -0.010368}
)

// MacKinnon (2010) critical value response surface, constant-only regression, one variable.
var tauCrit2010C = map[string][]float64{
	"1%":  {-3.43035, -6.5393, -16.786, -79.433},
	"5%":  {-2.86154, -2.8903, -4.234, -40.040},
	"10%": {-2.56677, -1.5384, -2.809, 0},
}

// Tester runs the augmented Dickey-Fuller test with a constant term and AIC lag selection.
type Tester struct {
	// MaxLag overrides the default ceil(12*(n/100)^(1/4)) lag bound when positive.
	MaxLag int
}

// NewTester returns a Tester using the default lag bound.
func NewTester() *Tester {
	return &Tester{}
}

// Test reports whether values look stationary. The null hypothesis is a unit root.
func (t *Tester) Test(values []float64) (entity.StationarityReport, error) {
	n := len(values)
	maxLag := t.MaxLag
	if maxLag <= 0 {
		maxLag = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}
	// one trend term (the constant)
	if bound := n/2 - 2; maxLag > bound {
		maxLag = bound
	}
	if n < 4 || maxLag < 0 {
		return entity.StationarityReport{}, fmt.Errorf("%w: %d observations are too few for the unit-root test", domain.ErrInsufficientData, n)
	}

	diff := Diff(values)

	// Lag selection runs every candidate on the sample common to the largest lag.
	bestLag, bestAIC := 0, math.Inf(1)
	for lag := 0; lag <= maxLag; lag++ {
		x, y := adfDesign(values, diff, maxLag, lag)
		fit, err := ols(x, y)
		if err != nil {
			continue
		}
		if fit.aic < bestAIC {
			bestAIC, bestLag = fit.aic, lag
		}
	}
	if math.IsInf(bestAIC, 1) {
		return entity.StationarityReport{}, fmt.Errorf("%w: unit-root regression is singular", domain.ErrInsufficientData)
	}

	x, y := adfDesign(values, diff, bestLag, bestLag)
	fit, err := ols(x, y)
	if err != nil {
		return entity.StationarityReport{}, fmt.Errorf("%w: %v", domain.ErrInsufficientData, err)
	}
	stat := fit.beta[1] / fit.stdErr[1]
	if math.IsNaN(stat) || math.IsInf(stat, 0) {
		return entity.StationarityReport{}, fmt.Errorf("%w: series has no residual variation", domain.ErrInsufficientData)
	}

	nobs := y.Len()
	p := MacKinnonPValue(stat)
	return entity.StationarityReport{
		Statistic:      stat,
		PValue:         p,
		LagsUsed:       bestLag,
		NObservations:  nobs,
		CriticalValues: criticalValues(nobs),
		IsStationary:   p <= SignificanceLevel,
	}, nil
}

// adfDesign builds the regression dy_t = a + b*y_{t-1} + sum_j g_j*dy_{t-j} on the rows left
// after dropping the first trim differences. Columns are [1, y_{t-1}, dy_{t-1}, ..., dy_{t-lag}].
func adfDesign(values, diff []float64, trim, lag int) (*mat.Dense, *mat.VecDense) {
	rows := len(diff) - trim
	cols := 2 + lag
	x := mat.NewDense(rows, cols, nil)
	y := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		t := i + trim // index into diff
		y.SetVec(i, diff[t])
		x.Set(i, 0, 1)
		x.Set(i, 1, values[t])
		for j := 1; j <= lag; j++ {
			x.Set(i, 1+j, diff[t-j])
		}
	}
	return x, y
}

type olsFit struct {
	beta   []float64
	stdErr []float64
	aic    float64
}

// ols solves the normal equations through a Cholesky factorisation.
func ols(x *mat.Dense, y *mat.VecDense) (olsFit, error) {
	n, k := x.Dims()
	if n <= k {
		return olsFit{}, fmt.Errorf("%d rows for %d regressors", n, k)
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return olsFit{}, fmt.Errorf("design matrix is not positive definite")
	}

	var xty, beta mat.VecDense
	xty.MulVec(x.T(), y)
	if err := chol.SolveVecTo(&beta, &xty); err != nil {
		return olsFit{}, err
	}

	var fitted, resid mat.VecDense
	fitted.MulVec(x, &beta)
	resid.SubVec(y, &fitted)
	ssr := mat.Dot(&resid, &resid)

	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return olsFit{}, err
	}
	s2 := ssr / float64(n-k)
	out := olsFit{
		beta:   make([]float64, k),
		stdErr: make([]float64, k),
	}
	for i := 0; i < k; i++ {
		out.beta[i] = beta.AtVec(i)
		out.stdErr[i] = math.Sqrt(s2 * inv.At(i, i))
	}

	nf := float64(n)
	llf := -nf / 2 * (math.Log(2*math.Pi) + math.Log(ssr/nf) + 1)
	out.aic = -2*llf + 2*float64(k)
	if math.IsNaN(out.aic) {
		out.aic = math.Inf(1)
	}
	return out, nil
}

// MacKinnonPValue returns the approximate p-value of an ADF statistic for a constant-only regression.
func MacKinnonPValue(stat float64) float64 {
	switch {
	case stat > tauMaxC:
		return 1
	case stat < tauMinC:
		return 0
	}
	coef := tauLargePC
	if stat <= tauStarC {
		coef = tauSmallPC
	}
	return distuv.UnitNormal.CDF(polyval(coef, stat))
}

func criticalValues(nobs int) map[string]float64 {
	out := make(map[string]float64, len(tauCrit2010C))
	inv := 1 / float64(nobs)
	for level, coef := range tauCrit2010C {
		out[level] = polyval(coef, inv)
	}
	return out
}

// polyval evaluates coef[0] + coef[1]*x + coef[2]*x^2 + ...
func polyval(coef []float64, x float64) float64 {
	v := 0.0
	for i := len(coef) - 1; i >= 0; i-- {
		v = v*x + coef[i]
	}
	return v
}
