// Package sarima fits seasonal ARIMA models with fixed orders and produces dynamic point forecasts.
//
// A model (p,d,0)x(P,D,0,S) is estimated on the differenced series
//
//	w_t = (1-B)^d (1-B^S)^D y_t
//
// by maximising the Gaussian likelihood of the autoregression
//
//	(1 - φ_1 B - ... - φ_p B^p)(1 - Φ_1 B^S - ... - Φ_P B^{PS}) w_t = ε_t
//
// with the innovation variance concentrated out and pre-sample differences held at their zero mean.
// The likelihood is therefore conditional on the first observations, not the exact state-space
// likelihood a Kalman filter would give, and point forecasts differ slightly from an exact fit.
// Autoregressive polynomials are kept stationary by the Monahan transform, and the optimisation runs
// gonum's Nelder-Mead simplex, so a fit is a deterministic function of the series and the order.
package sarima
