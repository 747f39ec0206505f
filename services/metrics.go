package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tradeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stampxl",
		Name:      "trade_operations_total",
		Help:      "Trade engine operations by outcome",
	}, []string{"op", "result"})

	badgeClaims = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stampxl",
		Name:      "badge_claims_total",
		Help:      "Badge claim attempts by outcome",
	}, []string{"result"})
)

// resultLabel maps an operation error onto a low-cardinality label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStaleTrade):
		return "stale"
	case errors.Is(err, ErrTooManyRequests):
		return "rate_limited"
	default:
		return "error"
	}
}
