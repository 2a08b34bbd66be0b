// Package report collapses runs of identical errors into one log line and a
// trailing count.
package report

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/evanofslack/dynaflare/internal/metrics"
)

type Reporter struct {
	log     logr.Logger
	metrics *metrics.Metrics
	group   bool

	last  string
	count int
}

// New returns a Reporter. With group false every error is logged as it comes.
func New(log logr.Logger, metrics *metrics.Metrics, group bool) *Reporter {
	return &Reporter{log: log, metrics: metrics, group: group}
}

// Report records the outcome of one cycle; nil means the cycle succeeded.
func (r *Reporter) Report(err error) {
	if !r.group {
		if err != nil {
			r.log.Error(err, "Drift check failed")
		}
		return
	}

	if err == nil {
		r.flush()
		r.last, r.count = "", 0
		return
	}

	sig := err.Error()
	if sig == r.last {
		r.count++
		r.metrics.IncSuppressedError()
		return
	}

	r.flush()
	r.log.Error(err, "Drift check failed")
	r.last, r.count = sig, 1
}

func (r *Reporter) flush() {
	if r.count > 1 {
		r.log.Error(nil, fmt.Sprintf("additional %d errors of: %s", r.count-1, r.last))
	}
}
