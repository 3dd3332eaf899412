package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSignupsTotal_CountsByCode(t *testing.T) {
	before := testutil.ToFloat64(SignupsTotal.WithLabelValues("ok"))
	SignupsTotal.WithLabelValues("ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(SignupsTotal.WithLabelValues("ok")))
}

func TestResult(t *testing.T) {
	assert.Equal(t, "allowed", Result(true))
	assert.Equal(t, "denied", Result(false))
}
