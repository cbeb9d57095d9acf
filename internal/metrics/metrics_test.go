package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCounters(t *testing.T) {
	Register()

	before := testutil.ToFloat64(itemsCreated)
	IncItemsCreated()
	assert.Equal(t, before+1, testutil.ToFloat64(itemsCreated))

	beforeStock := testutil.ToFloat64(stockChanges.WithLabelValues("check_in"))
	IncStockChange("check_in")
	assert.Equal(t, beforeStock+1, testutil.ToFloat64(stockChanges.WithLabelValues("check_in")))

	beforeRows := testutil.ToFloat64(importRows.WithLabelValues("added"))
	AddImportRows("added", 5)
	assert.Equal(t, beforeRows+5, testutil.ToFloat64(importRows.WithLabelValues("added")))

	beforeBackup := testutil.ToFloat64(backupRuns.WithLabelValues("ok"))
	IncBackup("ok")
	assert.Equal(t, beforeBackup+1, testutil.ToFloat64(backupRuns.WithLabelValues("ok")))

	beforeHTTP := testutil.ToFloat64(httpRequests.WithLabelValues("/api/v1/items"))
	IncHTTP("/api/v1/items")
	assert.Equal(t, beforeHTTP+1, testutil.ToFloat64(httpRequests.WithLabelValues("/api/v1/items")))
}
