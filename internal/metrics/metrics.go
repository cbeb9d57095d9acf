package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kladovka",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	itemsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kladovka",
			Name:      "items_created_total",
			Help:      "Items added to the inventory.",
		},
	)

	stockChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kladovka",
			Name:      "stock_changes_total",
			Help:      "Check-in/check-out operations by action.",
		},
		[]string{"action"},
	)

	importRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kladovka",
			Name:      "import_rows_total",
			Help:      "Bulk import rows by result.",
		},
		[]string{"result"},
	)

	backupRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kladovka",
			Name:      "backups_total",
			Help:      "Backup runs by result.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, itemsCreated, stockChanges, importRows, backupRuns)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncItemsCreated() {
	itemsCreated.Inc()
}

func IncStockChange(action string) {
	stockChanges.WithLabelValues(action).Inc()
}

func AddImportRows(result string, n int) {
	importRows.WithLabelValues(result).Add(float64(n))
}

func IncBackup(result string) {
	backupRuns.WithLabelValues(result).Inc()
}
