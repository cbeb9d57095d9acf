package models

// Stats агрегированная сводка по базе.
type Stats struct {
	ItemCount        int64           `json:"item_count"`
	TransactionCount int64           `json:"transaction_count"`
	TotalQuantity    int64           `json:"total_quantity"`
	LocationCount    int64           `json:"location_count"`
	CategoryCount    int64           `json:"category_count"`
	StoreSizeBytes   int64           `json:"store_size_bytes"`
	RecentActivity   []ActivityEntry `json:"recent_activity"`
}

// ImportResult итог пакетной загрузки: сколько добавлено и список ошибок
// по строкам. Errors обрезан до MaxImportErrors, ErrorCount хранит полное число.
type ImportResult struct {
	Added      int      `json:"added"`
	ErrorCount int      `json:"error_count"`
	Errors     []string `json:"errors"`
}
