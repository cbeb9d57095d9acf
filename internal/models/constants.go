package models

const (
	ActionAdded    = "added"
	ActionCheckIn  = "check_in"
	ActionCheckOut = "check_out"
)

const (
	// IDPrefix префикс инвентарных номеров
	IDPrefix = "P"

	// IDDigits количество цифр в инвентарном номере
	IDDigits = 7

	// DefaultQuantity количество по умолчанию при создании позиции
	DefaultQuantity = 1

	// RecentActivityLimit количество последних операций в статистике
	RecentActivityLimit = 10

	// MaxImportErrors максимум сообщений об ошибках в ответе импорта
	MaxImportErrors = 10
)

// ValidAction reports whether the tag is a known stock-mutation action.
func ValidAction(action string) bool {
	return action == ActionCheckIn || action == ActionCheckOut
}
