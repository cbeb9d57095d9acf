package models

import "time"

type Transaction struct {
	ID        int64     `json:"id"`
	ItemID    string    `json:"item_id"`
	Action    string    `json:"action"` // added, check_in, check_out
	Quantity  int64     `json:"quantity"`
	Location  string    `json:"location"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityEntry — строка ленты последних операций, уже с именем позиции.
type ActivityEntry struct {
	ItemName  string    `json:"item_name"`
	Action    string    `json:"action"`
	Quantity  int64     `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}
