package models

import "time"

type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	Quantity    int64     `json:"quantity"`
	QRCode      string    `json:"qr_code"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemFilter описывает параметры поиска по складу.
type ItemFilter struct {
	Text     string
	Location string
	Category string
}
