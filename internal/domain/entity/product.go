package entity

import "time"

// Product representa un producto del inventario de cocina cuyo stock lleva el libro.
type Product struct {
	ID          string
	SKU         string
	Name        string
	UnitMeasure string // kg, l, und...
	CreatedAt   time.Time
}
