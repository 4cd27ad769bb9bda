package entity

import "time"

// Discrepancy una diferencia encontrada al recalcular la cadena.
type Discrepancy struct {
	SequenceNumber int64  `json:"sequence_number"`
	EntryID        string `json:"entry_id,omitempty"`
	Field          string `json:"field"`
	Expected       string `json:"expected"`
	Actual         string `json:"actual"`
}

// IntegrityReport resultado de verificar la cadena de un producto. Valid == len(Errors) == 0.
type IntegrityReport struct {
	ProductID      string
	ProductName    string
	Valid          bool
	Message        string
	Errors         []Discrepancy
	EntriesChecked int
	VerifiedAt     time.Time
}
