// Package calls turns raw call transcripts into stored insight records.
package calls

import (
	"time"

	"github.com/google/uuid"

	"github.com/TobiSchelling/TradeCheck/internal/extract"
)

// Transcript is a call as received, before any processing.
type Transcript struct {
	Text       string
	Metadata   Metadata
	ReceivedAt time.Time
}

// Record is the persisted result of processing one call. Records are
// append-only.
type Record struct {
	ID         string           `json:"id"`
	Metadata   Metadata         `json:"metadata"`
	Transcript string           `json:"transcript"`
	Extracted  extract.Entities `json:"extracted"`
	Derived    extract.Derived  `json:"derived"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Process extracts entities from a transcript and builds its record. It
// does not persist anything.
func Process(t Transcript) Record {
	ents := extract.Extract(t.Text)
	created := t.ReceivedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return Record{
		ID:         uuid.New().String(),
		Metadata:   t.Metadata,
		Transcript: t.Text,
		Extracted:  ents,
		Derived:    extract.Derive(ents),
		CreatedAt:  created,
	}
}
