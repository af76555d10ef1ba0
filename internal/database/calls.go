package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TobiSchelling/TradeCheck/internal/calls"
)

var _ calls.Store = (*DB)(nil)

// AppendCall stores a call record. The insert is a single statement, so a
// concurrent ListCalls sees either the whole record or nothing.
func (db *DB) AppendCall(rec calls.Record) error {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	extracted, err := json.Marshal(rec.Extracted)
	if err != nil {
		return fmt.Errorf("encoding entities: %w", err)
	}
	derived, err := json.Marshal(rec.Derived)
	if err != nil {
		return fmt.Errorf("encoding derived values: %w", err)
	}

	_, err = db.conn.Exec(
		`INSERT INTO calls (id, seller_identifier, city, state, category, metadata, transcript, extracted, derived, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Metadata.SellerID, rec.Metadata.City, rec.Metadata.State, rec.Metadata.Category,
		string(metadata), rec.Transcript, string(extracted), string(derived),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting call %s: %w", rec.ID, err)
	}
	return nil
}

// ListCalls returns every call in insertion order.
func (db *DB) ListCalls() ([]calls.Record, error) {
	rows, err := db.conn.Query(
		`SELECT id, metadata, transcript, extracted, derived, created_at FROM calls ORDER BY seq`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []calls.Record{}
	for rows.Next() {
		rec, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// GetCall returns a call by ID, or nil if it does not exist.
func (db *DB) GetCall(id string) (*calls.Record, error) {
	row := db.conn.QueryRow(
		`SELECT id, metadata, transcript, extracted, derived, created_at FROM calls WHERE id = ?`, id,
	)
	rec, err := scanCall(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCall(s scanner) (*calls.Record, error) {
	var (
		rec                          calls.Record
		metadata, extracted, derived string
		createdAt                    string
	)
	if err := s.Scan(&rec.ID, &metadata, &rec.Transcript, &extracted, &derived, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metadata), &rec.Metadata); err != nil {
		return nil, fmt.Errorf("decoding metadata of call %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(extracted), &rec.Extracted); err != nil {
		return nil, fmt.Errorf("decoding entities of call %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(derived), &rec.Derived); err != nil {
		return nil, fmt.Errorf("decoding derived values of call %s: %w", rec.ID, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		rec.CreatedAt = t
	}
	return &rec, nil
}
