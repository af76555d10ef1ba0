package database

import (
	"encoding/json"
	"fmt"

	"github.com/TobiSchelling/TradeCheck/internal/verify"
)

// InsertValidation records a validation result. Returns the row ID.
func (db *DB) InsertValidation(res *verify.Result) (int64, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return 0, fmt.Errorf("encoding validation: %w", err)
	}

	var company *string
	if res.Seller != nil {
		company = &res.Seller.CompanyName
	}
	var score *float64
	if res.Categories != nil {
		score = &res.Categories.Score
	}

	result, err := db.conn.Exec(
		`INSERT INTO validations (seller_identifier, status, message, company_name, match_count, non_match_count, category_score, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.SellerID, string(res.Status), res.Message, company,
		len(res.Matches), len(res.NonMatches), score, string(data),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting validation: %w", err)
	}
	return result.LastInsertId()
}

// RecentValidations returns the newest validations first, at most limit.
func (db *DB) RecentValidations(limit int) ([]Validation, error) {
	rows, err := db.conn.Query(
		`SELECT id, seller_identifier, status, message, company_name, match_count, non_match_count, category_score, result, validated_at
		FROM validations ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Validation
	for rows.Next() {
		var v Validation
		if err := rows.Scan(&v.ID, &v.SellerID, &v.Status, &v.Message, &v.CompanyName,
			&v.MatchCount, &v.NonMatchCount, &v.CategoryScore, &v.Result, &v.ValidatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM calls", &s.TotalCalls},
		{"SELECT COUNT(DISTINCT state) FROM calls WHERE state != ''", &s.States},
		{"SELECT COUNT(DISTINCT category) FROM calls WHERE category != ''", &s.Categories},
		{"SELECT COUNT(*) FROM validations", &s.TotalValidations},
		{"SELECT COUNT(*) FROM validations WHERE status = 'verified'", &s.VerifiedSellers},
		{"SELECT COUNT(*) FROM validations WHERE status = 'partial'", &s.PartialSellers},
		{"SELECT COUNT(*) FROM validations WHERE status = 'unverified'", &s.UnverifiedSellers},
		{"SELECT COUNT(*) FROM validations WHERE status = 'error'", &s.FailedValidations},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}
