// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

// Package store keeps parsed election results in DuckDB so that history and
// totals can be queried without re-reading the source tables.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jcodagnone/izbori/elections"
)

// ResultRepository defines the interface for database operations.
type ResultRepository interface {
	// CreateSchema creates the database schema.
	CreateSchema() error
	// SaveResults replaces the results of an election at a granularity.
	SaveResults(electionID string, g elections.Granularity, records []*elections.Record) error
	// Imported lists the election ids stored at a granularity.
	Imported(g elections.Granularity) ([]string, error)
	// History returns the stored results of a region, oldest election first.
	History(g elections.Granularity, regionID string) ([]HistoryRow, error)
	// PartyTotals ranks the parties of an election over every stored region.
	PartyTotals(electionID string, g elections.Granularity) ([]elections.RankedParty, error)
}

// HistoryRow is the result of a region in one election.
type HistoryRow struct {
	ElectionID string            `json:"electionId"`
	Record     *elections.Record `json:"result"`
}

type sqlResultRepository struct {
	db *sql.DB
}

// NewResultRepository creates a repository over db.
func NewResultRepository(db *sql.DB) ResultRepository {
	return &sqlResultRepository{db: db}
}

func (r *sqlResultRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS results (
			election_id VARCHAR NOT NULL,
			granularity VARCHAR NOT NULL,
			region_id VARCHAR NOT NULL,
			name VARCHAR,
			total_votes BIGINT NOT NULL,
			eligible_voters BIGINT,
			turnout DOUBLE NOT NULL,
			PRIMARY KEY (election_id, granularity, region_id)
		);

		CREATE TABLE IF NOT EXISTS party_votes (
			election_id VARCHAR NOT NULL,
			granularity VARCHAR NOT NULL,
			region_id VARCHAR NOT NULL,
			position INTEGER NOT NULL,
			party VARCHAR NOT NULL,
			votes BIGINT NOT NULL
		);
	`)

	return err
}

func nz(v int64) any {
	if v == 0 {
		return nil
	}

	return v
}

func (r *sqlResultRepository) SaveResults(electionID string, g elections.Granularity, records []*elections.Record) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction for %s: %w", electionID, err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Printf("failed to rollback transaction for %s: %v", electionID, err)
		}
	}()

	for _, table := range []string{"results", "party_votes"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE election_id = ? AND granularity = ?", electionID, g.String()); err != nil {
			return fmt.Errorf("deleting %s for %s: %w", table, electionID, err)
		}
	}

	resultStmt, err := tx.Prepare(`
		INSERT INTO results (election_id, granularity, region_id, name, total_votes, eligible_voters, turnout)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer resultStmt.Close()

	partyStmt, err := tx.Prepare(`
		INSERT INTO party_votes (election_id, granularity, region_id, position, party, votes)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer partyStmt.Close()

	for _, rec := range records {
		var name sql.NullString
		if rec.Name != "" {
			name = sql.NullString{String: rec.Name, Valid: true}
		}

		if _, err := resultStmt.Exec(
			electionID, g.String(), rec.ID, name,
			rec.TotalVotes, nz(rec.EligibleVoters), rec.Turnout,
		); err != nil {
			return fmt.Errorf("inserting %s for %s: %w", rec.ID, electionID, err)
		}

		position := 0

		var partyErr error

		rec.PartyVotes.Each(func(party string, votes int64) {
			if partyErr != nil {
				return
			}

			_, partyErr = partyStmt.Exec(electionID, g.String(), rec.ID, position, party, votes)
			position++
		})

		if partyErr != nil {
			return fmt.Errorf("inserting votes of %s for %s: %w", rec.ID, electionID, partyErr)
		}
	}

	return tx.Commit()
}

func (r *sqlResultRepository) Imported(g elections.Granularity) ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT election_id FROM results WHERE granularity = ? ORDER BY election_id", g.String())
	if err != nil {
		return nil, fmt.Errorf("querying imported elections: %w", err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning imported election: %w", err)
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *sqlResultRepository) History(g elections.Granularity, regionID string) ([]HistoryRow, error) {
	if g == elections.Settlement {
		regionID = elections.NormalizeEkatte(regionID)
	}

	rows, err := r.db.Query(`
		SELECT r.election_id, r.region_id, r.name, r.total_votes, r.eligible_voters, r.turnout, p.party, p.votes
		FROM results r
		LEFT JOIN party_votes p
			ON p.election_id = r.election_id AND p.granularity = r.granularity AND p.region_id = r.region_id
		WHERE r.granularity = ? AND (r.region_id = ? OR r.name = ?)
		ORDER BY r.election_id, r.region_id, p.position
	`, g.String(), regionID, regionID)
	if err != nil {
		return nil, fmt.Errorf("querying history of %s: %w", regionID, err)
	}
	defer rows.Close()

	var history []HistoryRow

	for rows.Next() {
		var (
			electionID, id string
			name, party    sql.NullString
			eligible       sql.NullInt64
			votes          sql.NullInt64
			rec            elections.Record
		)

		if err := rows.Scan(&electionID, &id, &name, &rec.TotalVotes, &eligible, &rec.Turnout, &party, &votes); err != nil {
			return nil, fmt.Errorf("scanning history of %s: %w", regionID, err)
		}

		n := len(history)
		if n == 0 || history[n-1].ElectionID != electionID || history[n-1].Record.ID != id {
			rec.ID = id
			rec.Key = elections.RegionKey{Level: g, ID: id}
			rec.Name = name.String
			rec.EligibleVoters = eligible.Int64
			rec.PartyVotes = elections.NewPartyVotes()
			history = append(history, HistoryRow{ElectionID: electionID, Record: &rec})
			n++
		}

		if party.Valid {
			history[n-1].Record.PartyVotes.Add(party.String, votes.Int64)
		}
	}

	return history, rows.Err()
}

func (r *sqlResultRepository) PartyTotals(electionID string, g elections.Granularity) ([]elections.RankedParty, error) {
	var total sql.NullInt64

	err := r.db.QueryRow(
		"SELECT SUM(total_votes)::BIGINT FROM results WHERE election_id = ? AND granularity = ?",
		electionID, g.String(),
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("summing votes of %s: %w", electionID, err)
	}

	rows, err := r.db.Query(`
		SELECT party, SUM(votes)::BIGINT AS votes
		FROM party_votes
		WHERE election_id = ? AND granularity = ?
		GROUP BY party
		ORDER BY MIN(region_id), MIN(position)
	`, electionID, g.String())
	if err != nil {
		return nil, fmt.Errorf("querying party totals of %s: %w", electionID, err)
	}
	defer rows.Close()

	pv := elections.NewPartyVotes()

	for rows.Next() {
		var (
			party string
			votes int64
		)

		if err := rows.Scan(&party, &votes); err != nil {
			return nil, fmt.Errorf("scanning party totals of %s: %w", electionID, err)
		}

		pv.Add(party, votes)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return elections.Rank(pv, total.Int64), nil
}
