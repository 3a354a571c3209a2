// Package store persists observations between runs so that an interrupted scrape keeps
// every track it completed.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"spotify-charts/internal/chart"
	"spotify-charts/internal/components/assert"
	"spotify-charts/internal/components/chrono"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Config picks the database, a local sqlite file or a remote libsql database.
type Config struct {
	File string `json:"file"`
	// Url is a libsql:// or https:// url, it takes precedence over File.
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (c Config) Enabled() bool {
	return c.File != "" || c.Url != ""
}

// OpenDB opens the configured database and makes sure the schema exists.
func (c Config) OpenDB() (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch {
	case c.Url != "":
		url := c.Url
		if c.AuthToken != "" {
			sep := "?"
			if strings.Contains(url, "?") {
				sep = "&"
			}
			url += sep + "authToken=" + c.AuthToken
		}
		db, err = sql.Open("libsql", url)
		if err != nil {
			return nil, err
		}
	case c.File != "":
		db, err = openSqlite(c.File)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("neither a database file nor a url was specified")
	}

	_, err = db.Exec(Schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

func openSqlite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		_, statErr := os.Stat(path)
		if os.IsNotExist(statErr) {
			f, err := os.Create(path)
			if err != nil {
				return nil, err
			}
			f.Close()
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer at a time
	db.SetMaxOpenConns(1)
	if path != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

type Store struct {
	db   *sql.DB
	time chrono.API
}

func New(db *sql.DB, time chrono.API) Store {
	assert.NotNil(db)
	assert.NotNil(time)
	return Store{db: db, time: time}
}

func (s Store) Close() error {
	return s.db.Close()
}

func nullInt64[T int | int64](v *T) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// Upsert writes the observations in a single transaction, an existing observation with
// the same key is replaced.
func (s Store) Upsert(ctx context.Context, obs []chart.Observation) error {
	if len(obs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		insert into Observation(trackId, region, date, view, title, artist, rank, streams, updatedAt)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?)
		on conflict (trackId, region, date, view) do update set
			title = excluded.title,
			artist = excluded.artist,
			rank = excluded.rank,
			streams = excluded.streams,
			updatedAt = excluded.updatedAt`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := s.time.Now().Unix()
	for _, o := range obs {
		_, err = stmt.ExecContext(
			ctx,
			o.TrackID,
			o.Region,
			o.Date.String(),
			o.View.String(),
			o.Title,
			o.Artist,
			nullInt64(o.Rank),
			nullInt64(o.Streams),
			now,
		)
		if err != nil {
			return fmt.Errorf("upsert %s %s %s %s: %w", o.TrackID, o.Region, o.Date, o.View, err)
		}
	}

	return tx.Commit()
}

// Load returns every stored observation, restricted to the given tracks when any are
// given.
func (s Store) Load(ctx context.Context, trackIDs ...string) ([]chart.Observation, error) {
	query := "select trackId, region, date, view, title, artist, rank, streams from Observation"
	var args []any
	if len(trackIDs) > 0 {
		query += " where trackId in (" + strings.TrimSuffix(strings.Repeat("?,", len(trackIDs)), ",") + ")"
		for _, id := range trackIDs {
			args = append(args, id)
		}
	}
	query += " order by trackId, region, view, date"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chart.Observation
	for rows.Next() {
		var (
			o       chart.Observation
			date    string
			view    string
			rank    sql.NullInt64
			streams sql.NullInt64
		)
		err = rows.Scan(&o.TrackID, &o.Region, &date, &view, &o.Title, &o.Artist, &rank, &streams)
		if err != nil {
			return nil, err
		}
		o.Date, err = chart.ParseISODate(date)
		if err != nil {
			return nil, fmt.Errorf("stored date '%s': %w", date, err)
		}
		o.View, err = chart.ParseView(view)
		if err != nil {
			return nil, err
		}
		if rank.Valid {
			o.Rank = chart.IntPtr(int(rank.Int64))
		}
		if streams.Valid {
			o.Streams = chart.Int64Ptr(streams.Int64)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// FetchRecord is the outcome of the last fetch of a (track, view) pair.
type FetchRecord struct {
	TrackID      string
	View         chart.View
	Status       int
	Err          string
	Observations int
}

func (r FetchRecord) OK() bool {
	return r.Err == ""
}

// RecordFetch remembers the outcome of a fetch, replacing the previous one.
func (s Store) RecordFetch(ctx context.Context, record FetchRecord) error {
	var errText sql.NullString
	if record.Err != "" {
		errText = sql.NullString{String: record.Err, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		insert into FetchLog(trackId, view, status, error, observations, fetchedAt)
		values (?, ?, ?, ?, ?, ?)
		on conflict (trackId, view) do update set
			status = excluded.status,
			error = excluded.error,
			observations = excluded.observations,
			fetchedAt = excluded.fetchedAt`,
		record.TrackID,
		record.View.String(),
		record.Status,
		errText,
		record.Observations,
		s.time.Now().Unix(),
	)
	return err
}

// Completed returns the tracks whose last fetch succeeded for every one of `views`.
func (s Store) Completed(ctx context.Context, views []chart.View) ([]string, error) {
	if len(views) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(views)+1)
	for _, v := range views {
		args = append(args, v.String())
	}
	args = append(args, len(views))

	rows, err := s.db.QueryContext(ctx, `
		select trackId from FetchLog
		where error is null and view in (`+strings.TrimSuffix(strings.Repeat("?,", len(views)), ",")+`)
		group by trackId
		having count(distinct view) = ?
		order by trackId`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
