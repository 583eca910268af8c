package wordstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumeolabs/lexilens/internal/wordstore"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) wordstore.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) InsertWord(ctx context.Context, input wordstore.InsertWordInput) (int64, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO translations (word, translation, anglosax, picture, timestamp, language)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		input.Word, input.Translation, input.Romanization, input.PictureBase64, input.Timestamp, input.LanguageCode)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *PostgresRepository) ListWords(ctx context.Context) ([]wordstore.WordRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, word, translation, anglosax, picture, timestamp, language
		 FROM translations ORDER BY timestamp ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	return scanWords(rows)
}

func (r *PostgresRepository) ListWordsByDay(ctx context.Context, day time.Time) ([]wordstore.WordRecord, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	rows, err := r.pool.Query(ctx,
		`SELECT id, word, translation, anglosax, picture, timestamp, language
		 FROM translations WHERE timestamp >= $1 AND timestamp < $2
		 ORDER BY timestamp ASC, id ASC`,
		dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	return scanWords(rows)
}

func scanWords(rows pgx.Rows) ([]wordstore.WordRecord, error) {
	defer rows.Close()
	var list []wordstore.WordRecord
	for rows.Next() {
		var rec wordstore.WordRecord
		err := rows.Scan(&rec.ID, &rec.Word, &rec.Translation, &rec.Romanization,
			&rec.PictureBase64, &rec.Timestamp, &rec.LanguageCode)
		if err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) InsertLocation(ctx context.Context, input wordstore.InsertLocationInput) (int64, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO locations (place, translation, anglosax, timestamp)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		input.PlaceName, input.Translation, input.Romanization, input.Timestamp)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *PostgresRepository) ListLocations(ctx context.Context) ([]wordstore.LocationRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, place, translation, anglosax, timestamp
		 FROM locations ORDER BY timestamp ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []wordstore.LocationRecord
	for rows.Next() {
		var rec wordstore.LocationRecord
		if err := rows.Scan(&rec.ID, &rec.PlaceName, &rec.Translation, &rec.Romanization, &rec.Timestamp); err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}
