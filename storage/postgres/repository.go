// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/pairfinder/core"
	"github.com/poiesic/pairfinder/storage"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultTable is the corpus table used by the original deployment.
const DefaultTable = "trans_agent"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// updatableColumns are written by UpdatePairs. id and created_at are immutable.
var updatableColumns = []string{
	"gl_number", "row_number", "version", "effective_date",
	"english_text", "chinese_text", "english_embedding", "chinese_embedding",
}

// Repository implements storage.PairRepository on PostgreSQL + pgvector.
type Repository struct {
	db          *gorm.DB
	table       string
	dsn         string
	autoMigrate bool
	logger      *slog.Logger
}

var _ storage.PairRepository = (*Repository)(nil)

// Option configures a Repository.
type Option func(*Repository) error

// WithTable routes all queries to the named table.
func WithTable(name string) Option {
	return func(r *Repository) error {
		if !tableNamePattern.MatchString(name) {
			return fmt.Errorf("%w: invalid table name %q", storage.ErrInvalidQuery, name)
		}
		r.table = name
		return nil
	}
}

// WithAutoMigrate creates the vector extension and the table if missing.
func WithAutoMigrate() Option {
	return func(r *Repository) error {
		r.autoMigrate = true
		return nil
	}
}

// WithLogger sets a custom logger for the repository.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) error {
		r.logger = l
		return nil
	}
}

// Open connects to the database named by dsn.
func Open(dsn string, opts ...Option) (*Repository, error) {
	repo := &Repository{
		table:  DefaultTable,
		dsn:    dsn,
		logger: slog.Default().With("component", "postgres"),
	}
	for _, opt := range opts {
		if err := opt(repo); err != nil {
			return nil, err
		}
	}

	// Connections are made on first use so an unreachable server surfaces
	// through Ping and per-request errors rather than at startup.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	repo.db = db

	if repo.autoMigrate {
		if err := repo.migrate(); err != nil {
			repo.Close()
			return nil, err
		}
	}

	repo.logger.Debug("connected", "store", repo.Describe())
	return repo, nil
}

func (r *Repository) migrate() error {
	if err := r.db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("enable pgvector: %w", err)
	}
	if err := r.db.Table(r.table).AutoMigrate(&pairRow{}); err != nil {
		return fmt.Errorf("migrate %s: %w", r.table, err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Describe returns the database host and table, without credentials.
func (r *Repository) Describe() string {
	return fmt.Sprintf("postgres %s table %s", SanitizeDSN(r.dsn), r.table)
}

// Ping checks the connection with a round trip to the server.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// NearestPairs ranks rows with a populated column by cosine distance in the database.
// Rows whose vector has a different dimension or zero norm have no defined
// distance to the query and are filtered out.
func (r *Repository) NearestPairs(ctx context.Context, vector []float32, column core.Column, limit int) ([]core.RankedID, error) {
	query, err := nearestQuery(r.table, column)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}

	var rows []rankedRow
	err = r.db.WithContext(ctx).Raw(query, pgvector.NewVector(vector), len(vector), limit).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	ranked := make([]core.RankedID, 0, len(rows))
	for _, row := range rows {
		ranked = append(ranked, core.RankedID{Id: core.ID(row.ID), Distance: row.Distance})
	}
	return ranked, nil
}

// nearestQuery builds the ranking statement for a whitelisted column.
func nearestQuery(table string, column core.Column) (string, error) {
	if !column.Valid() {
		return "", fmt.Errorf("%w: unknown column %q", storage.ErrInvalidQuery, column)
	}
	if !tableNamePattern.MatchString(table) {
		return "", fmt.Errorf("%w: invalid table name %q", storage.ErrInvalidQuery, table)
	}
	return fmt.Sprintf(
		"SELECT id, %[2]s <=> ? AS distance FROM %[1]s"+
			" WHERE %[2]s IS NOT NULL AND vector_dims(%[2]s) = ? AND vector_norm(%[2]s) > 0"+
			" ORDER BY distance ASC, id ASC LIMIT ?",
		table, column,
	), nil
}

// GetPair retrieves a single pair by ID.
func (r *Repository) GetPair(ctx context.Context, id core.ID) (*core.TranslationPair, error) {
	var row pairRow
	err := r.db.WithContext(ctx).Table(r.table).Where("id = ?", int64(id)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toPair(&row), nil
}

// GetPairs retrieves multiple pairs by their IDs, preserving the requested order.
func (r *Repository) GetPairs(ctx context.Context, ids ...core.ID) ([]*core.TranslationPair, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}

	var rows []pairRow
	if err := r.db.WithContext(ctx).Table(r.table).Where("id IN ?", raw).Find(&rows).Error; err != nil {
		return nil, err
	}

	byID := make(map[core.ID]*pairRow, len(rows))
	for i := range rows {
		byID[core.ID(rows[i].ID)] = &rows[i]
	}
	result := make([]*core.TranslationPair, 0, len(rows))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			result = append(result, toPair(row))
		}
	}
	return result, nil
}

// AddPairs inserts pairs whose texts are not already present in the table.
func (r *Repository) AddPairs(ctx context.Context, pairs ...*core.TranslationPair) ([]*core.TranslationPair, error) {
	var added []*core.TranslationPair
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, pair := range pairs {
			if err := core.ValidatePair(pair); err != nil {
				return err
			}

			var existing int64
			err := tx.Table(r.table).
				Where("english_text = ? AND chinese_text = ?", pair.EnglishText, pair.ChineseText).
				Count(&existing).Error
			if err != nil {
				return err
			}
			if existing > 0 {
				continue
			}

			row := fromPair(pair)
			row.ID = 0
			if err := tx.Table(r.table).Create(row).Error; err != nil {
				return err
			}
			pair.Id = core.ID(row.ID)
			pair.CreatedAt = row.CreatedAt
			added = append(added, pair)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// UpdatePairs rewrites the mutable columns of existing rows.
func (r *Repository) UpdatePairs(ctx context.Context, pairs ...*core.TranslationPair) ([]*core.TranslationPair, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, pair := range pairs {
			if err := core.ValidatePair(pair); err != nil {
				return err
			}
			res := tx.Table(r.table).
				Where("id = ?", int64(pair.Id)).
				Select(updatableColumns).
				Updates(fromPair(pair))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: pair %d", storage.ErrNotFound, pair.Id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

// ListPairs returns up to limit pairs with Id > afterID in ascending id order.
func (r *Repository) ListPairs(ctx context.Context, afterID core.ID, limit int) ([]*core.TranslationPair, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}

	var rows []pairRow
	err := r.db.WithContext(ctx).Table(r.table).
		Where("id > ?", int64(afterID)).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]*core.TranslationPair, len(rows))
	for i := range rows {
		result[i] = toPair(&rows[i])
	}
	return result, nil
}

// CountPairs returns the number of rows in the table.
func (r *Repository) CountPairs(ctx context.Context) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Table(r.table).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// SanitizeDSN strips credentials from a connection string, keeping what
// follows the last '@'. A DSN without credentials is reported as "configured".
func SanitizeDSN(dsn string) string {
	if i := strings.LastIndex(dsn, "@"); i >= 0 {
		return dsn[i+1:]
	}
	if dsn == "" {
		return "not configured"
	}
	return "configured"
}
