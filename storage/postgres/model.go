package postgres

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/pairfinder/core"
)

// pairRow is the GORM model of a trans_agent row. Table routing is done via
// .Table(name) at the call site so one struct serves any configured table.
type pairRow struct {
	ID               int64            `gorm:"column:id;primaryKey;autoIncrement"`
	GLNumber         *string          `gorm:"column:gl_number"`
	RowNumber        *string          `gorm:"column:row_number"`
	Version          *string          `gorm:"column:version"`
	EffectiveDate    *string          `gorm:"column:effective_date"`
	EnglishText      string           `gorm:"column:english_text;not null"`
	ChineseText      string           `gorm:"column:chinese_text;not null"`
	EnglishEmbedding *pgvector.Vector `gorm:"column:english_embedding;type:vector"`
	ChineseEmbedding *pgvector.Vector `gorm:"column:chinese_embedding;type:vector"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
}

// rankedRow receives one row of a nearest-neighbour query.
type rankedRow struct {
	ID       int64   `gorm:"column:id"`
	Distance float64 `gorm:"column:distance"`
}

func toPair(row *pairRow) *core.TranslationPair {
	pair := &core.TranslationPair{
		Id:            core.ID(row.ID),
		GLNumber:      deref(row.GLNumber),
		RowNumber:     deref(row.RowNumber),
		Version:       deref(row.Version),
		EffectiveDate: deref(row.EffectiveDate),
		EnglishText:   row.EnglishText,
		ChineseText:   row.ChineseText,
		CreatedAt:     row.CreatedAt,
	}
	if row.EnglishEmbedding != nil {
		pair.EnglishEmbedding = row.EnglishEmbedding.Slice()
	}
	if row.ChineseEmbedding != nil {
		pair.ChineseEmbedding = row.ChineseEmbedding.Slice()
	}
	return pair
}

func fromPair(pair *core.TranslationPair) *pairRow {
	row := &pairRow{
		ID:            int64(pair.Id),
		GLNumber:      optional(pair.GLNumber),
		RowNumber:     optional(pair.RowNumber),
		Version:       optional(pair.Version),
		EffectiveDate: optional(pair.EffectiveDate),
		EnglishText:   pair.EnglishText,
		ChineseText:   pair.ChineseText,
		CreatedAt:     pair.CreatedAt,
	}
	if pair.EnglishEmbedding != nil {
		v := pgvector.NewVector(pair.EnglishEmbedding)
		row.EnglishEmbedding = &v
	}
	if pair.ChineseEmbedding != nil {
		v := pgvector.NewVector(pair.ChineseEmbedding)
		row.ChineseEmbedding = &v
	}
	return row
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
