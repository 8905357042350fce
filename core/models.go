package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is the immutable identifier assigned to a translation pair at insertion.
type ID int64

// ContentHash is a deterministic fingerprint of a pair's two texts.
type ContentHash uint64

// HashContent fingerprints an English/Chinese text pair using BLAKE2b.
// Identical text pairs always produce identical hashes.
func HashContent(englishText, chineseText string) ContentHash {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(englishText))
	h.Write([]byte{0})
	h.Write([]byte(chineseText))
	sum := h.Sum(nil)
	return ContentHash(binary.LittleEndian.Uint64(sum))
}

// Language is one of the two scripts the corpus is written in.
type Language string

const (
	LanguageChinese Language = "chinese"
	LanguageEnglish Language = "english"
)

// Languages lists the supported languages in a stable order.
var Languages = []Language{LanguageChinese, LanguageEnglish}

// ParseLanguage converts a caller-supplied language name into a Language.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseLanguage(name string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(name))) {
	case LanguageChinese:
		return LanguageChinese, nil
	case LanguageEnglish:
		return LanguageEnglish, nil
	}
	return "", invalidInput("target_language must be %q or %q, got %q", LanguageChinese, LanguageEnglish, name)
}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return l == LanguageChinese || l == LanguageEnglish
}

// Opposite returns the other supported language.
func (l Language) Opposite() Language {
	if l == LanguageChinese {
		return LanguageEnglish
	}
	return LanguageChinese
}

// Column returns the embedding column holding vectors of text written in l.
func (l Language) Column() Column {
	if l == LanguageChinese {
		return ColumnChineseEmbedding
	}
	return ColumnEnglishEmbedding
}

// Column names one of the two embedding columns of the corpus.
type Column string

const (
	ColumnEnglishEmbedding Column = "english_embedding"
	ColumnChineseEmbedding Column = "chinese_embedding"
)

// Valid reports whether c names a known embedding column.
func (c Column) Valid() bool {
	return c == ColumnEnglishEmbedding || c == ColumnChineseEmbedding
}

// TranslationPair is one persisted record of the bilingual corpus.
type TranslationPair struct {
	Id            ID
	GLNumber      string
	RowNumber     string
	Version       string
	EffectiveDate string
	EnglishText   string
	ChineseText   string
	// Embedding columns are nil when the column is NULL in the store.
	EnglishEmbedding []float32
	ChineseEmbedding []float32
	CreatedAt        time.Time
}

// Text returns the pair's text written in l.
func (p *TranslationPair) Text(l Language) string {
	if l == LanguageChinese {
		return p.ChineseText
	}
	return p.EnglishText
}

// Embedding returns the vector stored in column c, or nil if it is not populated.
func (p *TranslationPair) Embedding(c Column) []float32 {
	switch c {
	case ColumnEnglishEmbedding:
		return p.EnglishEmbedding
	case ColumnChineseEmbedding:
		return p.ChineseEmbedding
	}
	return nil
}

// SetEmbedding stores v in column c. Unknown columns are ignored.
func (p *TranslationPair) SetEmbedding(c Column, v []float32) {
	switch c {
	case ColumnEnglishEmbedding:
		p.EnglishEmbedding = v
	case ColumnChineseEmbedding:
		p.ChineseEmbedding = v
	}
}

// HasEmbedding reports whether column c is populated.
func (p *TranslationPair) HasEmbedding(c Column) bool {
	return len(p.Embedding(c)) > 0
}

// ContentHash fingerprints the pair's texts.
func (p *TranslationPair) ContentHash() ContentHash {
	return HashContent(p.EnglishText, p.ChineseText)
}

const (
	// DefaultTopK is used when the caller does not ask for a result count.
	DefaultTopK = 5
	// MinTopK and MaxTopK bound the accepted result count.
	MinTopK = 1
	MaxTopK = 20
)

// SearchQuery is a single similarity search request.
type SearchQuery struct {
	UserInput      string
	TargetLanguage Language
	TopK           int
}

// RankedID is one entry of a ranking: a pair id and its distance to the query.
type RankedID struct {
	Id       ID
	Distance float64
}

// ScoredPair is a full record annotated with its similarity to the query.
type ScoredPair struct {
	Pair     *TranslationPair
	Distance float64
	// Score is the cosine similarity, 1 - Distance.
	Score float64
}

// SearchResult is the assembled answer to a SearchQuery.
type SearchResult struct {
	Pairs          []*ScoredPair
	TotalFound     int
	QueryLanguage  Language
	TargetLanguage Language
}
