package core

import (
	"errors"
	"testing"
	"time"
)

func TestHashContent(t *testing.T) {
	tests := []struct {
		name    string
		english string
		chinese string
	}{
		{name: "both texts", english: "Revenue", chinese: "收入"},
		{name: "english only", english: "Revenue", chinese: ""},
		{name: "empty", english: "", chinese: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h1 := HashContent(tt.english, tt.chinese)
			h2 := HashContent(tt.english, tt.chinese)
			if h1 != h2 {
				t.Errorf("HashContent() produced different hashes for same content: %d vs %d", h1, h2)
			}
		})
	}
}

func TestHashContent_FieldBoundary(t *testing.T) {
	if HashContent("ab", "c") == HashContent("a", "bc") {
		t.Errorf("HashContent() ignored the boundary between english and chinese text")
	}
	if HashContent("x", "") == HashContent("", "x") {
		t.Errorf("HashContent() produced the same hash for swapped texts")
	}
}

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		input   string
		want    Language
		wantErr bool
	}{
		{input: "chinese", want: LanguageChinese},
		{input: "English", want: LanguageEnglish},
		{input: "  CHINESE ", want: LanguageChinese},
		{input: "zh", wantErr: true},
		{input: "", wantErr: true},
		{input: "french", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLanguage(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("ParseLanguage(%q) error = %v, want ErrInvalidInput", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLanguage(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseLanguage(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLanguage_ColumnAndOpposite(t *testing.T) {
	if LanguageChinese.Column() != ColumnChineseEmbedding {
		t.Errorf("chinese column = %q", LanguageChinese.Column())
	}
	if LanguageEnglish.Column() != ColumnEnglishEmbedding {
		t.Errorf("english column = %q", LanguageEnglish.Column())
	}
	if LanguageChinese.Opposite() != LanguageEnglish || LanguageEnglish.Opposite() != LanguageChinese {
		t.Errorf("Opposite() does not swap languages")
	}
}

func TestTranslationPair_Embedding(t *testing.T) {
	p := &TranslationPair{EnglishText: "cash", ChineseText: "现金"}
	if p.HasEmbedding(ColumnEnglishEmbedding) {
		t.Fatalf("new pair should have no english embedding")
	}

	p.SetEmbedding(ColumnChineseEmbedding, []float32{1, 2})
	if !p.HasEmbedding(ColumnChineseEmbedding) {
		t.Fatalf("chinese embedding not set")
	}
	if p.HasEmbedding(ColumnEnglishEmbedding) {
		t.Fatalf("setting chinese embedding populated english column")
	}
	if p.Text(LanguageChinese) != "现金" || p.Text(LanguageEnglish) != "cash" {
		t.Errorf("Text() returned wrong side of pair")
	}
}

func TestTranslationPairMUS_RoundTrip(t *testing.T) {
	created := time.UnixMicro(time.Now().UnixMicro())
	tests := []struct {
		name string
		pair TranslationPair
	}{
		{
			name: "fully populated",
			pair: TranslationPair{
				Id:               42,
				GLNumber:         "1001",
				RowNumber:        "7",
				Version:          "v2",
				EffectiveDate:    "2024-01-01",
				EnglishText:      "Accounts receivable",
				ChineseText:      "应收账款",
				EnglishEmbedding: []float32{0.1, -0.2, 0.3},
				ChineseEmbedding: []float32{0.4, 0.5, -0.6},
				CreatedAt:        created,
			},
		},
		{
			name: "null embeddings and zero time",
			pair: TranslationPair{Id: 1, EnglishText: "Only english"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, TranslationPairMUS.Size(tt.pair))
			n := TranslationPairMUS.Marshal(tt.pair, buf)
			if n != len(buf) {
				t.Fatalf("Marshal wrote %d bytes, Size reported %d", n, len(buf))
			}

			got, m, err := TranslationPairMUS.Unmarshal(buf)
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if m != n {
				t.Errorf("Unmarshal consumed %d bytes, want %d", m, n)
			}
			if got.Id != tt.pair.Id || got.EnglishText != tt.pair.EnglishText || got.ChineseText != tt.pair.ChineseText {
				t.Errorf("scalar fields mismatch: got %+v", got)
			}
			if len(got.EnglishEmbedding) != len(tt.pair.EnglishEmbedding) {
				t.Errorf("english embedding length = %d, want %d", len(got.EnglishEmbedding), len(tt.pair.EnglishEmbedding))
			}
			if len(got.ChineseEmbedding) != len(tt.pair.ChineseEmbedding) {
				t.Errorf("chinese embedding length = %d, want %d", len(got.ChineseEmbedding), len(tt.pair.ChineseEmbedding))
			}
			for i := range tt.pair.EnglishEmbedding {
				if got.EnglishEmbedding[i] != tt.pair.EnglishEmbedding[i] {
					t.Errorf("english embedding[%d] = %v, want %v", i, got.EnglishEmbedding[i], tt.pair.EnglishEmbedding[i])
				}
			}
			if !got.CreatedAt.Equal(tt.pair.CreatedAt) {
				t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, tt.pair.CreatedAt)
			}
		})
	}
}

func TestTranslationPairMUS_Truncated(t *testing.T) {
	pair := TranslationPair{Id: 9, EnglishText: "truncate me", EnglishEmbedding: []float32{1, 2, 3}}
	buf := make([]byte, TranslationPairMUS.Size(pair))
	TranslationPairMUS.Marshal(pair, buf)

	if _, _, err := TranslationPairMUS.Unmarshal(buf[:len(buf)-5]); err == nil {
		t.Errorf("Unmarshal of truncated record succeeded")
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name   string
		a, b   []float32
		want   float64
		wantOK bool
	}{
		{name: "identical", a: []float32{1, 0}, b: []float32{1, 0}, want: 0, wantOK: true},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 1, wantOK: true},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: 2, wantOK: true},
		{name: "scale invariant", a: []float32{2, 0}, b: []float32{5, 0}, want: 0, wantOK: true},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 0}},
		{name: "zero norm", a: []float32{0, 0}, b: []float32{1, 0}},
		{name: "empty", a: nil, b: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CosineDistance(tt.a, tt.b)
			if ok != tt.wantOK {
				t.Fatalf("CosineDistance ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (got-tt.want > 1e-9 || tt.want-got > 1e-9) {
				t.Errorf("CosineDistance = %v, want %v", got, tt.want)
			}
		})
	}
}
