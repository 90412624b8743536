package benchmark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/ner-recall/internal/core/domain"
	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
)

func TestParseSpan(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		want    domain.Span
		wantErr error
	}{
		{
			name: "python dict",
			src:  "{'start': 0, 'end': 13, 'text': 'Inglise kanal', 'labels': ['LOC']}",
			want: domain.Span{Start: 0, End: 13, Text: "Inglise kanal", Labels: []string{"LOC"}},
		},
		{
			name: "json object",
			src:  `{"start": 4, "end": 8, "text": "Anna", "labels": ["PER", "B-PER"]}`,
			want: domain.Span{Start: 4, End: 8, Text: "Anna", Labels: []string{"PER", "B-PER"}},
		},
		{
			name: "extra keys",
			src:  "{'start': 1, 'end': 2, 'text': 'x', 'labels': ['MISC'], 'score': (0.5, 1), 'gold': True, 'note': None}",
			want: domain.Span{Start: 1, End: 2, Text: "x", Labels: []string{"MISC"}},
		},
		{
			name:    "tuple labels",
			src:     "{'start': 0, 'end': 4, 'text': 'Anna', 'labels': ('PER',)}",
			wantErr: apperrors.ErrInvalidSpan,
		},
		{
			name: "escaped quote",
			src:  `{'start': 0, 'end': 5, 'text': 'O\'Neil', 'labels': ['PER']}`,
			want: domain.Span{Start: 0, End: 5, Text: "O'Neil", Labels: []string{"PER"}},
		},
		{
			name: "unicode escape",
			src:  `{'start': 0, 'end': 4, 'text': 'K\u00f6ln', 'labels': ['LOC']}`,
			want: domain.Span{Start: 0, End: 4, Text: "K\u00f6ln", Labels: []string{"LOC"}},
		},
		{
			name:    "missing labels",
			src:     "{'start': 0, 'end': 4, 'text': 'Anna'}",
			wantErr: apperrors.ErrInvalidSpan,
		},
		{
			name:    "labels not a list",
			src:     "{'start': 0, 'end': 4, 'text': 'Anna', 'labels': 'PER'}",
			wantErr: apperrors.ErrInvalidSpan,
		},
		{
			name:    "float offset",
			src:     "{'start': 0.5, 'end': 4, 'text': 'Anna', 'labels': ['PER']}",
			wantErr: apperrors.ErrInvalidSpan,
		},
		{
			name:    "not a record",
			src:     "['PER']",
			wantErr: apperrors.ErrInvalidSpan,
		},
		{
			name:    "unterminated string",
			src:     "{'start': 0, 'end': 4, 'text': 'Anna",
			wantErr: apperrors.ErrBadFormat,
		},
		{
			name:    "trailing input",
			src:     "{'start': 0, 'end': 4, 'text': 'Anna', 'labels': []} x",
			wantErr: apperrors.ErrBadFormat,
		},
		{
			name:    "empty",
			src:     "   ",
			wantErr: apperrors.ErrBadFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSpan(tt.src)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLiteral_Numbers(t *testing.T) {
	v, err := parseLiteral("[-3, 1_000, 2.5, 1e3]")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(-3), int64(1000), 2.5, 1000.0}, v)
}

func TestParseLiteral_Tuple(t *testing.T) {
	v, err := parseLiteral("('PER', 1)")
	require.NoError(t, err)
	assert.Equal(t, tuple{"PER", int64(1)}, v)
}
