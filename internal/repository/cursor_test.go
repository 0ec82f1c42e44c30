package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	original := Cursor{
		CreatedAt: time.Date(2026, 3, 14, 10, 30, 0, 123456789, time.UTC),
		ID:        "9b2e7c1a-5f7d-4b5e-8f1a-2c3d4e5f6a7b",
	}

	decoded, err := DecodeCursor(original.Encode())
	require.NoError(t, err)
	assert.True(t, original.CreatedAt.Equal(decoded.CreatedAt))
	assert.Equal(t, original.ID, decoded.ID)
}

func TestCursorEncodeNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	cursor := Cursor{CreatedAt: time.Date(2026, 3, 14, 16, 0, 0, 0, loc), ID: "t-1"}

	decoded, err := DecodeCursor(cursor.Encode())
	require.NoError(t, err)
	assert.True(t, cursor.CreatedAt.Equal(decoded.CreatedAt))
	assert.Equal(t, time.UTC, decoded.CreatedAt.Location())
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"no separator", "bm8tc2VwYXJhdG9y"},
		{"empty id", "MjAyNi0wMy0xNFQxMDowMDowMFp8"},
		{"bad timestamp", "bm90LWEtdGltZXwxMjM"},
		{"empty token", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCursor(tt.token)
			assert.Error(t, err)
		})
	}
}
