package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBook_HasStoredCover(t *testing.T) {
	tests := []struct {
		name     string
		coverKey string
		want     bool
	}{
		{"storage key", "covers/abc.jpg", true},
		{"nested key", "covers/2024/abc.png", true},
		{"empty key", "", false},
		{"http url", "http://example.com/cover.jpg", false},
		{"https url", "https://example.com/cover.jpg", false},
		{"data uri", "data:image/png;base64,iVBOR", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Book{CoverKey: tt.coverKey}
			assert.Equal(t, tt.want, b.HasStoredCover())
		})
	}
}

func TestCreateBookParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  CreateBookParams
		wantErr bool
	}{
		{
			name:    "valid minimal",
			params:  CreateBookParams{Title: "The Left Hand of Darkness"},
			wantErr: false,
		},
		{
			name: "valid full",
			params: CreateBookParams{
				Title:        "Dune",
				Author:       "Frank Herbert",
				ISBN:         "9780441013593",
				CoverKey:     "covers/dune.jpg",
				CoverWidth:   800,
				CoverHeight:  1200,
				CoverHighRes: true,
			},
			wantErr: false,
		},
		{
			name:    "missing title",
			params:  CreateBookParams{Author: "Anonymous"},
			wantErr: true,
		},
		{
			name:    "negative width",
			params:  CreateBookParams{Title: "Dune", CoverWidth: -1},
			wantErr: true,
		},
		{
			name:    "negative height",
			params:  CreateBookParams{Title: "Dune", CoverHeight: -600},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, EINVALID, ErrorCode(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCoverAnalysisStatus_IsValid(t *testing.T) {
	valid := []CoverAnalysisStatus{
		CoverAnalysisStatusPending,
		CoverAnalysisStatusCompleted,
		CoverAnalysisStatusFailed,
		CoverAnalysisStatusSkipped,
	}
	for _, s := range valid {
		assert.True(t, s.IsValid(), "status %q should be valid", s)
	}

	assert.False(t, CoverAnalysisStatus("").IsValid())
	assert.False(t, CoverAnalysisStatus("running").IsValid())
}
