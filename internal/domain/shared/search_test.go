package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldSearch(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"accents are stripped", []string{"Paracétamol"}, "paracetamol"},
		{"parts are joined", []string{"Ibuprofène", " Advil ", "IBU-200"}, "ibuprofene advil ibu-200"},
		{"blank parts are skipped", []string{"", "Crème", "  "}, "creme"},
		{"nothing", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FoldSearch(tt.parts...))
		})
	}
}
