package grid

import (
	"testing"

	"github.com/Rana718/Portal/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestResolveOption(t *testing.T) {
	options := []types.ComboboxOption{
		{ID: "1", Show: []string{"Moscow"}, Hidden: []string{"MOW"}},
		{ID: "2", Show: []string{"Moscow Oblast"}},
		{ID: "3", Show: []string{"Saint Petersburg"}, Hidden: []string{"LED"}},
	}

	tests := []struct {
		name   string
		tokens []string
		want   string
		ok     bool
	}{
		{"id wins", []string{"3"}, "3", true},
		{"exact label", []string{"Moscow"}, "1", true},
		{"exact beats substring", []string{"moscow", "mow"}, "1", true},
		{"substring", []string{"Petersburg"}, "3", true},
		{"blank tokens", []string{" ", ""}, "", false},
		{"no match", []string{"zzz"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveOption(tt.tokens, options)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveOptionTieKeepsOrder(t *testing.T) {
	options := []types.ComboboxOption{
		{ID: "a", Show: []string{"Same"}},
		{ID: "b", Show: []string{"Same"}},
	}
	got, ok := ResolveOption([]string{"Same"}, options)
	assert.True(t, ok)
	assert.Equal(t, "a", got)
}
