package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "nil stays nil", in: nil, want: nil},
		{name: "empty stays empty", in: []string{}, want: []string{}},
		{name: "stationary types from env", in: []string{" FrontOffice ", "Hub", ""}, want: []string{"FrontOffice", "Hub"}},
		{name: "repeated brokers keep first position", in: []string{"b:9092", "a:9092", " b:9092"}, want: []string{"b:9092", "a:9092"}},
		{name: "only blanks", in: []string{"", "  "}, want: []string{}},
		{name: "case sensitive", in: []string{"Hub", "hub", "HUB"}, want: []string{"Hub", "hub", "HUB"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrim(tt.in))
		})
	}
}
