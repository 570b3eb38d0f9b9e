package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Café Del Mar", "cafe del mar"},
		{"CAFE DEL MAR", "cafe del mar"},
		{"Joe's Pizza, LLC", "joes pizza"},
		{"Joe’s Pizza Inc.", "joes pizza"},
		{"A&B Hardware", "a and b hardware"},
		{"7-Eleven", "7 eleven"},
		{"  Walgreens   #1234 ", "walgreens 1234"},
		{"Co", "co"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestNamesMatch(t *testing.T) {
	assert.True(t, NamesMatch("Café Del Mar", "CAFE DEL MAR"))
	assert.True(t, NamesMatch("Joe's Pizza, LLC", "Joes Pizza"))
	assert.False(t, NamesMatch("Joe's Pizza", "Sal's Pizza"))
	assert.False(t, NamesMatch("", ""))
	assert.False(t, NamesMatch("...", "!!!"))
}
