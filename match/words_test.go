package match

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello, world!", "HELLO WORLD"},
		{"What's up?", "WHATS UP"},
		{"  lots   of\tspace ", "LOTS OF SPACE"},
		{"", ""},
		{"?!", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		expr, input string
		stars       []string
		ok          bool
	}{
		{"HELLO", "HELLO", []string{}, true},
		{"HELLO *", "HELLO THERE FRIEND", []string{"THERE FRIEND"}, true},
		{"HELLO *", "HELLO", nil, false},
		{"_ IS *", "TACO IS GOOD FOOD", []string{"TACO", "GOOD FOOD"}, true},
		{"_ IS *", "A TACO IS GOOD", nil, false},
		{"* IS *", "A TACO IS GOOD", []string{"A TACO", "GOOD"}, true},
		{"hello", "HELLO", []string{}, true},
		{"", "", []string{}, true},
	}
	for _, tt := range tests {
		stars, ok := Match(tt.expr, tt.input)
		if ok != tt.ok {
			t.Fatalf("Match(%q, %q) ok = %v", tt.expr, tt.input, ok)
		}
		if ok && !reflect.DeepEqual(stars, tt.stars) {
			t.Fatalf("Match(%q, %q) = %#v, want %#v", tt.expr, tt.input, stars, tt.stars)
		}
	}
}
