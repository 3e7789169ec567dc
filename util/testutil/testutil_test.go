package testutil

import "testing"

func TestJS(t *testing.T) {
	type binding struct {
		Name  string
		Value string
	}
	tests := []struct {
		name string
		arg  interface{}
		want string
	}{
		{"struct", binding{"name", "Alice"}, `{"Name":"name","Value":"Alice"}`},
		{"map", map[string]string{"topic": "CATS"}, `{"topic":"CATS"}`},
		{"unencodable", make(chan int), "(chan int)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JS(tt.arg)
			if tt.name == "unencodable" {
				if len(got) < len(tt.want) || got[:len(tt.want)] != tt.want {
					t.Fatalf("JS() = %s", got)
				}
				return
			}
			if got != tt.want {
				t.Fatalf("JS() = %s, want %s", got, tt.want)
			}
		})
	}
}
