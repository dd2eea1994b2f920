package utils

import "testing"

func TestCalculateDataMD5(t *testing.T) {
	tests := map[string]string{
		"":    "d41d8cd98f00b204e9800998ecf8427e",
		"abc": "900150983cd24fb0d6963f7d28e17f72",
	}
	for in, want := range tests {
		if got := CalculateDataMD5([]byte(in)); got != want {
			t.Errorf("Expected %s for %q, got %s", want, in, got)
		}
	}
}
