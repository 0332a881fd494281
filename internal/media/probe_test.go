package media

import "testing"

func TestParseDuration(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
		ok   bool
	}{
		{"rounds down", `{"format": {"duration": "125.300000"}}`, 125, true},
		{"rounds up", `{"format": {"duration": "125.700000"}}`, 126, true},
		{"whole seconds", `{"format": {"duration": "60.000000"}}`, 60, true},
		{"missing format", `{}`, 0, false},
		{"empty duration", `{"format": {"duration": ""}}`, 0, false},
		{"garbage duration", `{"format": {"duration": "abc"}}`, 0, false},
		{"not json", `???`, 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseDuration([]byte(tc.in))
		if got != tc.want || ok != tc.ok {
			t.Errorf("%s: ParseDuration = (%d, %v), want (%d, %v)", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}
