package classifier

import "testing"

func TestResult_String(t *testing.T) {
	r := Result{
		"owner":  []any{" Sam ", "Alex", 3, ""},
		"name":   "  Posters ",
		"count":  7,
		"absent": nil,
	}
	cases := map[string]string{
		"owner":   "Sam, Alex",
		"name":    "Posters",
		"count":   "",
		"absent":  "",
		"missing": "",
	}
	for key, want := range cases {
		if got := r.String(key); got != want {
			t.Errorf("String(%q) = %q, want %q", key, got, want)
		}
	}
	if got := r.StringOr("count", "TBC"); got != "TBC" {
		t.Errorf("StringOr fallback = %q", got)
	}
}
