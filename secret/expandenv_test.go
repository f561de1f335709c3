package secret

import (
	"strings"
	"testing"
)

func TestExpandEnvStrict(t *testing.T) {
	t.Setenv("EXPAND_TEST_A", "alpha")
	t.Setenv("EXPAND_TEST_B", "beta")

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"no variables", "plain text", "plain text", false},
		{"braced", "${EXPAND_TEST_A}", "alpha", false},
		{"two variables", "${EXPAND_TEST_A}-${EXPAND_TEST_B}", "alpha-beta", false},
		{"bare dollar form", "$EXPAND_TEST_A", "alpha", false},
		{"escaped dollar", "cost is $$5", "cost is $5", false},
		{"escaped braced form", "$${EXPAND_TEST_A}", "${EXPAND_TEST_A}", false},
		{"missing variable", "${EXPAND_TEST_MISSING}", "", true},
		{"empty string", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandEnvStrict(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExpandEnvStrict(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExpandEnvStrict(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExpandEnvStrict_ReportsAllMissing(t *testing.T) {
	_, err := ExpandEnvStrict("${EXPAND_TEST_M1} ${EXPAND_TEST_M2}")
	if err == nil {
		t.Fatal("expected an error for missing variables")
	}
	if !strings.Contains(err.Error(), "EXPAND_TEST_M1") || !strings.Contains(err.Error(), "EXPAND_TEST_M2") {
		t.Errorf("error %q should name every missing variable", err)
	}
}
