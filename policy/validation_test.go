package policy

import (
	"strings"
	"testing"
)

func TestValidateRule(t *testing.T) {
	testCases := []struct {
		name    string
		rule    *Rule
		wantErr string
	}{
		{"Nil rule", nil, "nil"},
		{"Empty id", &Rule{Expression: "true", Message: "m"}, "empty"},
		{"Id with dash", &Rule{ID: "cigna-slides", Expression: "true", Message: "m"}, "must match pattern"},
		{"Id starting with digit", &Rule{ID: "1rule", Expression: "true", Message: "m"}, "must match pattern"},
		{"Reserved keyword", &Rule{ID: "null", Expression: "true", Message: "m"}, "reserved keyword"},
		{"Too long", &Rule{ID: strings.Repeat("a", 101), Expression: "true", Message: "m"}, "exceeds maximum"},
		{"Empty expression", &Rule{ID: "rule", Expression: "  ", Message: "m"}, "empty expression"},
		{"Empty message", &Rule{ID: "rule", Expression: "true"}, "empty message"},
		{"Shadows built-in field", &Rule{ID: "rushReason", Expression: "true", Message: "m"}, "built-in validation"},
		{"Facts variable", &Rule{ID: FactsVariable, Expression: "true", Message: "m"}, "built-in validation"},
		{"Valid", &Rule{ID: "_rule_1", Expression: "true", Message: "m"}, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRule(tc.rule)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tc.wantErr, err)
			}
		})
	}
}

func TestDefaultRulesAreValid(t *testing.T) {
	for _, r := range DefaultRules() {
		if err := ValidateRule(r); err != nil {
			t.Errorf("default rule %s invalid: %v", r.ID, err)
		}
	}
}
