package policy

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const maxRuleIDLength = 100

var ruleIDPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// celReserved may not be used as rule IDs.
var celReserved = map[string]struct{}{
	"true": {}, "false": {}, "null": {},
	"if": {}, "else": {}, "for": {}, "while": {}, "break": {}, "continue": {}, "return": {},
	"var": {}, "let": {}, "const": {}, "function": {},
	"in": {}, "as": {}, "import": {}, "package": {}, "namespace": {}, "loop": {}, "void": {},
}

// builtinFields are the submission fields reported by the intake validator
// itself. A rule ID is reported as the failing field, so it must not shadow
// one of them.
var builtinFields = map[string]struct{}{
	FactsVariable:       {},
	"prospectName":      {},
	"prospectIndustry":  {},
	"eligibleEmployees": {},
	"eligibleMembers":   {},
	"healthPlans":       {},
	"rushReason":        {},
	"dueDate":           {},
	"distributionType":  {},
}

// ValidateRule checks a rule before it is compiled.
func ValidateRule(r *Rule) error {
	if r == nil {
		return errors.New("rule cannot be nil")
	}
	if err := checkRuleID(r.ID); err != nil {
		return fmt.Errorf("invalid rule id %q: %w", r.ID, err)
	}
	if strings.TrimSpace(r.Expression) == "" {
		return fmt.Errorf("rule %s has an empty expression", r.ID)
	}
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("rule %s has an empty message", r.ID)
	}
	return nil
}

func checkRuleID(id string) error {
	switch {
	case id == "":
		return errors.New("id cannot be empty")
	case len(id) > maxRuleIDLength:
		return fmt.Errorf("length %d exceeds maximum of %d characters", len(id), maxRuleIDLength)
	case !ruleIDPattern.MatchString(id):
		return errors.New("must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$")
	}
	if _, ok := celReserved[id]; ok {
		return fmt.Errorf("%q is a reserved keyword", id)
	}
	if _, ok := builtinFields[id]; ok {
		return fmt.Errorf("%q is already reported by built-in validation", id)
	}
	return nil
}
