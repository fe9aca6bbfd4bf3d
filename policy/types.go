package policy

// Rule is a conditional intake requirement. Expression is evaluated against
// the normalized submission bound to `prospect`; a true result means the
// submission violates the rule and Message is shown to the submitter.
type Rule struct {
	ID         string `yaml:"id" json:"id"`
	Name       string `yaml:"name" json:"name"`
	Expression string `yaml:"expression" json:"expression"`
	Message    string `yaml:"message" json:"message"`
	Active     bool   `yaml:"active" json:"active"`
}

// EvaluationResult contains the outcome of evaluating one rule.
type EvaluationResult struct {
	RuleID   string
	RuleName string
	Matched  bool
	Error    error
	Trace    any // CEL evaluation state, when tracked
}

// Violation is the first matched rule of a submission.
type Violation struct {
	RuleID  string
	Message string
}

// CignaSlidesRuleID identifies the built-in Cigna slides requirement.
const CignaSlidesRuleID = "cigna_slides_required"

// DefaultRules returns the rules every deployment enforces.
func DefaultRules() []*Rule {
	return []*Rule{
		{
			ID:         CignaSlidesRuleID,
			Name:       "Cigna partnership requires slides answer",
			Expression: `prospect.healthplanPartnership == "Cigna" && prospect.needsCignaSlides == null`,
			Message:    "Please specify if Cigna branded slides are needed",
			Active:     true,
		},
	}
}
