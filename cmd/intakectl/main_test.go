package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

const payloadJSON = `{
	"prospectName": "Acme Corp",
	"prospectIndustry": "Manufacturing",
	"eligibleEmployees": 100,
	"eligibleMembers": 250,
	"distributionType": "percentage",
	"dueDate": "2024-01-08",
	"healthPlans": [
		{"healthPlanName": "PPO", "deductibleIndividual": 1500, "deductibleFamily": 3000,
		 "oopIndividual": 4000, "oopFamily": 8000, "coinsuranceIndividual": 20,
		 "coinsuranceFamily": 20, "employeeDistribution": 70},
		{"healthPlanName": "HDHP", "deductibleIndividual": 1500, "deductibleFamily": 3000,
		 "oopIndividual": 4000, "oopFamily": 10000, "coinsuranceIndividual": 20,
		 "coinsuranceFamily": 20, "employeeDistribution": 30}
	]
}`

func isolateEnv(t *testing.T) {
	for _, key := range []string{"INTAKE_CONFIG", "DATABASE_URL", "PORT", "LOG_LEVEL", "LOG_FORMAT", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	isolateEnv(t)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func writePayload(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	return path
}

func TestDueDateCmd(t *testing.T) {
	testCases := []struct {
		args []string
		want string
	}{
		{[]string{"due-date", "--from", "2024-01-05"}, "2024-01-12"},
		{[]string{"due-date", "--from", "2024-01-05", "--days", "1"}, "2024-01-08"},
		{[]string{"due-date", "--from", "2024-01-06", "--days", "0"}, "2024-01-06"},
	}

	for _, tc := range testCases {
		out, err := execute(t, tc.args...)
		if err != nil {
			t.Fatalf("%v: %v", tc.args, err)
		}
		if got := strings.TrimSpace(out); got != tc.want {
			t.Errorf("%v: expected %s, got %s", tc.args, tc.want, got)
		}
	}

	if _, err := execute(t, "due-date", "--from", "01/05/2024"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestRushCmd(t *testing.T) {
	out, err := execute(t, "rush", "--created", "2024-01-01", "--due", "2024-01-03")
	if err != nil {
		t.Fatalf("rush failed: %v", err)
	}

	var got struct {
		Rush         bool `json:"rush"`
		BusinessDays int  `json:"businessDays"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if !got.Rush || got.BusinessDays != 3 {
		t.Errorf("expected rush with 3 business days, got %+v", got)
	}

	if _, err := execute(t, "rush", "--created", "2024-01-01"); err == nil {
		t.Error("expected error when --due is missing")
	}
}

func TestValidateCmd(t *testing.T) {
	out, err := execute(t, "validate", "--today", "2024-01-01", writePayload(t, payloadJSON))
	if err != nil {
		t.Fatalf("validate failed: %v\n%s", err, out)
	}

	var got validateResult
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if !got.Valid {
		t.Fatalf("expected valid payload, got %+v", got)
	}
	if got.DefaultDueDate != "2024-01-08" {
		t.Errorf("expected default due date 2024-01-08, got %s", got.DefaultDueDate)
	}
	if got.BlendedOOPFamily == nil || got.BlendedOOPFamily.String() != "8600" {
		t.Errorf("expected blended OOP 8600, got %v", got.BlendedOOPFamily)
	}
}

func TestValidateCmdRushWithoutReason(t *testing.T) {
	body := strings.Replace(payloadJSON, `"dueDate": "2024-01-08"`, `"dueDate": "2024-01-03"`, 1)

	out, err := execute(t, "validate", "--today", "2024-01-01", writePayload(t, body))
	if !errors.Is(err, errInvalid) {
		t.Fatalf("expected errInvalid, got %v", err)
	}
	if !strings.Contains(out, `"field": "rushReason"`) {
		t.Errorf("expected rushReason failure, got %s", out)
	}
}

func TestValidateCmdDistributionMismatch(t *testing.T) {
	body := strings.Replace(payloadJSON, `"employeeDistribution": 30`, `"employeeDistribution": 20`, 1)

	out, err := execute(t, "validate", "--today", "2024-01-01", writePayload(t, body))
	if !errors.Is(err, errInvalid) {
		t.Fatalf("expected errInvalid, got %v", err)
	}
	if !strings.Contains(out, "current total: 90.00%") {
		t.Errorf("expected distribution message, got %s", out)
	}
}

func TestValidateCmdBadInput(t *testing.T) {
	if _, err := execute(t, "validate", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := execute(t, "validate", writePayload(t, "{")); err == nil {
		t.Error("expected error for malformed json")
	}
	if _, err := execute(t, "validate"); err == nil {
		t.Error("expected error without a payload argument")
	}
}

func TestCheckDuplicateRequiresDatabase(t *testing.T) {
	_, err := execute(t, "check-duplicate", writePayload(t, payloadJSON))
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("expected DATABASE_URL error, got %v", err)
	}
}
