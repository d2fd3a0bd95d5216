package models

import (
	"encoding/json"
	"strings"
)

// ComplianceStatus is the overall verdict of a compliance report.
type ComplianceStatus string

const (
	Compliant    ComplianceStatus = "COMPLIANT"
	NonCompliant ComplianceStatus = "NON_COMPLIANT"
)

// CheckStatus is the verdict of a single compliance check.
type CheckStatus string

const (
	CheckPass CheckStatus = "PASS"
	CheckFail CheckStatus = "FAIL"
)

// UnmarshalJSON accepts both "NON_COMPLIANT" and the backend's "NON-COMPLIANT".
func (c *ComplianceStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = ComplianceStatus(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(raw)), "-", "_"))
	return nil
}

// Label is the human form shown on the dashboard banner.
func (c ComplianceStatus) Label() string {
	return strings.ReplaceAll(string(c), "_", "-")
}

// ComplianceCheck is one rule evaluated against a measured value.
type ComplianceCheck struct {
	Check     string      `json:"check"`
	Value     string      `json:"value"`
	Threshold string      `json:"threshold"`
	Status    CheckStatus `json:"status"`
}

// Passed reports whether the check succeeded.
func (c ComplianceCheck) Passed() bool {
	return c.Status == CheckPass
}

// ComplianceReport is returned by GET /api/compliance.
// Checks keep the order the backend sent them in.
type ComplianceReport struct {
	ReportTime string            `json:"report_time"`
	Score      string            `json:"score"`
	Overall    ComplianceStatus  `json:"overall"`
	Checks     []ComplianceCheck `json:"checks"`
	CheckedBy  string            `json:"checked_by,omitempty"`
}

// IsCompliant reports the overall verdict.
func (r *ComplianceReport) IsCompliant() bool {
	return r.Overall == Compliant
}

// PassedCount returns how many checks passed.
func (r *ComplianceReport) PassedCount() int {
	passed := 0
	for _, check := range r.Checks {
		if check.Passed() {
			passed++
		}
	}
	return passed
}
