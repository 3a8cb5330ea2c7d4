package audit

import (
	"regexp"
	"strings"

	"github.com/Om7972/votesecure-online-sub000/pkg/models"
)

// highRiskActions always classify as high and require review.
var highRiskActions = map[models.AuditAction]bool{
	models.ActionVoteCast:           true,
	models.ActionVoteInvalidate:     true,
	models.ActionElectionCreate:     true,
	models.ActionElectionCancel:     true,
	models.ActionUserDelete:         true,
	models.ActionAdminAction:        true,
	models.ActionRoleChange:         true,
	models.ActionDataPurge:          true,
	models.ActionIntegrityFailure:   true,
	models.ActionAttackSignature:    true,
	models.ActionSuspiciousActivity: true,
}

// mediumRiskActions classify as medium when nothing escalates them.
var mediumRiskActions = map[models.AuditAction]bool{
	models.ActionElectionUpdate:  true,
	models.ActionCandidateCreate: true,
	models.ActionCandidateDelete: true,
	models.ActionUserUpdate:      true,
	models.ActionVoteChallenge:   true,
	models.ActionSettingsUpdate:  true,
	models.ActionDataExport:      true,
}

// attackSignatures match request surfaces carrying known injection attempts:
// path traversal, script injection, SQL union, the javascript: scheme, and
// the classic OR-1=1 tautology.
var attackSignatures = []*regexp.Regexp{
	regexp.MustCompile(`\.\./`),
	regexp.MustCompile(`(?i)<\s*script`),
	regexp.MustCompile(`(?i)union\s+select`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)['"]\s*or\s+['"]?1['"]?\s*=\s*['"]?1`),
}

var adminRoles = map[string]bool{
	"admin":       true,
	"super_admin": true,
}

// NewClassifier creates the rule-table risk classifier.
func NewClassifier() Classifier {
	return &classifierImpl{}
}

type classifierImpl struct{}

func (c *classifierImpl) Classify(event Event) models.SecurityInfo {
	info := models.SecurityInfo{
		RiskLevel:           c.riskLevel(event),
		InvestigationStatus: models.InvestigationNone,
	}

	info.RequiresReview = highRiskActions[event.Action] || event.StatusCode >= 400
	info.IsSuspicious = c.suspicious(event)
	if info.IsSuspicious {
		info.RequiresReview = true
		info.InvestigationStatus = models.InvestigationOpen
		if info.RiskLevel == models.RiskLow || info.RiskLevel == models.RiskMedium {
			info.RiskLevel = models.RiskHigh
		}
	}

	return info
}

func (c *classifierImpl) riskLevel(event Event) models.RiskLevel {
	switch {
	case highRiskActions[event.Action] || event.StatusCode >= 500:
		return models.RiskHigh
	case mediumRiskActions[event.Action] || event.StatusCode >= 400:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func (c *classifierImpl) suspicious(event Event) bool {
	path := strings.ToLower(event.Path)

	// Failed request against an auth endpoint.
	if isAuthPath(path) && event.StatusCode >= 400 {
		return true
	}

	// Admin endpoint touched by a non-admin actor.
	if isAdminPath(path) && event.ActorRole != "" && !adminRoles[event.ActorRole] {
		return true
	}

	raw := event.Path + " " + event.Query + " " + event.Body
	for _, sig := range attackSignatures {
		if sig.MatchString(raw) {
			return true
		}
	}

	return false
}

func isAuthPath(path string) bool {
	return strings.Contains(path, "/auth") ||
		strings.Contains(path, "/login") ||
		strings.Contains(path, "/token")
}

func isAdminPath(path string) bool {
	return strings.Contains(path, "/admin")
}
