package models

import (
	"time"
)

// AuditCategory groups audit actions for reporting and sensitivity
// classification.
type AuditCategory string

const (
	CategoryAuth      AuditCategory = "auth"
	CategoryUser      AuditCategory = "user"
	CategoryElection  AuditCategory = "election"
	CategoryCandidate AuditCategory = "candidate"
	CategoryVoting    AuditCategory = "voting"
	CategoryAdmin     AuditCategory = "admin"
	CategorySecurity  AuditCategory = "security"
	CategorySystem    AuditCategory = "system"
)

// AuditAction identifies the event that produced an audit log entry.
type AuditAction string

// Authentication events.
const (
	ActionLoginSuccess       AuditAction = "login_success"
	ActionLoginFailed        AuditAction = "login_failed"
	ActionLogout             AuditAction = "logout"
	ActionPasswordChange     AuditAction = "password_change"
	ActionPasswordReset      AuditAction = "password_reset"
	ActionTokenRefresh       AuditAction = "token_refresh"
	ActionSessionExpired     AuditAction = "session_expired"
	ActionAccountLocked      AuditAction = "account_locked"
	ActionAccountUnlocked    AuditAction = "account_unlocked"
	ActionTwoFactorEnabled   AuditAction = "two_factor_enabled"
	ActionTwoFactorDisabled  AuditAction = "two_factor_disabled"
	ActionTwoFactorChallenge AuditAction = "two_factor_challenge"
)

// User management events.
const (
	ActionUserCreate        AuditAction = "user_create"
	ActionUserUpdate        AuditAction = "user_update"
	ActionUserDelete        AuditAction = "user_delete"
	ActionUserActivate      AuditAction = "user_activate"
	ActionUserDeactivate    AuditAction = "user_deactivate"
	ActionProfileUpdate     AuditAction = "profile_update"
	ActionVoterRegister     AuditAction = "voter_register"
	ActionVoterVerify       AuditAction = "voter_verify"
	ActionVoterAnonymize    AuditAction = "voter_anonymize"
	ActionEligibilityChange AuditAction = "eligibility_change"
)

// Election lifecycle events.
const (
	ActionElectionCreate   AuditAction = "election_create"
	ActionElectionUpdate   AuditAction = "election_update"
	ActionElectionDelete   AuditAction = "election_delete"
	ActionElectionPublish  AuditAction = "election_publish"
	ActionElectionActivate AuditAction = "election_activate"
	ActionElectionComplete AuditAction = "election_complete"
	ActionElectionCancel   AuditAction = "election_cancel"
	ActionResultsRecompute AuditAction = "results_recompute"
	ActionResultsPublish   AuditAction = "results_publish"
)

// Candidate events.
const (
	ActionCandidateCreate   AuditAction = "candidate_create"
	ActionCandidateUpdate   AuditAction = "candidate_update"
	ActionCandidateDelete   AuditAction = "candidate_delete"
	ActionCandidateWithdraw AuditAction = "candidate_withdraw"
)

// Voting events.
const (
	ActionVoteCast            AuditAction = "vote_cast"
	ActionVoteRejected        AuditAction = "vote_rejected"
	ActionVoteVerify          AuditAction = "vote_verify"
	ActionVoteCount           AuditAction = "vote_count"
	ActionVoteInvalidate      AuditAction = "vote_invalidate"
	ActionVoteChallenge       AuditAction = "vote_challenge"
	ActionVoteChallengeReview AuditAction = "vote_challenge_review"
	ActionVoteReceiptIssued   AuditAction = "vote_receipt_issued"
)

// Administrative events.
const (
	ActionAdminAction    AuditAction = "admin_action"
	ActionRoleChange     AuditAction = "role_change"
	ActionSettingsUpdate AuditAction = "settings_update"
	ActionDataExport     AuditAction = "data_export"
	ActionDataPurge      AuditAction = "data_purge"
)

// Security events.
const (
	ActionSuspiciousActivity AuditAction = "suspicious_activity"
	ActionAccessDenied       AuditAction = "access_denied"
	ActionRateLimited        AuditAction = "rate_limited"
	ActionIntegrityFailure   AuditAction = "integrity_failure"
	ActionAttackSignature    AuditAction = "attack_signature"
)

// System events.
const (
	ActionSystemStart       AuditAction = "system_start"
	ActionSystemStop        AuditAction = "system_stop"
	ActionMaintenanceStart  AuditAction = "maintenance_start"
	ActionMaintenanceFinish AuditAction = "maintenance_finish"
	ActionMigrationApplied  AuditAction = "migration_applied"
	ActionBackupCreated     AuditAction = "backup_created"
	ActionRetentionSweep    AuditAction = "retention_sweep"
)

// RiskLevel is the assigned severity of an audited event.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// InvestigationStatus tracks review of flagged entries.
type InvestigationStatus string

const (
	InvestigationNone      InvestigationStatus = "none"
	InvestigationOpen      InvestigationStatus = "open"
	InvestigationResolved  InvestigationStatus = "resolved"
	InvestigationDismissed InvestigationStatus = "dismissed"
)

// Sensitivity classifies the data an audit entry touches; it drives the
// retention period.
type Sensitivity string

const (
	SensitivityPublic       Sensitivity = "public"
	SensitivityInternal     Sensitivity = "internal"
	SensitivityConfidential Sensitivity = "confidential"
	SensitivityRestricted   Sensitivity = "restricted"
)

// ActorInfo identifies who performed an audited action. IP and user agent are
// stored redacted.
type ActorInfo struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// RequestInfo captures the HTTP surface of an audited event for risk
// classification.
type RequestInfo struct {
	Method     string `json:"method,omitempty"`
	Path       string `json:"path,omitempty"`
	Query      string `json:"query,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

// SecurityInfo is the risk classification of an audit entry.
type SecurityInfo struct {
	RiskLevel           RiskLevel           `json:"risk_level"`
	RequiresReview      bool                `json:"requires_review"`
	IsSuspicious        bool                `json:"is_suspicious"`
	InvestigationStatus InvestigationStatus `json:"investigation_status"`
}

// ComplianceInfo carries retention metadata derived from data sensitivity.
type ComplianceInfo struct {
	Sensitivity          Sensitivity `json:"sensitivity"`
	RetentionDays        int         `json:"retention_days"`
	ScheduledForDeletion time.Time   `json:"scheduled_for_deletion"`
}

// IntegrityInfo holds the checksum of the entry's own content.
type IntegrityInfo struct {
	Checksum string `json:"checksum"`
}

// AuditLogEntry is one record in the system-wide append-only audit log.
// Entries are retained for the compliance period and then soft-deleted;
// they are never physically removed by the core.
type AuditLogEntry struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Action     AuditAction    `json:"action"`
	Category   AuditCategory  `json:"category"`
	EntityType string         `json:"entity_type,omitempty"`
	EntityID   string         `json:"entity_id,omitempty"`
	Actor      ActorInfo      `json:"actor"`
	Request    *RequestInfo   `json:"request,omitempty"`
	Detail     string         `json:"detail,omitempty"`
	Security   SecurityInfo   `json:"security"`
	Compliance ComplianceInfo `json:"compliance"`
	Integrity  IntegrityInfo  `json:"integrity"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Deleted    bool           `json:"deleted"`
}

// ActionCategory maps an audit action to its category. Unknown actions fall
// back to the system category.
func ActionCategory(action AuditAction) AuditCategory {
	switch action {
	case ActionLoginSuccess, ActionLoginFailed, ActionLogout, ActionPasswordChange,
		ActionPasswordReset, ActionTokenRefresh, ActionSessionExpired, ActionAccountLocked,
		ActionAccountUnlocked, ActionTwoFactorEnabled, ActionTwoFactorDisabled, ActionTwoFactorChallenge:
		return CategoryAuth
	case ActionUserCreate, ActionUserUpdate, ActionUserDelete, ActionUserActivate,
		ActionUserDeactivate, ActionProfileUpdate, ActionVoterRegister, ActionVoterVerify,
		ActionVoterAnonymize, ActionEligibilityChange:
		return CategoryUser
	case ActionElectionCreate, ActionElectionUpdate, ActionElectionDelete, ActionElectionPublish,
		ActionElectionActivate, ActionElectionComplete, ActionElectionCancel,
		ActionResultsRecompute, ActionResultsPublish:
		return CategoryElection
	case ActionCandidateCreate, ActionCandidateUpdate, ActionCandidateDelete, ActionCandidateWithdraw:
		return CategoryCandidate
	case ActionVoteCast, ActionVoteRejected, ActionVoteVerify, ActionVoteCount,
		ActionVoteInvalidate, ActionVoteChallenge, ActionVoteChallengeReview, ActionVoteReceiptIssued:
		return CategoryVoting
	case ActionAdminAction, ActionRoleChange, ActionSettingsUpdate, ActionDataExport, ActionDataPurge:
		return CategoryAdmin
	case ActionSuspiciousActivity, ActionAccessDenied, ActionRateLimited,
		ActionIntegrityFailure, ActionAttackSignature:
		return CategorySecurity
	default:
		return CategorySystem
	}
}
