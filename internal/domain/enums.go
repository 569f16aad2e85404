package domain

type VerificationStatus string

const (
	StatusUnverified       VerificationStatus = "UNVERIFIED"
	StatusVerified         VerificationStatus = "VERIFIED"
	StatusChangesRequested VerificationStatus = "CHANGES_REQUESTED"

	// DefaultStatus is the status newly materialized slots start in.
	DefaultStatus = StatusChangesRequested
)

func (s VerificationStatus) IsValid() bool {
	switch s {
	case StatusUnverified, StatusVerified, StatusChangesRequested:
		return true
	default:
		return false
	}
}

func ToVerificationStatus(status string) VerificationStatus {
	switch status {
	case "UNVERIFIED":
		return StatusUnverified
	case "VERIFIED":
		return StatusVerified
	case "CHANGES_REQUESTED":
		return StatusChangesRequested
	default:
		return ""
	}
}

// CommentFormat tags how a slot's comment text should be rendered. The text
// itself is opaque to this service.
type CommentFormat string

const (
	FormatHTML     CommentFormat = "HTML"
	FormatPlain    CommentFormat = "PLAIN"
	FormatMarkdown CommentFormat = "MARKDOWN"

	DefaultCommentFormat = FormatHTML
)

func (f CommentFormat) IsValid() bool {
	switch f {
	case FormatHTML, FormatPlain, FormatMarkdown:
		return true
	default:
		return false
	}
}

type UserRole string

const (
	UserRoleLearner  UserRole = "learner"
	UserRoleGrader   UserRole = "grader"
	UserRoleVerifier UserRole = "verifier"
	UserRoleAdmin    UserRole = "admin"
)

// CanGrade reports whether the role may run grading batch operations.
func (r UserRole) CanGrade() bool {
	return r == UserRoleGrader || r == UserRoleAdmin
}
