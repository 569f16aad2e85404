package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToVerificationStatus(t *testing.T) {
	assert.Equal(t, StatusVerified, ToVerificationStatus("VERIFIED"))
	assert.Equal(t, StatusUnverified, ToVerificationStatus("UNVERIFIED"))
	assert.Equal(t, StatusChangesRequested, ToVerificationStatus("CHANGES_REQUESTED"))
	assert.Equal(t, VerificationStatus(""), ToVerificationStatus("verified"))
	assert.Equal(t, VerificationStatus(""), ToVerificationStatus(""))
}

func TestDefaultStatus(t *testing.T) {
	assert.Equal(t, StatusChangesRequested, DefaultStatus)
	assert.True(t, DefaultStatus.IsValid())
}

func TestCommentFormatIsValid(t *testing.T) {
	assert.True(t, FormatHTML.IsValid())
	assert.True(t, FormatPlain.IsValid())
	assert.True(t, FormatMarkdown.IsValid())
	assert.False(t, CommentFormat("RTF").IsValid())
}

func TestUserRoleCanGrade(t *testing.T) {
	assert.True(t, UserRoleGrader.CanGrade())
	assert.True(t, UserRoleAdmin.CanGrade())
	assert.False(t, UserRoleLearner.CanGrade())
	assert.False(t, UserRoleVerifier.CanGrade())
	assert.False(t, UserRole("").CanGrade())
}
