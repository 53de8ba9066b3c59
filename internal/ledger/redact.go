package ledger

import "mentorlink/api/internal/directory"

const (
	AnonymousAuthorID   = "anonymous"
	AnonymousAuthorName = "Anonymous Student"
)

// Redact returns the identity published on a forum post.
func Redact(user directory.User, isAnonymous bool) (authorID, authorName string) {
	if isAnonymous {
		return AnonymousAuthorID, AnonymousAuthorName
	}
	return user.ID, user.Name
}
