// Package rbac maps campus roles to what they may do on the boards. Callers
// identify themselves by user id; there is no authentication layer.
package rbac

import "mentorlink/api/internal/directory"

type Action string

const (
	ActionMessage           Action = "message"
	ActionPost              Action = "post"
	ActionRequestMentorship Action = "request_mentorship"
	ActionMentor            Action = "mentor"
	ActionPostJob           Action = "post_job"
	ActionVerify            Action = "verify"
)

func Can(role directory.Role, action Action) bool {
	switch role {
	case directory.RoleAdmin:
		return true
	case directory.RoleFaculty:
		return action != ActionRequestMentorship && action != ActionVerify
	case directory.RoleAlumni:
		return action == ActionMessage || action == ActionPost || action == ActionMentor ||
			action == ActionPostJob
	case directory.RoleStudent:
		return action == ActionMessage || action == ActionPost || action == ActionRequestMentorship
	default:
		return false
	}
}
