package permissions

import api "github.com/OvyFlash/telegram-bot-api"

// CanModerate decides whether sender may gag or ungag target, given the
// chat's administrator list as returned by the platform. The owner may
// moderate anyone; administrators need the restrict-members capability and
// may never target the owner.
func CanModerate(members []api.ChatMember, senderID, targetID int64) bool {
	ownerID := ownerOf(members)
	if ownerID != 0 {
		if ownerID == senderID {
			return true
		}
		if ownerID == targetID {
			return false
		}
	}
	for i := range members {
		member := &members[i]
		if member.User == nil || member.User.ID != senderID {
			continue
		}
		return member.IsAdministrator() && member.CanRestrictMembers
	}
	return false
}

func ownerOf(members []api.ChatMember) int64 {
	for i := range members {
		if members[i].IsCreator() && members[i].User != nil {
			return members[i].User.ID
		}
	}
	return 0
}
