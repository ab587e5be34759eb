package discord

import "sync"

// voiceStates tracks which voice channel each user currently occupies.
//
// Discord's VOICE_STATE_UPDATE carries only the new state; the previous
// channel has to be remembered here. The same bookkeeping answers live
// member-count queries, which the delete-when-empty check depends on instead
// of event snapshots.
type voiceStates struct {
	mu sync.RWMutex

	// byGuild[guildID][userID] = channelID the user is connected to.
	byGuild map[string]map[string]string
	// counts[channelID] = number of connected users.
	counts map[string]int
}

func newVoiceStates() *voiceStates {
	return &voiceStates{
		byGuild: make(map[string]map[string]string),
		counts:  make(map[string]int),
	}
}

// apply records a user's new channel (empty means disconnected) and returns
// the channel they were in before, or "" if none.
func (v *voiceStates) apply(guildID, userID, channelID string) (old string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	users, ok := v.byGuild[guildID]
	if !ok {
		users = make(map[string]string)
		v.byGuild[guildID] = users
	}

	old = users[userID]
	if old == channelID {
		return old
	}

	if old != "" {
		if v.counts[old] > 0 {
			v.counts[old]--
		}
		if v.counts[old] == 0 {
			delete(v.counts, old)
		}
	}

	if channelID == "" {
		delete(users, userID)
	} else {
		users[userID] = channelID
		v.counts[channelID]++
	}
	return old
}

// count returns the number of users currently in the channel.
func (v *voiceStates) count(channelID string) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.counts[channelID]
}

// dropChannel forgets a channel and disconnects anyone recorded in it.
// Called when the bot deletes a channel, so stale entries don't survive.
// Channel IDs are globally unique, so no guild qualifier is needed.
func (v *voiceStates) dropChannel(channelID string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	delete(v.counts, channelID)
	for _, users := range v.byGuild {
		for userID, ch := range users {
			if ch == channelID {
				delete(users, userID)
			}
		}
	}
}
