package chat

// Presence tracks transient per-user flags: whether a counterpart is typing
// and whether they are known to be online. Both are best-effort, fed only by
// push events, never persisted. Reset wipes them back to unknown after a
// reconnect; presence is not re-requested afterwards, so flags stay unknown
// until the next push.
type Presence struct {
	typing map[int64]bool
	online map[int64]bool
}

func NewPresence() *Presence {
	return &Presence{
		typing: make(map[int64]bool),
		online: make(map[int64]bool),
	}
}

func (p *Presence) SetTyping(userID int64, isTyping bool) {
	if isTyping {
		p.typing[userID] = true
	} else {
		delete(p.typing, userID)
	}
}

func (p *Presence) IsTyping(userID int64) bool { return p.typing[userID] }

func (p *Presence) SetOnline(userID int64) { p.online[userID] = true }

func (p *Presence) IsOnline(userID int64) bool { return p.online[userID] }

func (p *Presence) Reset() {
	p.typing = make(map[int64]bool)
	p.online = make(map[int64]bool)
}
