package chat

import "sort"

// Transcript is the ordered-by-id message sequence for the open
// conversation. It is owned by the Session; nothing else mutates it, which
// keeps REST-loaded history and socket pushes from fighting over the list.
type Transcript struct {
	msgs []Message
}

// ReplaceAll installs the server's history wholesale, discarding anything
// appended in the meantime. Server history is authoritative and inclusive
// up to "now", so a replace after a live append loses nothing.
func (t *Transcript) ReplaceAll(msgs []Message) {
	t.msgs = append(t.msgs[:0:0], msgs...)
	sort.Slice(t.msgs, func(i, j int) bool { return t.msgs[i].ID < t.msgs[j].ID })
}

// Append inserts a live message in id order. Duplicate ids are dropped, so
// replaying a push that history already covered is harmless.
func (t *Transcript) Append(m Message) bool {
	i := sort.Search(len(t.msgs), func(i int) bool { return t.msgs[i].ID >= m.ID })
	if i < len(t.msgs) && t.msgs[i].ID == m.ID {
		return false
	}
	t.msgs = append(t.msgs, Message{})
	copy(t.msgs[i+1:], t.msgs[i:])
	t.msgs[i] = m
	return true
}

// MarkSentRead flips is_read on every message the given sender authored.
// Read receipts are a watermark: all-at-once, never per-message.
func (t *Transcript) MarkSentRead(senderID int64) int {
	n := 0
	for i := range t.msgs {
		if t.msgs[i].SenderID == senderID && !t.msgs[i].IsRead {
			t.msgs[i].IsRead = true
			n++
		}
	}
	return n
}

func (t *Transcript) Len() int { return len(t.msgs) }

// Messages returns a copy of the ordered sequence.
func (t *Transcript) Messages() []Message {
	return append([]Message(nil), t.msgs...)
}
