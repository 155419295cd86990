package core

import "fmt"

// Notification is the small fixed-size record exchanged over a task's
// notification channel: who raised it and a 16-bit application value.
//
// The zero Notification is the "no notification" sentinel; Receive returns
// it on timeout. Because live senders always carry a non-zero identity, a
// real notification is never mistaken for the sentinel even when its Value
// is zero.
type Notification struct {
	Sender Identity
	Value  uint16
}

// Word packs the notification into a single 32-bit value: the sender's
// identity word in the high half, the value in the low half.
func (n Notification) Word() uint32 {
	return uint32(n.Sender.Word())<<16 | uint32(n.Value)
}

// NotificationFromWord is the inverse of Word.
func NotificationFromWord(w uint32) Notification {
	return Notification{
		Sender: IdentityFromWord(uint16(w >> 16)),
		Value:  uint16(w),
	}
}

// IsZero reports whether n is the "no notification" sentinel.
func (n Notification) IsZero() bool {
	return n.Sender.IsZero() && n.Value == 0
}

func (n Notification) String() string {
	return fmt.Sprintf("notification{sender: %s, value: 0x%04x}", n.Sender, n.Value)
}
