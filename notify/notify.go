/*
Package notify delivers status-change notifications to translators and
reviewers. Delivery is fire-and-forget: a failed notification is
logged and never blocks the transition that triggered it.
*/
package notify

import (
	"log"
)

// Notification is one message for a workflow participant.
type Notification struct {
	RecipientID int64  `json:"recipientId"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Link        string `json:"link"`
}

// Notifier accepts notifications for delivery.
type Notifier interface {
	Send(n Notification) error
}

// LogNotifier writes notifications to the process log. It stands in
// for a real delivery channel (email, in-app inbox) during local runs
// and tests.
type LogNotifier struct{}

func (LogNotifier) Send(n Notification) error {
	log.Printf("notify user %v: %v - %v (%v)", n.RecipientID, n.Title, n.Message, n.Link)
	return nil
}
