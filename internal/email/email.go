package email

import (
	"context"
	"fmt"

	"github.com/Domenick1991/airretail/internal/kafka"
)

// Sender is the notification stub; real delivery lives in a separate system.
type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.OrderEvent) error {
	// Sweep events carry no recipient.
	if event.Email == "" {
		return nil
	}
	fmt.Printf("send email to %s about %s for order %s\n", event.Email, event.Type, event.OrderID)
	return nil
}
