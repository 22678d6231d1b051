package notify

import (
	"fmt"
	"time"

	"duemate/internal/domain"
)

// OTPMessage arma el mensaje con el código de acceso para el canal del contacto.
func OTPMessage(contact domain.Contact, code string, ttl time.Duration) Message {
	minutes := int(ttl.Minutes())
	if minutes <= 0 {
		minutes = 1
	}
	return Message{
		Channel: contact.Channel,
		To:      contact.Value,
		Subject: "Duemate Sign In",
		Text:    fmt.Sprintf("Your Duemate OTP is: %s\nIt expires in %d minutes.\n", code, minutes),
	}
}

// ReminderMessage arma el recordatorio de un pago próximo o vencido.
func ReminderMessage(channel domain.Channel, to string, p domain.Payment, now time.Time) Message {
	deadline := p.Deadline.UTC().Format("January 02, 2006")
	text := fmt.Sprintf("Reminder: your payment %q of %.2f is due on %s.\n", p.Name, p.Amount, deadline)
	if p.IsOverdue(now) {
		text = fmt.Sprintf("Reminder: your payment %q of %.2f was due on %s and is overdue.\n", p.Name, p.Amount, deadline)
	}
	return Message{
		Channel: channel,
		To:      to,
		Subject: "Payment Reminder",
		Text:    text,
	}
}
