package domain

import "strings"

// Channel identifica por dónde se contacta al usuario.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// Contact es un identificador normalizado junto con su canal.
type Contact struct {
	Channel Channel
	Value   string
}

func EmailContact(email string) Contact {
	return Contact{Channel: ChannelEmail, Value: strings.ToLower(strings.TrimSpace(email))}
}

func PhoneContact(phone string) Contact {
	return Contact{Channel: ChannelPhone, Value: strings.TrimSpace(phone)}
}

// Identifier devuelve la clave usada para identidad y challenge.
func (c Contact) Identifier() string {
	return c.Value
}

func (c Contact) IsZero() bool {
	return c.Value == ""
}
