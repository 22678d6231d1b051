package service

import (
	"errors"
	"strings"
	"testing"

	"duemate/internal/domain"
)

func TestContactValidator(t *testing.T) {
	v := NewContactValidator(nil)
	cases := []struct {
		contact domain.Contact
		ok      bool
	}{
		{domain.EmailContact("user@example.com"), true},
		{domain.EmailContact("USER@Example.COM"), true},
		{domain.EmailContact("user@"), false},
		{domain.EmailContact(strings.Repeat("a", 195) + "@x.com"), false},
		{domain.PhoneContact("+911234567890"), true},
		{domain.PhoneContact("9876543210"), true},
		{domain.PhoneContact("987654321"), false},
		{domain.PhoneContact("+9198765432101"), false},
		{domain.PhoneContact(""), false},
	}
	for _, tc := range cases {
		err := v.Validate(tc.contact)
		if tc.ok && err != nil {
			t.Fatalf("%q: expected valid, got %v", tc.contact.Value, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidContact) {
			t.Fatalf("%q: expected ErrInvalidContact, got %v", tc.contact.Value, err)
		}
	}
}

func TestContactValidator_Messages(t *testing.T) {
	v := NewContactValidator(nil)
	err := v.Validate(domain.PhoneContact("123"))
	if err == nil || !strings.Contains(err.Error(), "between 10 and 13") {
		t.Fatalf("expected phone length message, got %v", err)
	}
	err = v.Validate(domain.EmailContact(""))
	if err == nil || !strings.Contains(err.Error(), "email is required") {
		t.Fatalf("expected required message, got %v", err)
	}
}
