package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusReview, StatusProcessing, StatusCompleted, StatusCancelled} {
		if !ValidStatus(s) {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	for _, s := range []string{"", "Review", "shipped", "open"} {
		if ValidStatus(s) {
			t.Fatalf("expected %q to be invalid", s)
		}
	}
}

func TestUser_PasswordNeverSerialized(t *testing.T) {
	b, err := json.Marshal(User{ID: "u1", Email: "a@example.com", Password: "bcrypt-hash", Role: RoleUser})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "bcrypt-hash") || strings.Contains(string(b), "password") {
		t.Fatalf("password leaked into JSON: %s", b)
	}
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		User{}.TableName():        "users",
		Order{}.TableName():       "orders",
		ChatRoom{}.TableName():    "chat_rooms",
		Message{}.TableName():     "messages",
		Idempotency{}.TableName(): "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("table name mismatch: got %q want %q", got, want)
		}
	}
}
