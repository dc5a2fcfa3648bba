package whatsapp

import (
	"testing"

	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

func TestNew(t *testing.T) {
	t.Run("creates instance with defaults", func(t *testing.T) {
		w := New(DefaultConfig(), nil)
		if w == nil {
			t.Fatal("expected non-nil WhatsApp instance")
		}
		if w.Name() != "whatsapp" {
			t.Errorf("expected name 'whatsapp', got %s", w.Name())
		}
		if w.IsConnected() {
			t.Error("expected disconnected on creation")
		}
	})

	t.Run("fills empty session dir", func(t *testing.T) {
		w := New(Config{}, nil)
		if w.cfg.SessionDir == "" {
			t.Error("expected default session dir")
		}
	})
}

func TestParseJID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"full user JID", "5511999999999@s.whatsapp.net", "5511999999999@s.whatsapp.net", false},
		{"group JID", "123456789-1234@g.us", "123456789-1234@g.us", false},
		{"bare phone", "5511999999999", "5511999999999@s.whatsapp.net", false},
		{"formatted phone", "+55 (11) 99999-9999", "5511999999999@s.whatsapp.net", false},
		{"too short", "12345", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jid, err := parseJID(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseJID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && jid.String() != tt.want {
				t.Errorf("parseJID(%q) = %q, want %q", tt.in, jid.String(), tt.want)
			}
		})
	}
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		msg  *waE2E.Message
		want string
	}{
		{"nil message", nil, ""},
		{"conversation", &waE2E.Message{Conversation: proto.String("hello")}, "hello"},
		{
			"extended text",
			&waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("quoted reply")}},
			"quoted reply",
		},
		{"media only", &waE2E.Message{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractText(tt.msg); got != tt.want {
				t.Errorf("extractText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHandleMessageFiltering(t *testing.T) {
	newEvent := func(text string, group, fromMe bool) *events.Message {
		chat := types.NewJID("5511999999999", types.DefaultUserServer)
		if group {
			chat = types.NewJID("123456789", types.GroupServer)
		}
		return &events.Message{
			Info: types.MessageInfo{
				MessageSource: types.MessageSource{
					Chat:     chat,
					Sender:   types.NewJID("5511888888888", types.DefaultUserServer),
					IsFromMe: fromMe,
					IsGroup:  group,
				},
				ID:       "MSG1",
				PushName: "Tester",
			},
			Message: &waE2E.Message{Conversation: proto.String(text)},
		}
	}

	tests := []struct {
		name string
		cfg  Config
		evt  *events.Message
		want bool
	}{
		{"dm accepted", Config{RespondToDMs: true}, newEvent("hi", false, false), true},
		{"dm rejected when disabled", Config{RespondToDMs: false}, newEvent("hi", false, false), false},
		{"own message skipped", Config{RespondToDMs: true}, newEvent("hi", false, true), false},
		{"group rejected by default", Config{RespondToDMs: true}, newEvent("hi", true, false), false},
		{"group accepted when enabled", Config{RespondToGroups: true}, newEvent("hi", true, false), true},
		{
			"group trigger required",
			Config{RespondToGroups: true, Trigger: "@casa"},
			newEvent("turn off the lights", true, false),
			false,
		},
		{
			"group trigger present",
			Config{RespondToGroups: true, Trigger: "@casa"},
			newEvent("@casa turn off the lights", true, false),
			true,
		},
		{"empty text skipped", Config{RespondToDMs: true}, newEvent("", false, false), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(tt.cfg, nil)
			w.handleMessage(tt.evt)

			select {
			case msg := <-w.messages:
				if !tt.want {
					t.Fatalf("message emitted unexpectedly: %+v", msg)
				}
				if msg.Channel != "whatsapp" || msg.FromName != "Tester" {
					t.Errorf("msg = %+v", msg)
				}
			default:
				if tt.want {
					t.Fatal("expected message to be emitted")
				}
			}
		})
	}
}
