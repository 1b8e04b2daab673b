package supportboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIURL: srv.URL, Token: "tok-1", BotUserID: "bot-1"})
}

func TestGetConversationParsesMixedIDTypes(t *testing.T) {
	var gotFunction, gotToken string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm failed: %v", err)
		}
		gotFunction = r.PostFormValue("function")
		gotToken = r.PostFormValue("token")

		// Support Board serializes ids inconsistently; numbers and strings
		// must both decode.
		w.Write([]byte(`{
			"success": true,
			"response": {
				"details": {"id": 815, "user_id": "42", "source": "wa"},
				"messages": [
					{"id": 1, "user_id": 42, "message": "hola"},
					{"id": "2", "user_id": "bot-1", "message": "¿en qué ayudo?"}
				]
			}
		}`))
	})

	conv, err := client.GetConversation(context.Background(), "815")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}

	if gotFunction != "get-conversation" {
		t.Errorf("expected get-conversation function, got %q", gotFunction)
	}
	if gotToken != "tok-1" {
		t.Errorf("expected token forwarded, got %q", gotToken)
	}
	if string(conv.Details.ID) != "815" || string(conv.Details.UserID) != "42" {
		t.Errorf("unexpected details: %+v", conv.Details)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(conv.Messages))
	}
	if string(conv.Messages[0].UserID) != "42" || string(conv.Messages[1].UserID) != "bot-1" {
		t.Errorf("unexpected message senders: %+v", conv.Messages)
	}
}

func TestGetConversationRejectsFailureEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success": false, "response": "invalid token"}`))
	})

	if _, err := client.GetConversation(context.Background(), "815"); err == nil {
		t.Fatal("expected error for success=false envelope")
	}
}

func TestSendBotMessageFields(t *testing.T) {
	var form url.Values
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm failed: %v", err)
		}
		form = r.PostForm
		w.Write([]byte(`{"success": true, "response": 99}`))
	})

	if err := client.SendBotMessage(context.Background(), "815", "Hola."); err != nil {
		t.Fatalf("SendBotMessage failed: %v", err)
	}

	if form.Get("function") != "send-message" {
		t.Errorf("expected send-message function, got %q", form.Get("function"))
	}
	if form.Get("conversation_id") != "815" {
		t.Errorf("expected conversation id, got %q", form.Get("conversation_id"))
	}
	if form.Get("user_id") != "bot-1" {
		t.Errorf("expected bot sender, got %q", form.Get("user_id"))
	}
	if form.Get("message") != "Hola." {
		t.Errorf("expected message text, got %q", form.Get("message"))
	}
	if form.Get("attachments") != "[]" {
		t.Errorf("expected empty attachments list, got %q", form.Get("attachments"))
	}
}

func TestFlexIDDecodesNullAsEmpty(t *testing.T) {
	var id FlexID
	if err := json.Unmarshal([]byte(`null`), &id); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if id != "" {
		t.Errorf("expected empty id for null, got %q", id)
	}
}
