package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/interprep/internal/config"
)

func newWebhookEnv(t *testing.T, secret string) (*Webhook, *recordingHandler, chan sendMessageRequest) {
	t.Helper()

	sent := make(chan sendMessageRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/sendMessage") {
			var req sendMessageRequest
			json.NewDecoder(r.Body).Decode(&req)
			sent <- req
		}
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	t.Cleanup(srv.Close)

	bot := NewBot(config.TelegramConfig{
		Token:       "test-token",
		APIURL:      srv.URL,
		PollTimeout: time.Second,
	}, testLogger())

	handler := newRecordingHandler("готово")
	return NewWebhook(bot, handler, secret, testLogger()), handler, sent
}

const webhookUpdate = `{"update_id":7,"message":{"message_id":1,"from":{"id":42,"username":"gopher","first_name":"Гоша"},"chat":{"id":42,"type":"private"},"text":"/start"}}`

func TestWebhookRejectsBadSecret(t *testing.T) {
	t.Parallel()
	wh, handler, _ := newWebhookEnv(t, "s3cret")

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(webhookUpdate))
	req.Header.Set(secretHeader, "wrong")
	rec := httptest.NewRecorder()
	wh.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	select {
	case call := <-handler.calls:
		t.Errorf("handler called with %+v, want no calls", call)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWebhookRejectsBadJSON(t *testing.T) {
	t.Parallel()
	wh, _, _ := newWebhookEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	wh.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookDispatchesUpdate(t *testing.T) {
	t.Parallel()
	wh, handler, sent := newWebhookEnv(t, "s3cret")

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(webhookUpdate))
	req.Header.Set(secretHeader, "s3cret")
	rec := httptest.NewRecorder()
	wh.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	select {
	case call := <-handler.calls:
		if call.id.UserID != 42 || call.text != "/start" {
			t.Errorf("handler call = %+v", call)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}

	select {
	case reply := <-sent:
		if reply.ChatID != 42 || reply.Text != "готово" {
			t.Errorf("reply = %+v", reply)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reply was not sent")
	}
}

func TestWebhookIgnoresNonMessageUpdates(t *testing.T) {
	t.Parallel()
	wh, handler, _ := newWebhookEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(`{"update_id":9}`))
	rec := httptest.NewRecorder()
	wh.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	select {
	case call := <-handler.calls:
		t.Errorf("handler called with %+v, want no calls", call)
	case <-time.After(50 * time.Millisecond):
	}
}
