package telegram

import (
	"context"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type mockBotClient struct {
	mu sync.Mutex

	sendMessageFunc  func(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	sendMessageCalls int
	registered       []bot.HandlerFunc
}

func (m *mockBotClient) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	m.mu.Lock()
	m.sendMessageCalls++
	m.mu.Unlock()
	if m.sendMessageFunc != nil {
		return m.sendMessageFunc(ctx, params)
	}
	return &models.Message{ID: 1}, nil
}

func (m *mockBotClient) GetMe(ctx context.Context) (*models.User, error) {
	return &models.User{ID: 1, Username: "fathom_bot"}, nil
}

func (m *mockBotClient) RegisterHandler(handlerType bot.HandlerType, pattern string, matchType bot.MatchType, handler bot.HandlerFunc) {
	m.registered = append(m.registered, handler)
}

func (m *mockBotClient) Start(ctx context.Context) {}

func newTestAdapter(t *testing.T, allowedChatID string, handler Handler) (*Adapter, *mockBotClient) {
	t.Helper()
	a := &Adapter{config: Config{Token: "x", AllowedChatID: allowedChatID}}
	if err := a.config.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	a.handler = handler
	mock := &mockBotClient{}
	a.botClient = mock
	mock.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, a.onUpdate)
	return a, mock
}

func TestOnUpdateDeliversTextFromAllowedPeer(t *testing.T) {
	var gotChatID, gotText string
	a, mock := newTestAdapter(t, "42", func(ctx context.Context, chatID, text string) {
		gotChatID, gotText = chatID, text
	})

	mock.registered[0](context.Background(), nil, &models.Update{
		Message: &models.Message{Chat: models.Chat{ID: 42}, Text: "hello"},
	})

	if gotChatID != "42" || gotText != "hello" {
		t.Fatalf("chatID=%q text=%q", gotChatID, gotText)
	}
}

func TestOnUpdateDiscardsMessageFromOtherPeer(t *testing.T) {
	called := false
	var auditKind string
	a, mock := newTestAdapter(t, "42", func(ctx context.Context, chatID, text string) {
		called = true
	})
	a.config.Audit = func(ctx context.Context, kind, detail string) { auditKind = kind }

	mock.registered[0](context.Background(), nil, &models.Update{
		Message: &models.Message{Chat: models.Chat{ID: 999}, Text: "hello"},
	})

	if called {
		t.Fatalf("handler should not be invoked for a disallowed peer")
	}
	if auditKind != "telegram_peer_rejected" {
		t.Fatalf("auditKind = %q", auditKind)
	}
}

func TestOnUpdateAcceptsAnyPeerWhenAllowedChatIDEmpty(t *testing.T) {
	called := false
	a, mock := newTestAdapter(t, "", func(ctx context.Context, chatID, text string) {
		called = true
	})
	_ = a

	mock.registered[0](context.Background(), nil, &models.Update{
		Message: &models.Message{Chat: models.Chat{ID: 7}, Text: "hi"},
	})

	if !called {
		t.Fatalf("expected handler invoked when no peer restriction is configured")
	}
}

func TestOnUpdateIgnoresEmptyText(t *testing.T) {
	called := false
	_, mock := newTestAdapter(t, "", func(ctx context.Context, chatID, text string) {
		called = true
	})

	mock.registered[0](context.Background(), nil, &models.Update{
		Message: &models.Message{Chat: models.Chat{ID: 7}, Text: ""},
	})

	if called {
		t.Fatalf("empty text should not reach the handler")
	}
}

func TestSendParsesChatIDAndCallsSendMessage(t *testing.T) {
	a, mock := newTestAdapter(t, "", func(context.Context, string, string) {})
	var gotParams *bot.SendMessageParams
	mock.sendMessageFunc = func(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
		gotParams = params
		return &models.Message{ID: 1}, nil
	}

	if err := a.Send(context.Background(), "42", "reply text"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotParams.ChatID != int64(42) || gotParams.Text != "reply text" {
		t.Fatalf("params = %+v", gotParams)
	}
}

func TestSendRejectsNonNumericChatID(t *testing.T) {
	a, _ := newTestAdapter(t, "", func(context.Context, string, string) {})
	if err := a.Send(context.Background(), "not-a-number", "x"); err == nil {
		t.Fatalf("expected error for non-numeric chat id")
	}
}

func TestNewAdapterRejectsMissingToken(t *testing.T) {
	_, err := NewAdapter(Config{}, func(context.Context, string, string) {})
	if err == nil {
		t.Fatalf("expected error for missing token")
	}
}

func TestNewAdapterRejectsNilHandler(t *testing.T) {
	_, err := NewAdapter(Config{Token: "x"}, nil)
	if err == nil {
		t.Fatalf("expected error for nil handler")
	}
}
