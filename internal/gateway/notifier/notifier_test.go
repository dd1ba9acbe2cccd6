package notifier

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBot struct {
	mock.Mock
}

func (m *mockBot) Send(c tgbot.Chattable) (tgbot.Message, error) {
	args := m.Called(c)
	return tgbot.Message{}, args.Error(0)
}

type recordingSink struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (r *recordingSink) SendText(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return r.err
}

func TestTelegramRetriesThenSucceeds(t *testing.T) {
	bot := new(mockBot)
	bot.On("Send", mock.AnythingOfType("tgbotapi.MessageConfig")).Return(errors.New("timeout")).Once()
	bot.On("Send", mock.AnythingOfType("tgbotapi.MessageConfig")).Return(nil).Once()

	tg := newTelegramWithSender(bot, 42)
	require.NoError(t, tg.SendText("hello"))
	bot.AssertNumberOfCalls(t, "Send", 2)

	msg := bot.Calls[0].Arguments.Get(0).(tgbot.MessageConfig)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbot.ModeMarkdown, msg.ParseMode)
}

func TestTelegramGivesUp(t *testing.T) {
	bot := new(mockBot)
	bot.On("Send", mock.Anything).Return(errors.New("down"))

	err := newTelegramWithSender(bot, 1).SendText("x")
	assert.Error(t, err)
	bot.AssertNumberOfCalls(t, "Send", telegramAttempts)
}

func TestParseChatID(t *testing.T) {
	id, err := parseChatID(" -1001234 ")
	require.NoError(t, err)
	assert.Equal(t, int64(-1001234), id)

	_, err = parseChatID("@channel")
	assert.Error(t, err)
}

func TestDispatcherDeliversInOrderAndSwallowsErrors(t *testing.T) {
	sink := &recordingSink{err: errors.New("boom")}
	var results []error
	d := NewDispatcher(sink, 8, func(err error) { results = append(results, err) })

	d.Send("one")
	d.Send("")
	d.Send("two")
	d.Close()
	d.Send("after close")

	assert.Equal(t, []string{"one", "two"}, sink.texts)
	require.Len(t, results, 2)
	for _, err := range results {
		assert.EqualError(t, err, "boom")
	}
}

func TestRenderMarkdown(t *testing.T) {
	msg := StructuredMessage{Icon: "🚨", Title: "Alert BTC/USDT", Footer: "paper trading", Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	msg.Section("Signal", KV("score", 1), "", "reasons: RSI<30, MACD>signal").Section("Empty")

	out := msg.RenderMarkdown()
	assert.True(t, strings.HasPrefix(out, "🚨 Alert BTC/USDT\n\n```\nSignal\n- score: 1\n- reasons: RSI<30, MACD>signal\n```"))
	assert.NotContains(t, out, "Empty")
	assert.True(t, strings.HasSuffix(out, "Time: 2024-01-02 03:04:05 UTC"))
}

func TestRenderMarkdownTruncates(t *testing.T) {
	msg := StructuredMessage{Title: strings.Repeat("é", maxMessageLen)}
	out := msg.RenderMarkdown()
	assert.LessOrEqual(t, len(out), maxMessageLen+3)
	assert.True(t, strings.HasSuffix(out, "..."))
}

func TestRenderMarkdownTruncatedSectionsKeepFenceClosed(t *testing.T) {
	lines := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		lines = append(lines, KV(fmt.Sprintf("SYM%03d/USDT", i), strings.Repeat("x", 30)))
	}
	msg := StructuredMessage{Title: "Open positions", Footer: "paper trading"}
	msg.Section("Positions", lines...)

	out := msg.RenderMarkdown()
	assert.LessOrEqual(t, len(out), maxMessageLen+len("...")+len("\n```"))
	assert.Zero(t, strings.Count(out, "```")%2)
	assert.True(t, strings.HasSuffix(out, "...\n```"))
}
