package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/finclaw/internal/gateway"
	"github.com/user/finclaw/internal/types"
)

const maxTelegramMessage = 4096

// Adapter bridges Telegram to the gateway. Each Telegram user ID maps to
// an advisor owner; messages from unmapped users are ignored.
type Adapter struct {
	bot     *tgbotapi.BotAPI
	gateway *gateway.Gateway
	store   types.ConversationStore
	owners  map[int64]types.OwnerID

	mu    sync.RWMutex
	chats map[types.OwnerID]int64
}

// New creates a Telegram adapter. owners maps Telegram user IDs (as decimal
// strings) to owner IDs.
func New(token string, gw *gateway.Gateway, convStore types.ConversationStore, owners map[string]string) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	mapped, err := mapOwners(owners)
	if err != nil {
		return nil, err
	}

	return &Adapter{
		bot:     bot,
		gateway: gw,
		store:   convStore,
		owners:  mapped,
		chats:   make(map[types.OwnerID]int64),
	}, nil
}

// Start begins long-polling for Telegram updates.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			a.handleMessage(ctx, update.Message)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	owner, ok := a.owners[msg.From.ID]
	if !ok {
		slog.Warn("telegram message from unmapped user", "user_id", msg.From.ID)
		return
	}

	chatID := msg.Chat.ID
	a.mu.Lock()
	a.chats[owner] = chatID
	a.mu.Unlock()

	if msg.IsCommand() {
		a.handleCommand(ctx, owner, msg)
		return
	}

	_, err := a.gateway.Submit(owner, "", msg.Text, "telegram",
		gateway.WithOnComplete(func(reply *types.Message) {
			a.sendResponse(chatID, reply.Content)
		}),
		gateway.WithOnError(func(err error) {
			slog.Error("telegram turn failed", "owner", string(owner), "error", err)
			a.sendResponse(chatID, "Sorry, I encountered an error processing your message.")
		}),
	)
	if err != nil {
		slog.Error("submit telegram message", "error", err)
		a.sendResponse(chatID, "Sorry, I encountered an error processing your message.")
	}
}

func (a *Adapter) handleCommand(ctx context.Context, owner types.OwnerID, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		a.sendResponse(chatID, "Hello! I'm your assistant. Ask me about your emails, contacts, or calendar.")

	case "new":
		thread := &types.Thread{OwnerID: owner}
		if err := a.store.CreateThread(ctx, thread); err != nil {
			a.sendResponse(chatID, "Couldn't start a new conversation.")
			return
		}
		a.sendResponse(chatID, "Started a new conversation.")

	case "status":
		thread, err := a.store.ResolveThread(ctx, owner)
		if err != nil {
			a.sendResponse(chatID, "Error fetching status.")
			return
		}
		msgs, err := a.store.ListMessages(ctx, owner, thread.ID)
		if err != nil {
			a.sendResponse(chatID, "Error fetching status.")
			return
		}
		a.sendResponse(chatID, fmt.Sprintf("Conversation: %s\nMessages: %d", thread.Title, len(msgs)))

	default:
		a.sendResponse(chatID, "Unknown command. Available: /start, /new, /status")
	}
}

// Notify pushes a proactive message to an owner's most recent Telegram
// chat. Owners who have never messaged the bot cannot be reached.
func (a *Adapter) Notify(owner types.OwnerID, text string) error {
	a.mu.RLock()
	chatID, ok := a.chats[owner]
	a.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no known chat for owner %s", owner)
	}
	a.sendResponse(chatID, text)
	return nil
}

func (a *Adapter) sendResponse(chatID int64, text string) {
	parts := splitMessage(text)
	for _, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = "Markdown"
		if _, err := a.bot.Send(msg); err != nil {
			// Retry without markdown if it fails
			msg.ParseMode = ""
			if _, err := a.bot.Send(msg); err != nil {
				slog.Error("send telegram message", "error", err)
			}
		}
	}
}

func mapOwners(owners map[string]string) (map[int64]types.OwnerID, error) {
	mapped := make(map[int64]types.OwnerID, len(owners))
	for tgID, ownerID := range owners {
		uid, err := strconv.ParseInt(tgID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram user id %q: %w", tgID, err)
		}
		owner, err := types.ParseOwnerID(ownerID)
		if err != nil {
			return nil, fmt.Errorf("invalid owner id %q: %w", ownerID, err)
		}
		mapped[uid] = owner
	}
	return mapped, nil
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
