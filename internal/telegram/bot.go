// Package telegram exposes the dashboard over a Telegram webhook bot:
// sector charts, gain tables and AI commentary on demand.
package telegram

import (
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"energydash/internal/ai"
	"energydash/internal/marketdata"
	"energydash/internal/storage"
)

type Bot struct {
	api *tgbotapi.BotAPI
	h   *Handlers
	log *zap.Logger
}

func NewBot(token, webhookURL string, svc *marketdata.Service, store *storage.Store, commentator *ai.Commentator, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	// set webhook
	webhook, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, err
	}
	if _, err := api.Request(webhook); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("telegram webhook set", zap.String("url", webhookURL))

	h := NewHandlers(api, svc, store, commentator, log)
	return &Bot{api: api, h: h, log: log}, nil
}

// WebhookHandler decodes Telegram updates (registered at /telegram/webhook).
func (b *Bot) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "bad update", 400)
		return
	}
	if update.Message != nil {
		b.log.Debug("telegram update",
			zap.Int64("chat_id", update.Message.Chat.ID),
			zap.String("text", update.Message.Text))
		go b.h.HandleMessage(update.Message)
	}
	w.WriteHeader(http.StatusOK)
}
