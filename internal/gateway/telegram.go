package gateway

import (
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/arjun/flowtest/internal/orchestrator"
)

// TelegramGateway lets a chat start runs and poll their status.
type TelegramGateway struct {
	Bot  *tgbotapi.BotAPI
	Runs Runs
}

func NewTelegramGateway(token string, runs Runs) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	return &TelegramGateway{Bot: bot, Runs: runs}, nil
}

func (tg *TelegramGateway) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}

		log.Printf("[telegram] [%s] %s", update.Message.From.UserName, update.Message.Text)

		reply := tg.handleCommand(update.Message.Text)
		msg := tgbotapi.NewMessage(update.Message.Chat.ID, reply)
		tg.Bot.Send(msg)
	}
	return nil
}

func (tg *TelegramGateway) handleCommand(text string) string {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "/run"):
		args := strings.TrimSpace(strings.TrimPrefix(text, "/run"))
		if args == "" {
			return "Usage: /run <scenario> [doc=File.docx] [tag=smoke] [base_url=https://...]"
		}
		req := parseRunCommand(args)
		runID := tg.Runs.StartRun(req)
		return fmt.Sprintf("Run started: %s\nCheck progress with /status %s", runID, runID)
	case strings.HasPrefix(text, "/status"):
		runID := strings.TrimSpace(strings.TrimPrefix(text, "/status"))
		if runID == "" {
			return "Usage: /status <run-id>"
		}
		return FormatSnapshot(runID, tg.Runs.GetRun(runID))
	default:
		return "Commands: /run <scenario>, /status <run-id>"
	}
}

// parseRunCommand splits "key=value" tokens out of the command text; whatever
// remains is the scenario query. Unknown keys become test-data overrides.
func parseRunCommand(args string) orchestrator.RunRequest {
	var req orchestrator.RunRequest
	var queryParts []string
	for _, tok := range strings.Fields(args) {
		key, value, found := strings.Cut(tok, "=")
		if !found || value == "" {
			queryParts = append(queryParts, tok)
			continue
		}
		switch strings.ToLower(key) {
		case "doc":
			req.DocFilename = value
		case "tag", "tags":
			req.Tags = append(req.Tags, strings.Split(value, ",")...)
		case "base_url":
			req.BaseURL = value
		default:
			if req.Overrides == nil {
				req.Overrides = make(map[string]string)
			}
			req.Overrides[key] = value
		}
	}
	req.Query = strings.Join(queryParts, " ")
	return req
}

func (tg *TelegramGateway) Send(chatID string, text string) error {
	id := 0
	fmt.Sscanf(chatID, "%d", &id)
	if id == 0 {
		return fmt.Errorf("invalid chat ID: %s", chatID)
	}

	msg := tgbotapi.NewMessage(int64(id), text)
	msg.ParseMode = "Markdown"
	_, err := tg.Bot.Send(msg)
	return err
}

func (tg *TelegramGateway) Stop() error {
	tg.Bot.StopReceivingUpdates()
	return nil
}
