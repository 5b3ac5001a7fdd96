package gateway

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

// DiscordNotifier posts run-completion summaries to one configured channel.
// It also satisfies Messenger so it can be managed like the other gateways.
type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordNotifier(token, channelID string) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %v", err)
	}
	return &DiscordNotifier{session: session, channelID: channelID}, nil
}

func (d *DiscordNotifier) Start() error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %v", err)
	}
	log.Printf("[discord] connected, notifying channel %s", d.channelID)
	return nil
}

// NotifyRunFinished is the orchestrator's completion hook.
func (d *DiscordNotifier) NotifyRunFinished(runID, status, detail string) {
	icon := "✅"
	if status != "passed" {
		icon = "❌"
	}
	text := fmt.Sprintf("%s Run `%s` finished: **%s**", icon, runID, status)
	if detail != "" {
		text += "\n> " + detail
	}
	if err := d.Send(d.channelID, text); err != nil {
		log.Printf("[discord] notify failed: %v", err)
	}
}

func (d *DiscordNotifier) Send(chatID string, text string) error {
	_, err := d.session.ChannelMessageSend(chatID, text)
	return err
}

func (d *DiscordNotifier) Stop() error {
	return d.session.Close()
}
