package communication

import (
	"fmt"
	"os"

	"axiapac.com/timeclock/config"
	"github.com/slack-go/slack"
)

// Slack posts operational alerts, e.g. punches the replay worker gave up on.
type Slack struct {
	client  *slack.Client
	options SlackOption
}

type SlackOption struct {
	InfoChannelID  string
	ErrorChannelID string
	// APIURL overrides the Slack API base, used by tests.
	APIURL string
}

func ConnectSlack() *Slack {
	return FromConfig(config.NotifyConfig{
		SlackToken:   os.Getenv("SLACK_BOT_TOKEN"),
		InfoChannel:  os.Getenv("SLACK_INFO_CHANNEL"),
		ErrorChannel: os.Getenv("SLACK_ERROR_CHANNEL"),
	})
}

// FromConfig returns nil when Slack is not configured.
func FromConfig(cfg config.NotifyConfig) *Slack {
	if !cfg.Enabled() {
		return nil
	}
	return NewSlack(cfg.SlackToken, SlackOption{InfoChannelID: cfg.InfoChannel, ErrorChannelID: cfg.ErrorChannel})
}

func NewSlack(token string, options SlackOption) *Slack {
	var opts []slack.Option
	if options.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(options.APIURL))
	}
	client := slack.New(token, opts...)
	return &Slack{client: client, options: options}
}

func (s *Slack) postMessage(channelID, message string) error {
	if channelID == "" {
		return nil
	}
	_, _, err := s.client.PostMessage(
		channelID,
		slack.MsgOptionText(message, false),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		return fmt.Errorf("failed to post message to Slack: %w", err)
	}
	return nil
}

func (this *Slack) Info(message string) error {
	return this.postMessage(this.options.InfoChannelID, message)
}

func (this *Slack) Error(message string) error {
	return this.postMessage(this.options.ErrorChannelID, message)
}
