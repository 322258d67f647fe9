package toolkit

import (
	"context"
	"encoding/json"
	"fmt"

	slack "github.com/slack-go/slack"

	"github.com/syncwise-ai/syncwise/pkg/domain"
)

func slackTools(creds domain.Credentials) []Tool {
	client := slack.New(creds.SlackUserToken)
	return []Tool{
		sendSlackMessage(client),
		listSlackChannels(client),
		getSlackChannelHistory(client),
	}
}

func sendSlackMessage(client *slack.Client) Tool {
	return Tool{
		Name:        "send_slack_message",
		Description: "Send a message to a Slack channel. channel is the channel ID, e.g. C0123456789.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"channel": map[string]any{"type": "string", "description": "Channel ID."},
				"text":    map[string]any{"type": "string", "description": "Message text."},
			},
			"required": []any{"channel", "text"},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			channel, ts, err := client.PostMessageContext(ctx,
				stringArg(args, "channel"),
				slack.MsgOptionText(stringArg(args, "text"), false),
			)
			if err != nil {
				return "", fmt.Errorf("posting message: %w", err)
			}
			return fmt.Sprintf("Message sent to %s at %s.", channel, ts), nil
		},
	}
}

func listSlackChannels(client *slack.Client) Tool {
	return Tool{
		Name:        "list_slack_channels",
		Description: "List the public Slack channels in the workspace with their IDs.",
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			channels, _, err := client.GetConversationsContext(ctx, &slack.GetConversationsParameters{
				Types:           []string{"public_channel"},
				ExcludeArchived: true,
				Limit:           100,
			})
			if err != nil {
				return "", fmt.Errorf("listing channels: %w", err)
			}
			type channel struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			}
			out := make([]channel, 0, len(channels))
			for _, c := range channels {
				out = append(out, channel{ID: c.ID, Name: c.Name})
			}
			b, err := json.Marshal(out)
			if err != nil {
				return "", fmt.Errorf("encoding channels: %w", err)
			}
			return string(b), nil
		},
	}
}

func getSlackChannelHistory(client *slack.Client) Tool {
	return Tool{
		Name:        "get_slack_channel_history",
		Description: "Fetch recent messages from a Slack channel, newest first.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"channel": map[string]any{"type": "string", "description": "Channel ID."},
				"limit":   map[string]any{"type": "integer", "description": "Maximum messages to return. Defaults to 20."},
			},
			"required": []any{"channel"},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			resp, err := client.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
				ChannelID: stringArg(args, "channel"),
				Limit:     intArg(args, "limit", 20),
			})
			if err != nil {
				return "", fmt.Errorf("fetching history: %w", err)
			}
			type message struct {
				User string `json:"user,omitempty"`
				Text string `json:"text"`
				TS   string `json:"ts"`
			}
			out := make([]message, 0, len(resp.Messages))
			for _, m := range resp.Messages {
				out = append(out, message{User: m.User, Text: m.Text, TS: m.Timestamp})
			}
			b, err := json.Marshal(out)
			if err != nil {
				return "", fmt.Errorf("encoding history: %w", err)
			}
			return string(b), nil
		},
	}
}
