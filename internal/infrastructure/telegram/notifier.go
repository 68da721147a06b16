package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"TourScanner/internal/domain"
	"TourScanner/internal/infrastructure/notify"
	"TourScanner/internal/ports"
)

const (
	defaultAPIBase  = "https://api.telegram.org"
	maxMessageRunes = 4096
	maxReplyBytes   = 64 << 10
)

// Notifier sends digests to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// WithEndpoint points the notifier at another Bot API host.
func (n *Notifier) WithEndpoint(apiBase string, client *http.Client) *Notifier {
	n.apiBase = strings.TrimSuffix(apiBase, "/")
	if client != nil {
		n.client = client
	}
	return n
}

// Notify posts the digest, split into as many messages as the API limit needs.
// Delivery stops at the first rejected message.
func (n *Notifier) Notify(ctx context.Context, records []domain.Record) error {
	if n.botToken == "" || n.chatID == "" {
		return &domain.NotifyError{Channel: "telegram", Err: eris.New("bot token and chat id are required")}
	}

	parts := splitMessage(notify.FormatDigest(records), maxMessageRunes)
	for i, text := range parts {
		if err := n.sendMessage(ctx, text); err != nil {
			return &domain.NotifyError{Channel: "telegram", Err: eris.Wrapf(err, "message %d of %d", i+1, len(parts))}
		}
	}
	return nil
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiReply struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (n *Notifier) sendMessage(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: n.chatID, Text: text, DisableWebPagePreview: true})
	if err != nil {
		return eris.Wrap(err, "marshal payload")
	}

	endpoint := n.apiBase + "/bot" + n.botToken + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return eris.Wrap(err, "read reply")
	}

	var reply apiReply
	decodeErr := json.Unmarshal(body, &reply)
	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && reply.Description != "" {
			return eris.Errorf("bot api status %d: %s", resp.StatusCode, reply.Description)
		}
		return eris.Errorf("bot api status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return eris.Wrap(decodeErr, "decode reply")
	}
	if !reply.OK {
		return eris.Errorf("bot api rejected message: %s", reply.Description)
	}
	return nil
}

// splitMessage cuts text on blank-line boundaries into parts of at most limit
// runes. A single block longer than limit is cut mid-block.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		parts   []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
			size = 0
		}
	}

	for _, block := range strings.SplitAfter(text, "\n\n") {
		n := utf8.RuneCountInString(block)
		if size+n > limit {
			flush()
		}
		for n > limit {
			runes := []rune(block)
			parts = append(parts, string(runes[:limit]))
			block = string(runes[limit:])
			n -= limit
		}
		current.WriteString(block)
		size += n
	}
	flush()
	return parts
}
