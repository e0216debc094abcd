package line

import (
	"encoding/json"

	"attendance_line_bot/internal/app"
	domainLine "attendance_line_bot/internal/domain/line"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// WebhookHandler receives LINE webhook deliveries, normalizes each event and
// hands it to the flow engine. One batch may carry several events; a failure
// on one never aborts the rest.
type WebhookHandler struct {
	events        app.EventHandler
	client        domainLine.Client
	channelSecret string
	logger        *logrus.Logger
}

func NewWebhookHandler(events app.EventHandler, client domainLine.Client, channelSecret string, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		events:        events,
		client:        client,
		channelSecret: channelSecret,
		logger:        logger,
	}
}

// Register mounts the webhook route.
func (h *WebhookHandler) Register(router fiber.Router) {
	router.Post("/api/line/webhook", h.Handle)
}

type webhookEvent struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Source     struct {
		UserID string `json:"userId"`
	} `json:"source"`
	Message struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
	Postback struct {
		Data   string `json:"data"`
		Params struct {
			Date string `json:"date"`
		} `json:"params"`
	} `json:"postback"`
}

type webhookPayload struct {
	Events []webhookEvent `json:"events"`
}

func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	body := c.Body()
	signature := c.Get("X-Line-Signature")

	if h.channelSecret != "" && signature != "" {
		if !validSignature(body, h.channelSecret, signature) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid signature"})
		}
	} else {
		h.logger.Warn("LINE signature validation skipped: missing channel secret or X-Line-Signature header")
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.WithError(err).Error("failed to parse LINE webhook body")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	ctx := c.UserContext()
	for _, raw := range payload.Events {
		ev, ok := normalizeEvent(raw)
		if !ok {
			continue
		}
		msgs, err := h.events.HandleEvent(ctx, ev)
		if err != nil {
			// Drop the event, keep the batch going.
			h.logger.WithError(err).WithField("lineUserId", ev.SourceUserID).Error("failed to handle LINE webhook event")
			continue
		}
		if ev.ReplyToken == "" || len(msgs) == 0 {
			continue
		}
		if err := h.client.Reply(ctx, ev.ReplyToken, msgs); err != nil {
			// Session state is already persisted; the user can simply
			// interact again to get a fresh prompt.
			h.logger.WithError(err).Error("failed to reply to LINE")
		}
	}

	return c.JSON(fiber.Map{"ok": true})
}

// normalizeEvent maps a transport event onto the engine's event shape.
// Unsupported event types (stickers, images, unfollows) are skipped.
func normalizeEvent(raw webhookEvent) (domainLine.Event, bool) {
	ev := domainLine.Event{
		SourceUserID: raw.Source.UserID,
		ReplyToken:   raw.ReplyToken,
	}
	switch raw.Type {
	case "message":
		if raw.Message.Type != "text" {
			return domainLine.Event{}, false
		}
		ev.Kind = domainLine.EventText
		ev.Text = raw.Message.Text
	case "postback":
		ev.Kind = domainLine.EventPostback
		ev.PostbackData = raw.Postback.Data
		ev.PickedDate = raw.Postback.Params.Date
	case "follow":
		ev.Kind = domainLine.EventFollow
	default:
		return domainLine.Event{}, false
	}
	return ev, true
}
