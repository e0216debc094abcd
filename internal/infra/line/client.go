package line

import (
	"context"
	"fmt"
	"time"

	domainLine "attendance_line_bot/internal/domain/line"

	"github.com/go-resty/resty/v2"
)

const defaultAPIBaseURL = "https://api.line.me"

// RestyClient implements the domain line.Client interface against the LINE
// Messaging API.
type RestyClient struct {
	http *resty.Client
}

func NewRestyClient(channelAccessToken string) *RestyClient {
	httpClient := resty.New().
		SetBaseURL(defaultAPIBaseURL).
		SetAuthToken(channelAccessToken).
		SetTimeout(10 * time.Second)
	return &RestyClient{http: httpClient}
}

// SetBaseURL overrides the API host, used by tests.
func (c *RestyClient) SetBaseURL(baseURL string) {
	c.http.SetBaseURL(baseURL)
}

func (c *RestyClient) Reply(ctx context.Context, replyToken string, msgs []domainLine.Message) error {
	body := map[string]interface{}{
		"replyToken": replyToken,
		"messages":   encodeMessages(msgs),
	}
	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post("/v2/bot/message/reply")
	if err != nil {
		return fmt.Errorf("reply request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("reply rejected: %s: %s", resp.Status(), resp.String())
	}
	return nil
}

func (c *RestyClient) Push(ctx context.Context, to string, msgs []domainLine.Message) error {
	body := map[string]interface{}{
		"to":       to,
		"messages": encodeMessages(msgs),
	}
	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post("/v2/bot/message/push")
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("push rejected: %s: %s", resp.Status(), resp.String())
	}
	return nil
}

func (c *RestyClient) Profile(ctx context.Context, userID string) (*domainLine.Profile, error) {
	var result struct {
		DisplayName string `json:"displayName"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(&result).Get("/v2/bot/profile/" + userID)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("profile rejected: %s: %s", resp.Status(), resp.String())
	}
	return &domainLine.Profile{DisplayName: result.DisplayName}, nil
}

// encodeMessages renders the outbound messages as LINE API text messages,
// attaching quick options as quick-reply buttons. Quick-reply labels are
// capped at 20 characters by the API.
func encodeMessages(msgs []domainLine.Message) []map[string]interface{} {
	encoded := make([]map[string]interface{}, 0, len(msgs))
	for _, m := range msgs {
		out := map[string]interface{}{
			"type": "text",
			"text": m.Text,
		}
		if len(m.QuickOptions) > 0 {
			items := make([]map[string]interface{}, 0, len(m.QuickOptions))
			for _, opt := range m.QuickOptions {
				items = append(items, map[string]interface{}{
					"type":   "action",
					"action": encodeAction(opt),
				})
			}
			out["quickReply"] = map[string]interface{}{"items": items}
		}
		encoded = append(encoded, out)
	}
	return encoded
}

func encodeAction(opt domainLine.QuickOption) map[string]interface{} {
	if opt.DatePicker {
		return map[string]interface{}{
			"type":  "datetimepicker",
			"label": opt.Label,
			"data":  opt.PostbackData,
			"mode":  "date",
		}
	}
	action := map[string]interface{}{
		"type":  "postback",
		"label": opt.Label,
		"data":  opt.PostbackData,
	}
	if opt.DisplayText != "" {
		action["displayText"] = opt.DisplayText
	}
	return action
}
