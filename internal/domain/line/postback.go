package line

import (
	"net/url"
	"strings"
)

// Postback is the decoded form of a button's postback data: which flow the
// button belongs to, which question it answers, and the chosen value.
type Postback struct {
	Flow  string
	Key   string
	Value string
}

// Encode renders the compact colon-delimited form the bot emits.
func (p Postback) Encode() string {
	if p.Value == "" {
		return p.Flow + ":" + p.Key
	}
	return p.Flow + ":" + p.Key + ":" + p.Value
}

// ParsePostback decodes postback data. The current encoding is the compact
// `{flow}:{key}:{value}` form (value optional); older rich-menu builds
// emitted query-string data (`flow=...&key=...&value=...`, some with the
// `action=` spelling for the flow), so that form is still accepted.
func ParsePostback(data string) (Postback, bool) {
	data = strings.TrimSpace(data)
	if data == "" {
		return Postback{}, false
	}

	if strings.Contains(data, "=") {
		values, err := url.ParseQuery(data)
		if err != nil {
			return Postback{}, false
		}
		p := Postback{
			Flow:  values.Get("flow"),
			Key:   values.Get("key"),
			Value: values.Get("value"),
		}
		if p.Flow == "" {
			p.Flow = values.Get("action")
		}
		if p.Flow == "" {
			return Postback{}, false
		}
		if p.Key == "" {
			p.Key = "start"
		}
		return p, true
	}

	parts := strings.SplitN(data, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Postback{}, false
	}
	p := Postback{Flow: parts[0], Key: parts[1]}
	if len(parts) == 3 {
		p.Value = parts[2]
	}
	return p, true
}
