package onebot

import (
	"encoding/json"
	"strings"

	"github.com/cubewhy/ZzxBot/onebot/cqcode"
)

// A single segment of an array-format message.
type segment struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Only the text segments of a message, concatenated. Handles both the array and the CQ-coded string message formats.
func plainText(msg json.RawMessage, rawMessage string) (string, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return cqcode.Strip(rawMessage), nil
	}
	if msg[0] == '"' {
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return "", err
		}
		return cqcode.Strip(s), nil
	}
	var segs []segment
	if err := json.Unmarshal(msg, &segs); err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, seg := range segs {
		if seg.Type != "text" {
			continue
		}
		var data struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(seg.Data, &data); err != nil {
			return "", err
		}
		sb.WriteString(data.Text)
	}
	return sb.String(), nil
}
