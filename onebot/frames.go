package onebot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cubewhy/ZzxBot/automod/engine"
	"github.com/cubewhy/ZzxBot/automod/event"
)

type actionRequest struct {
	Action string `json:"action"`
	Params any    `json:"params,omitempty"`
	Echo   string `json:"echo"`
}

type actionResponse struct {
	Status  string
	Retcode int
	Message string
	Wording string
	Data    json.RawMessage
}

func (r *actionResponse) err(action string) error {
	if r.Retcode == 0 && r.Status != "failed" {
		return nil
	}
	msg := r.Wording
	if msg == "" {
		msg = r.Message
	}
	return fmt.Errorf("%w: %s (retcode %d): %s", engine.ErrActionRejected, action, r.Retcode, msg)
}

// Union of every field we read from inbound frames: events, and responses to action calls.
type frame struct {
	// events
	PostType    string          `json:"post_type"`
	Time        int64           `json:"time"`
	SelfID      int64           `json:"self_id"`
	MessageType string          `json:"message_type"`
	NoticeType  string          `json:"notice_type"`
	RequestType string          `json:"request_type"`
	SubType     string          `json:"sub_type"`
	MessageID   int64           `json:"message_id"`
	GroupID     int64           `json:"group_id"`
	UserID      int64           `json:"user_id"`
	OperatorID  int64           `json:"operator_id"`
	InvitorID   int64           `json:"invitor_id"`
	Duration    int64           `json:"duration"`
	// segments or a CQ-coded string for events; an error string for action responses
	Msg         json.RawMessage `json:"message"`
	RawMessage  string          `json:"raw_message"`
	Comment     string          `json:"comment"`
	Flag        string          `json:"flag"`

	// action responses
	Status  string          `json:"status"`
	Retcode int             `json:"retcode"`
	Wording string          `json:"wording"`
	Data    json.RawMessage `json:"data"`
	Echo    string          `json:"echo"`
}

// The "message" of a failed action response.
func (f *frame) errorMessage() string {
	var s string
	if err := json.Unmarshal(f.Msg, &s); err != nil {
		return ""
	}
	return s
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid onebot ID %q: %w", s, err)
	}
	return id, nil
}

// Decodes an event frame. Returns nil (and no error) for events the engine does not handle, such as heartbeats.
func decodeEvent(raw []byte) (event.Event, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	base := event.Base{
		SelfID: formatID(f.SelfID),
		Time:   time.Unix(f.Time, 0).UTC(),
	}

	switch f.PostType {
	case "message", "message_sent":
		text, err := plainText(f.Msg, f.RawMessage)
		if err != nil {
			return nil, fmt.Errorf("decoding message %d: %w", f.MessageID, err)
		}
		evt := &event.MessageEvent{
			Base:      base,
			MessageID: formatID(f.MessageID),
			UserID:    formatID(f.UserID),
			Text:      text,
		}
		if f.MessageType == "group" {
			evt.GroupID = formatID(f.GroupID)
		}
		return evt, nil
	case "notice":
		switch f.NoticeType {
		case "group_increase":
			return &event.GroupJoinEvent{
				Base:       base,
				GroupID:    formatID(f.GroupID),
				UserID:     formatID(f.UserID),
				OperatorID: formatID(f.OperatorID),
			}, nil
		case "group_decrease":
			return &event.GroupLeaveEvent{
				Base:       base,
				GroupID:    formatID(f.GroupID),
				UserID:     formatID(f.UserID),
				OperatorID: formatID(f.OperatorID),
				SubType:    f.SubType,
			}, nil
		case "group_ban":
			return &event.BanNoticeEvent{
				Base:       base,
				GroupID:    formatID(f.GroupID),
				UserID:     formatID(f.UserID),
				OperatorID: formatID(f.OperatorID),
				Duration:   time.Duration(f.Duration) * time.Second,
			}, nil
		}
		return nil, nil
	case "request":
		switch f.RequestType {
		case "friend":
			return &event.FriendRequestEvent{
				Base:    base,
				UserID:  formatID(f.UserID),
				Comment: f.Comment,
				Flag:    f.Flag,
			}, nil
		case "group":
			return &event.GroupRequestEvent{
				Base:      base,
				GroupID:   formatID(f.GroupID),
				UserID:    formatID(f.UserID),
				InviterID: formatID(f.InvitorID),
				SubType:   f.SubType,
				Comment:   f.Comment,
				Flag:      f.Flag,
			}, nil
		}
		return nil, nil
	case "meta_event":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown post_type %q", f.PostType)
}
