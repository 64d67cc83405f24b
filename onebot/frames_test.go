package onebot

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cubewhy/ZzxBot/automod/engine"
	"github.com/cubewhy/ZzxBot/automod/event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	base := event.Base{SelfID: "999", Time: time.Unix(1700000000, 0).UTC()}

	testCases := []struct {
		raw      string
		expected event.Event
	}{
		{
			raw:      `{"post_type":"message","message_type":"private","time":1700000000,"self_id":999,"message_id":7,"user_id":42,"message":"hi &#91;there&#93;[CQ:face,id=1]"}`,
			expected: &event.MessageEvent{Base: base, MessageID: "7", UserID: "42", Text: "hi [there]"},
		},
		{
			raw:      `{"post_type":"notice","notice_type":"group_increase","sub_type":"approve","time":1700000000,"self_id":999,"group_id":5555,"user_id":42,"operator_id":1001}`,
			expected: &event.GroupJoinEvent{Base: base, GroupID: "5555", UserID: "42", OperatorID: "1001"},
		},
		{
			raw:      `{"post_type":"notice","notice_type":"group_decrease","sub_type":"kick_me","time":1700000000,"self_id":999,"group_id":5555,"user_id":999,"operator_id":1001}`,
			expected: &event.GroupLeaveEvent{Base: base, GroupID: "5555", UserID: "999", OperatorID: "1001", SubType: "kick_me"},
		},
		{
			raw:      `{"post_type":"notice","notice_type":"group_ban","sub_type":"ban","time":1700000000,"self_id":999,"group_id":5555,"user_id":42,"operator_id":1001,"duration":600}`,
			expected: &event.BanNoticeEvent{Base: base, GroupID: "5555", UserID: "42", OperatorID: "1001", Duration: 10 * time.Minute},
		},
		{
			raw:      `{"post_type":"request","request_type":"friend","time":1700000000,"self_id":999,"user_id":42,"comment":"hello","flag":"f1"}`,
			expected: &event.FriendRequestEvent{Base: base, UserID: "42", Comment: "hello", Flag: "f1"},
		},
		{
			raw:      `{"post_type":"request","request_type":"group","sub_type":"add","time":1700000000,"self_id":999,"group_id":5555,"user_id":42,"invitor_id":43,"comment":"验证：ABC","flag":"f2"}`,
			expected: &event.GroupRequestEvent{Base: base, GroupID: "5555", UserID: "42", InviterID: "43", SubType: "add", Comment: "验证：ABC", Flag: "f2"},
		},
		{
			raw:      `{"post_type":"meta_event","meta_event_type":"lifecycle","time":1700000000,"self_id":999}`,
			expected: nil,
		},
		{
			raw:      `{"post_type":"notice","notice_type":"group_upload","time":1700000000,"self_id":999}`,
			expected: nil,
		},
	}

	for _, tc := range testCases {
		evt, err := decodeEvent([]byte(tc.raw))
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.expected, evt, tc.raw)
	}

	_, err := decodeEvent([]byte(`{"post_type":"bogus"}`))
	assert.Error(t, err)
}

func TestActionResponseError(t *testing.T) {
	assert := assert.New(t)

	ok := actionResponse{Status: "ok"}
	assert.NoError(ok.err("send_group_msg"))

	var f frame
	require.NoError(t, json.Unmarshal([]byte(`{"status":"failed","retcode":1404,"message":"no such group","echo":"1"}`), &f))
	failed := actionResponse{Status: f.Status, Retcode: f.Retcode, Message: f.errorMessage()}
	err := failed.err("send_group_msg")
	assert.ErrorIs(err, engine.ErrActionRejected)
	assert.Contains(err.Error(), "no such group")
	assert.Contains(err.Error(), "1404")
}
