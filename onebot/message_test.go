package onebot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	assert := assert.New(t)

	testCases := []struct {
		msg      string
		raw      string
		expected string
	}{
		{msg: `[{"type":"text","data":{"text":"line one\n"}},{"type":"image","data":{"file":"x.png"}},{"type":"text","data":{"text":"line two"}}]`, expected: "line one\nline two"},
		{msg: `"[CQ:reply,id=5]/bl get 42"`, expected: "/bl get 42"},
		{msg: `"a &amp;#91; b"`, expected: "a &#91; b"},
		{msg: `null`, raw: "[CQ:at,qq=1]ping", expected: "ping"},
		{msg: `[]`, expected: ""},
	}
	for _, tc := range testCases {
		out, err := plainText(json.RawMessage(tc.msg), tc.raw)
		assert.NoError(err, tc.msg)
		assert.Equal(tc.expected, out, tc.msg)
	}

	_, err := plainText(json.RawMessage(`{"type":"text"}`), "")
	assert.Error(err)
}
