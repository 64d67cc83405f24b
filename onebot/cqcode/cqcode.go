// Helpers for the CQ code markup that OneBot implementations parse out of string-format messages.
//
// Text reaching a send action is parsed for `[CQ:...]` codes, so anything derived from user input must go through Escape first.
package cqcode

import (
	"fmt"
	"regexp"
	"strings"
)

var code = regexp.MustCompile(`\[CQ:[^\]]*\]`)

var (
	escaper   = strings.NewReplacer("&", "&amp;", "[", "&#91;", "]", "&#93;")
	unescaper = strings.NewReplacer("&#91;", "[", "&#93;", "]", "&#44;", ",", "&amp;", "&")
)

// Escapes text so it is sent literally, rather than parsed for CQ codes.
func Escape(s string) string {
	return escaper.Replace(s)
}

func Unescape(s string) string {
	return unescaper.Replace(s)
}

// Removes every CQ code and unescapes what remains.
func Strip(s string) string {
	return Unescape(code.ReplaceAllString(s, ""))
}

// A mention of the given user.
func At(userID string) string {
	return fmt.Sprintf("[CQ:at,qq=%s]", Escape(userID))
}
