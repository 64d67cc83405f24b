package rules

import (
	"context"
	"testing"
	"time"

	"github.com/cubewhy/ZzxBot/automod/countstore"
	"github.com/cubewhy/ZzxBot/automod/event"

	"github.com/stretchr/testify/assert"
)

func TestBanNoticeRule(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, sink := engineFixture(t)

	notice := func(uid, operator string) *event.BanNoticeEvent {
		return &event.BanNoticeEvent{
			Base:       event.Base{SelfID: testSelfID},
			GroupID:    testGroupID,
			UserID:     uid,
			OperatorID: operator,
			Duration:   10 * time.Minute,
		}
	}

	// mutes applied by the bot itself are not counted
	assert.NoError(eng.ProcessEvent(ctx, notice("42", testSelfID)))
	assert.NoError(eng.ProcessEvent(ctx, notice("42", "1")))
	assert.NoError(eng.ProcessEvent(ctx, notice(testSelfID, "1")))

	n, err := eng.GetCount(ctx, CounterBanNotice, testGroupID, countstore.PeriodTotal)
	assert.NoError(err)
	assert.Equal(1, n)
	n, err = eng.GetCount(ctx, CounterBanNotice, "self", countstore.PeriodTotal)
	assert.NoError(err)
	assert.Equal(1, n)
	assert.Empty(sink.Methods())
}
