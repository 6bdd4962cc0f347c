package statepublisher

import (
	"context"
	"testing"
	"time"

	"github.com/einride/clock-go/pkg/mockclock"
	"github.com/einride/servicestatus-go/internal/gomockextra"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRedisPublisherProvider_RetriesOnClock(t *testing.T) {
	ctrl := gomock.NewController(gomockextra.GoroutineReporter(t))
	defer ctrl.Finish()
	c := mockclock.NewMockClock(ctrl)
	retry := make(chan time.Time, 1)
	retry <- time.Unix(0, 0)
	// the first retry fires right away, the second never does
	c.EXPECT().After(time.Hour).Return((<-chan time.Time)(retry)).Times(2)
	provider := RedisPublisherProvider(RedisConfig{
		Addr:           "127.0.0.1:1",
		KeyPrefix:      "servicestatus",
		Channel:        "servicestatus",
		ConnectTimeout: time.Second,
		RetryInterval:  time.Hour,
	}, c, zaptest.NewLogger(t))
	publisher, err := provider(context.Background())
	require.Nil(t, publisher)
	require.Error(t, err)
	require.Contains(t, err.Error(), "redis unavailable at 127.0.0.1:1 after 2 attempts")
}

