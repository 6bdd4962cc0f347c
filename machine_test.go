package servicestatus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRecord_Apply_TransitionTable(t *testing.T) {
	type row struct {
		online, offline, starting, crash Status
	}
	table := map[Status]row{
		StatusRegistered:     {StatusUp, StatusDown, StatusStartingUp, StatusCrashed},
		StatusStartingUp:     {StatusUp, StatusDown, StatusStartingUp, StatusCrashed},
		StatusDelayedStart:   {StatusUp, StatusDown, StatusStartingUp, StatusCrashed},
		StatusUp:             {StatusUp, StatusDown, StatusRestarting, StatusCrashed},
		StatusDown:           {StatusUp, StatusDown, StatusRestarting, StatusCrashed},
		StatusRestarting:     {StatusUp, StatusDown, StatusRestarting, StatusCrashed},
		StatusDelayedRestart: {StatusUp, StatusDown, StatusRestarting, StatusCrashed},
		StatusCrashed:        {StatusUp, StatusDown, StatusRestarting, StatusCrashed},
	}
	require.Len(t, table, len(AllStatuses()))
	for from, expected := range table {
		for event, to := range map[Event]Status{
			Online():           expected.online,
			Offline():          expected.offline,
			Starting("tester"): expected.starting,
			Crash():            expected.crash,
		} {
			from, event, to := from, event, to
			t.Run(from.String()+"/"+event.String(), func(t *testing.T) {
				record := NewRecord("svc", from)
				transition := record.Apply(context.Background(), event)
				require.True(t, transition.Accepted)
				require.NoError(t, transition.Err)
				require.Equal(t, from, transition.From)
				require.Equal(t, to, transition.To)
				require.Equal(t, to, record.Status())
			})
		}
	}
}

func TestRecord_Apply_UnknownEventIsRejected(t *testing.T) {
	record := NewRecord("svc", StatusUp)
	transition := record.Apply(context.Background(), Event{Kind: EventKind(42)})
	require.False(t, transition.Accepted)
	require.ErrorIs(t, transition.Err, ErrIllegalTransition)
	require.Equal(t, StatusUp, transition.To)
	require.Equal(t, StatusUp, record.Status())
}

func TestRecord_Apply_History(t *testing.T) {
	ctx := context.Background()
	record := NewRecord("svc", StatusUp)
	_, ok := record.LastConcrete()
	require.False(t, ok)
	// without a concrete transition, history leaves the status unchanged
	transition := record.Apply(ctx, Online())
	require.True(t, transition.History)
	require.Equal(t, StatusUp, transition.To)
	require.Equal(t, StatusDown, record.Apply(ctx, Offline()).To)
	last, ok := record.LastConcrete()
	require.True(t, ok)
	require.Equal(t, StatusDown, last)
	transition = record.Apply(ctx, Offline())
	require.True(t, transition.History)
	require.Equal(t, StatusDown, transition.To)
	require.Equal(t, StatusUp, record.Apply(ctx, Online()).To)
}

func TestRecord_Apply_LastConcrete(t *testing.T) {
	ctx := context.Background()
	record := NewRecord("svc", StatusRegistered)
	record.Apply(ctx, Online())
	record.Apply(ctx, Crash())
	record.Apply(ctx, Starting("supervisor"))
	require.Equal(t, StatusRestarting, record.Status())
	last, ok := record.LastConcrete()
	require.True(t, ok)
	require.Equal(t, StatusUp, last)
}

func drawEvent(t *rapid.T, label string) Event {
	return rapid.SampledFrom([]Event{Online(), Offline(), Starting("rapid"), Crash()}).Draw(t, label)
}

func TestRecord_Apply_Properties(t *testing.T) {
	t.Run("offline then online from up returns to up", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			ctx := context.Background()
			record := NewRecord("svc", rapid.SampledFrom(AllStatuses()).Draw(t, "initial"))
			record.Apply(ctx, Online())
			require.Equal(t, StatusUp, record.Status())
			record.Apply(ctx, Offline())
			record.Apply(ctx, Online())
			require.Equal(t, StatusUp, record.Status())
		})
	})
	t.Run("only a crash keeps a crashed service crashed", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			record := NewRecord("svc", StatusCrashed)
			event := drawEvent(t, "event")
			transition := record.Apply(context.Background(), event)
			require.True(t, transition.Accepted)
			require.Equal(t, event.Kind == EventCrash, record.Status() == StatusCrashed)
		})
	})
	t.Run("last concrete tracks the last up or down entered", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			ctx := context.Background()
			record := NewRecord("svc", rapid.SampledFrom(AllStatuses()).Draw(t, "initial"))
			var expected Status
			for i, n := 0, rapid.IntRange(0, 50).Draw(t, "n"); i < n; i++ {
				transition := record.Apply(ctx, drawEvent(t, "event"))
				require.True(t, transition.Accepted)
				if transition.To.IsConcrete() {
					expected = transition.To
				}
			}
			last, ok := record.LastConcrete()
			require.Equal(t, expected.IsConcrete(), ok)
			if ok {
				require.Equal(t, expected, last)
			}
		})
	})
}

func TestParseStatus(t *testing.T) {
	for _, status := range AllStatuses() {
		parsed, err := ParseStatus(status.String())
		require.NoError(t, err)
		require.Equal(t, status, parsed)
	}
	_, err := ParseStatus("history")
	require.Error(t, err)
	require.False(t, Status(42).IsValid())
}

func TestParseEvent(t *testing.T) {
	for _, tc := range []struct {
		input    string
		expected Event
	}{
		{input: "online", expected: Online()},
		{input: "offline", expected: Offline()},
		{input: "crash", expected: Crash()},
		{input: "starting", expected: Starting("")},
		{input: "starting:supervisor", expected: Starting("supervisor")},
	} {
		event, err := ParseEvent(tc.input)
		require.NoError(t, err)
		require.Equal(t, tc.expected, event)
		require.Equal(t, tc.input, event.String())
	}
	for _, input := range []string{"", "restart", "online:someone"} {
		_, err := ParseEvent(input)
		require.Error(t, err, input)
	}
}
