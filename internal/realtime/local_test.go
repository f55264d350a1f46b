package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalBusRoutesByBaby(t *testing.T) {
	bus := NewLocalBus()
	ctx := context.Background()

	var all, onlyOne []Change
	cancelAll, err := bus.Subscribe(ctx, "", func(c Change) { all = append(all, c) })
	require.NoError(t, err)
	defer cancelAll()

	cancelOne, err := bus.Subscribe(ctx, "baby-1", func(c Change) { onlyOne = append(onlyOne, c) })
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, Change{Table: TableFeedingSessions, BabyID: "baby-1", Op: OpInsert}))
	require.NoError(t, bus.Publish(ctx, Change{Table: TableSleepSessions, BabyID: "baby-2", Op: OpInsert}))

	require.Len(t, all, 2)
	require.Len(t, onlyOne, 1)
	require.Equal(t, TableFeedingSessions, onlyOne[0].Table)
	require.False(t, onlyOne[0].At.IsZero())

	cancelOne()
	cancelOne()
	require.NoError(t, bus.Publish(ctx, Change{Table: TableDiaperEvents, BabyID: "baby-1", Op: OpInsert}))
	require.Len(t, onlyOne, 1)
	require.Len(t, all, 3)
}
