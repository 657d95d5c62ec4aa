package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Workiva/go-datastructures/queue"
)

func TestScheduledItemOrdersEarliestFirst(t *testing.T) {
	pq := queue.NewPriorityQueue(4, false)
	base := time.Date(2026, time.July, 31, 0, 0, 0, 0, time.UTC)

	require.NoError(t, pq.Put(scheduledItem{job: Job{Name: JobGoodNight, FireAt: base.Add(3 * time.Hour)}}))
	require.NoError(t, pq.Put(scheduledItem{job: Job{Name: JobGoodAfternoon, FireAt: base.Add(1 * time.Hour)}}))
	require.NoError(t, pq.Put(scheduledItem{job: Job{Name: JobGoodEvening, FireAt: base.Add(2 * time.Hour)}}))

	first, err := pq.Get(1)
	require.NoError(t, err)
	require.Equal(t, JobGoodAfternoon, first[0].(scheduledItem).job.Name)

	second, err := pq.Get(1)
	require.NoError(t, err)
	require.Equal(t, JobGoodEvening, second[0].(scheduledItem).job.Name)

	third, err := pq.Get(1)
	require.NoError(t, err)
	require.Equal(t, JobGoodNight, third[0].(scheduledItem).job.Name)
}
