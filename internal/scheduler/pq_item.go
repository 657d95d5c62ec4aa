package scheduler

import "github.com/Workiva/go-datastructures/queue"

// scheduledItem adapts Job to queue.Item. Compare follows FireAt
// ordering: an earlier FireAt sorts as smaller, so the soonest job pops
// first from the ascending (lowest-first) PriorityQueue.
type scheduledItem struct {
	job Job
}

func (s scheduledItem) Compare(other queue.Item) int {
	o := other.(scheduledItem)
	switch {
	case s.job.FireAt.Before(o.job.FireAt):
		return -1
	case s.job.FireAt.After(o.job.FireAt):
		return 1
	default:
		return 0
	}
}
