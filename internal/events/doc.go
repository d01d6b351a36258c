package events

// Package events fans job lifecycle notifications out to any number of
// observers without letting a slow observer stall the queue.
