package queue

// Package queue implements the job queue and concurrency manager: admission
// control with a bounded number of running transcodes, inter-job cooldown,
// output-path conflict resolution, cancellation, retry, and the bounded
// completed-job ledger with age-based sweeping.
