// Package tracker provides an analytics event forwarder with a durable batch mode.
//
// Typical flow:
//  1. Construct a Client with a token, a Storage backend and WithBatchMode.
//  2. Call Track and Engage from application code; each call queues the event in memory and
//     writes a snapshot of the queue to Storage before returning.
//  3. A background scheduler drains both queues on a fixed interval into batches of at most
//     50 events and posts them through the Transport. Failed batches are requeued and retried
//     on the next tick.
//
// Without WithBatchMode every call is sent immediately and nothing is queued or persisted.
//
// Storage backends live in the pebblestore, redisstore, mysql and sqlite packages.
package tracker
