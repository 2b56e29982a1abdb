// Package ingest turns provider webhook batches into stored, broadcast
// messages.
//
// A batch moves through four steps:
//
//  1. Parse: the batch object must be whatsapp_business_account; anything
//     else returns ErrUnsupportedObject and nothing is stored
//  2. Normalize: each provider message becomes a store.Message stamped with
//     received_at, keeping the provider's ID and timestamp
//  3. Persist: Append to the message store; a failed append is logged and
//     the rest of the batch continues
//  4. Broadcast: only persisted messages are published to the live feed and
//     mirrored to the configured relay
//
// Outbound sends take the shorter RecordSent path: the provider call has
// already succeeded, so the sent message is persisted and not broadcast.
//
// Nothing here retries. A provider redelivery of a message already stored
// within the dedupe window is counted as a duplicate and skipped.
package ingest
