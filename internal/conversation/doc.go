// Package conversation provides the live-feed fan-out for the dashboard.
//
// # Overview
//
// The Hub is a named-room broadcaster. Dashboard sessions join the
// RoomLiveFeed room when they open the chat view; the ingestion pipeline
// publishes each message after it has been stored:
//
//	hub := conversation.NewHub(logger)
//	events := hub.Join(ctx, conversation.RoomLiveFeed, sessionID)
//	...
//	hub.Publish(conversation.RoomLiveFeed, msg)
//
// # Delivery
//
// Delivery is best-effort:
//
//   - Only sessions joined at publish time receive the event
//   - Each session has a bounded buffer; a full buffer drops the event for
//     that session only
//   - Nothing is replayed; clients reload history from the message store
//
// Publish iterates a snapshot of the room, so sessions joining or leaving
// concurrently never block or corrupt a publish.
//
// # Lifecycle
//
// A membership ends when the join context is cancelled (the websocket
// disconnected) or Leave is called. In both cases the session's channel is
// closed.
package conversation
