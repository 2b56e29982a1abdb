// Package gateway wires the wadash server together and serves its HTTP
// surface.
//
// # Components
//
// New builds every long-lived component from the configuration:
//
//   - the record store on the configured backend (file, sqlite or memory)
//   - the live-feed Hub
//   - the dedupe window and optional Redis/AMQP relays
//   - the ingestion pipeline that ties them together
//   - the Graph API client and the operator authenticator
//
// Run serves HTTP until its context is cancelled and then shuts down with a
// 5 second grace period.
//
// # Routes
//
// Public:
//
//	GET  /health
//	GET  /webhook                  provider subscription handshake
//	POST /webhook                  provider event delivery
//	GET  /ws?token=...             live feed (websocket)
//	POST /api/auth/login
//
// Behind the bearer-token middleware:
//
//	GET  /api/auth/me
//	POST /api/auth/change-password
//	GET  /api/chat/messages?page=&limit=
//	GET  /api/chat/contacts
//	POST /api/chat/contacts
//	GET  /api/chat/stats
//	GET  /api/chat/search?query=&from=&type=
//	GET  /api/whatsapp/config
//	POST /api/whatsapp/config
//	POST /api/whatsapp/verify-webhook
//	GET  /api/whatsapp/profile
//	POST /api/whatsapp/send-message
//
// API responses are JSON objects with a success flag; failures carry a
// human-readable message.
//
// # Live feed
//
// A websocket client sends {"type":"join_chat"} and receives
// {"type":"joined"}, then one {"type":"new_message","message":{...}} frame
// per stored inbound message. {"type":"leave_chat"} stops delivery.
package gateway
