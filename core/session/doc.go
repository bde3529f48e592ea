// Package session runs one chat connection from upgrade to close.
//
// A session moves through Connecting, Active, Closing and Closed. While
// Connecting it optionally verifies a {"token":...} first frame, replays the
// history snapshot as a single JSON array frame (nothing when history is
// empty) and subscribes to the broadcast hub; snapshot and subscription come
// from one engine call so no message is missed or repeated.
//
// An Active session runs two loops. The inbound loop decodes text frames
// (one object or an array), applies the per-session rate limit and hands
// each message to the engine; invalid messages are logged and dropped. The
// outbound loop writes every hub message as one frame and sends keep-alive
// pings. Client pings are answered with a pong looked up through the
// Registry. When either loop stops the other is cancelled, and the session
// leaves the registry and releases its subscription exactly once.
package session
