package protocol

// Sender is the outbound half of a client connection. Implementations must be
// safe for concurrent use; Send enqueues for ordered delivery on a single
// connection and returns an error if the connection can no longer accept
// messages.
type Sender interface {
	Send(env Envelope) error
}
