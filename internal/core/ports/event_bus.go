package ports

import "context"

// Event is a generic wrapper for any event payload.
type Event struct {
	Topic string
	Data  interface{}
}

// Topics published by the workflows after their transaction commits.
const (
	TopicSubmissionApproved  = "submission:approved"
	TopicSubmissionRejected  = "submission:rejected"
	TopicWithdrawalRequested = "withdrawal:requested"
	TopicWithdrawalApproved  = "withdrawal:approved"
	TopicWithdrawalRejected  = "withdrawal:rejected"
)

// EventHandler is a function that can handle a specific event.
type EventHandler func(ctx context.Context, event Event) error

// EventBus is the in-process pub/sub used to decouple workflow outcomes
// from user notifications. Publishing never blocks on handlers and a
// handler failure never affects the already-committed state.
type EventBus interface {
	Publish(ctx context.Context, topic string, data interface{}) error
	Subscribe(topic string, handler EventHandler)
}
