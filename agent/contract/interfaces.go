package contract

import "context"

// Router forwards a query to the remote multi-agent routing endpoint.
type Router interface {
	Route(ctx context.Context, req RouteRequest) (AgentResponse, error)
}

// Classifier is the master agent. It either hands the query to a category or answers
// it directly.
type Classifier interface {
	Classify(ctx context.Context, req RouteRequest) (Classification, error)
}

// Specialist answers a query for one category.
type Specialist interface {
	Answer(ctx context.Context, req RouteRequest) (string, error)
}

type Registry interface {
	Master() Classifier
	Specialist(category Category) (Specialist, bool)
	AgentID(role Role) string
}

type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}
