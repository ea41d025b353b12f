package models

import "strings"

// Route is the decision of which data sources are needed to answer a
// question: the document corpus, the relational store, or both.
type Route string

const (
	RouteRAG    Route = "rag"
	RouteSQL    Route = "sql"
	RouteHybrid Route = "hybrid"
)

// NormalizeRoute maps free-text router output onto one of the three valid
// routes by substring match, in priority order hybrid > sql > rag. Anything
// unrecognized normalizes to hybrid: ambiguous router output must fail open
// toward consulting more data sources, never fewer.
func NormalizeRoute(raw string) Route {
	label := strings.ToLower(strings.TrimSpace(raw))

	switch {
	case strings.Contains(label, string(RouteHybrid)):
		return RouteHybrid
	case strings.Contains(label, string(RouteSQL)):
		return RouteSQL
	case strings.Contains(label, string(RouteRAG)):
		return RouteRAG
	default:
		return RouteHybrid
	}
}

// NeedsSQL reports whether the route requires consulting the relational
// store.
func (r Route) NeedsSQL() bool {
	return r == RouteSQL || r == RouteHybrid
}
