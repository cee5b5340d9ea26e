// Package router implements the router (C4): a single classification call
// to the model runtime that maps an incoming message, plus a little
// recent history, onto a closed set of routes and priorities.
package router

import (
	"context"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/rs/zerolog"
)

// Route is one of a closed set of downstream destinations. Values outside
// the set are rejected at parse time and replaced with the router's
// default.
type Route string

const (
	RouteClaudeHaiku  Route = "claude_haiku"
	RouteClaudeSonnet Route = "claude_sonnet"
	RouteClaudeOpus   Route = "claude_opus"
	RouteLocalQwen    Route = "local_qwen"
	RouteFallback     Route = "fallback"
)

// Priority is a closed-set urgency hint attached to a Decision.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var validRoutes = map[Route]struct{}{
	RouteClaudeHaiku:  {},
	RouteClaudeSonnet: {},
	RouteClaudeOpus:   {},
	RouteLocalQwen:    {},
	RouteFallback:     {},
}

var validPriorities = map[Priority]struct{}{
	PriorityHigh:   {},
	PriorityMedium: {},
	PriorityLow:    {},
}

// Decision is the outcome of one classification call.
type Decision struct {
	Route    Route
	Priority Priority
	Reason   string
}

// Turn is the minimal shape of recent history the router's prompt needs;
// it mirrors session.Turn without importing the session package.
type Turn struct {
	Role    string
	Content string
}

// Generator is satisfied by runtime.Client.
type Generator interface {
	Generate(ctx context.Context, prompt string, jsonMode bool) (string, error)
}

var promptTemplate = template.Must(template.New("classify").Parse(
	`Classify the following message into exactly one route and one priority.

Routes: claude_haiku, claude_sonnet, claude_opus, local_qwen, fallback
Priorities: high, medium, low

Respond with a single JSON object: {"route": "...", "priority": "...", "reason": "..."}

{{range .History}}{{.Role}}: {{.Content}}
{{end}}user: {{.Message}}
`))

// Router classifies messages by calling gen.Generate once per message.
type Router struct {
	gen             Generator
	defaultRoute    Route
	defaultPriority Priority
	log             zerolog.Logger
}

// New constructs a Router. defaultRoute/defaultPriority are used whenever
// classification fails outright or returns a value outside the closed
// set.
func New(gen Generator, defaultRoute Route, defaultPriority Priority, log zerolog.Logger) *Router {
	if _, ok := validRoutes[defaultRoute]; !ok {
		defaultRoute = RouteFallback
	}
	if _, ok := validPriorities[defaultPriority]; !ok {
		defaultPriority = PriorityMedium
	}
	return &Router{
		gen:             gen,
		defaultRoute:    defaultRoute,
		defaultPriority: defaultPriority,
		log:             log.With().Str("component", "router").Logger(),
	}
}

type classifyResponse struct {
	Route    string `json:"route"`
	Priority string `json:"priority"`
	Reason   string `json:"reason"`
}

// Classify runs one classification call. On any runtime error, malformed
// response, or out-of-set value it logs at debug level and falls back to
// the router's configured defaults rather than propagating the error to
// the caller.
func (r *Router) Classify(ctx context.Context, message string, history []Turn) Decision {
	prompt, err := r.renderPrompt(message, history)
	if err != nil {
		r.log.Debug().Err(err).Msg("render classify prompt failed, using default route")
		return r.fallback("prompt render failed")
	}

	raw, err := r.gen.Generate(ctx, prompt, true)
	if err != nil {
		r.log.Debug().Err(err).Msg("classify generate call failed, using default route")
		return r.fallback("runtime call failed")
	}

	jsonBody, ok := extractJSON(raw)
	if !ok {
		r.log.Debug().Str("raw", raw).Msg("classify response had no JSON object, using default route")
		return r.fallback("no JSON object in response")
	}

	var resp classifyResponse
	if err := json.Unmarshal([]byte(jsonBody), &resp); err != nil {
		r.log.Debug().Err(err).Msg("classify response JSON malformed, using default route")
		return r.fallback("malformed JSON response")
	}

	route := Route(resp.Route)
	if _, ok := validRoutes[route]; !ok {
		r.log.Debug().Str("route", resp.Route).Msg("classify response named an unknown route, using default")
		route = r.defaultRoute
	}
	priority := Priority(resp.Priority)
	if _, ok := validPriorities[priority]; !ok {
		priority = r.defaultPriority
	}
	return Decision{Route: route, Priority: priority, Reason: resp.Reason}
}

func (r *Router) fallback(reason string) Decision {
	return Decision{Route: r.defaultRoute, Priority: r.defaultPriority, Reason: reason}
}

func (r *Router) renderPrompt(message string, history []Turn) (string, error) {
	var b strings.Builder
	err := promptTemplate.Execute(&b, struct {
		History []Turn
		Message string
	}{History: history, Message: message})
	return b.String(), err
}

// extractJSON returns the first balanced top-level {...} object found in s.
func extractJSON(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
