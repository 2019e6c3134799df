package contract

import "context"

// RouterRequest is the input of the classification stage.
type RouterRequest struct {
	UserMessage string
	History     []Message
	Tenant      TenantContext
	Today       string
}

// RouterResult pairs the parsed outcome with the raw model text. The raw
// text is what gets appended to history so later stages see the exchange as
// the model emitted it.
type RouterResult struct {
	Outcome RouterOutcome
	Raw     string
}

type Router interface {
	Classify(ctx context.Context, req RouterRequest) (RouterResult, error)
}

// SpecialistRequest is the input of a specialist stage. RawEnvelope is the
// router's forwarding text verbatim; Envelope is its parsed form.
type SpecialistRequest struct {
	Envelope    ForwardEnvelope
	RawEnvelope string
	History     []Message
	Tenant      TenantContext
	Today       string
}

type Specialist interface {
	Resolve(ctx context.Context, req SpecialistRequest) (SpecialistAnswer, error)
}

// Registry exposes the fixed set of stages. SpecialistFor is the single
// place route values map to executors; tarefas always resolves to the task
// specialist.
type Registry interface {
	Router() Router
	Recipes() Specialist
	Tasks() Specialist
	SpecialistFor(route Route) (Specialist, error)
}

// ToolGateway executes tool requests on behalf of a specialist. Every
// data-accessing call is scoped by the tenant context; calls without a
// usable tenant id fail closed with a structured error in the result.
type ToolGateway interface {
	Execute(ctx context.Context, route Route, tenant TenantContext, reqs []ToolRequest) ([]ToolResult, error)
}
