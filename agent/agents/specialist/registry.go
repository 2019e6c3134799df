package specialist

import (
	"context"
	"fmt"

	routerx "github.com/codcoz/chefia/agent/agents/router"
	contractx "github.com/codcoz/chefia/agent/contract"
	llmx "github.com/codcoz/chefia/agent/llm"
	promptx "github.com/codcoz/chefia/agent/prompt"
)

type registryImpl struct {
	router  contractx.Router
	recipes contractx.Specialist
	tasks   contractx.Specialist
}

func (r *registryImpl) Router() contractx.Router {
	return r.router
}

func (r *registryImpl) Recipes() contractx.Specialist {
	return r.recipes
}

func (r *registryImpl) Tasks() contractx.Specialist {
	return r.tasks
}

// SpecialistFor is the single mapping from route to executor. Task traffic
// resolves to the task specialist, never to the recipe one.
func (r *registryImpl) SpecialistFor(route contractx.Route) (contractx.Specialist, error) {
	switch route {
	case contractx.RouteReceitas:
		return r.recipes, nil
	case contractx.RouteTarefas:
		return r.tasks, nil
	default:
		return nil, fmt.Errorf("%w: no specialist for route %q", contractx.ErrValidation, route)
	}
}

func NewRegistry(ctx context.Context, cfg llmx.Config, gateway contractx.ToolGateway) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()

	routerModelCfg := cfg.OpenRouterFor(llmx.StageRouter)
	routerModel, err := routerModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create router model: %v", contractx.ErrModelInvoke, err)
	}
	recipesModelCfg := cfg.OpenRouterFor(llmx.StageReceitas)
	recipesModel, err := recipesModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create recipes model: %v", contractx.ErrModelInvoke, err)
	}
	tasksModelCfg := cfg.OpenRouterFor(llmx.StageTarefas)
	tasksModel, err := tasksModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create tasks model: %v", contractx.ErrModelInvoke, err)
	}

	router, err := routerx.New(ctx, routerModel, prompts.Router)
	if err != nil {
		return nil, err
	}

	recipes, err := newSpecialist(ctx, contractx.RouteReceitas, recipesModel, prompts.Receitas, gateway)
	if err != nil {
		return nil, err
	}
	tasks, err := newSpecialist(ctx, contractx.RouteTarefas, tasksModel, prompts.Tarefas, gateway)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		router:  router,
		recipes: recipes,
		tasks:   tasks,
	}, nil
}
