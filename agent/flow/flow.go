// Package flow is the turn controller: it serializes turns per session,
// runs the router, dispatches specialists, and renders the final reply.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/codcoz/chefia/agent/contract"
	historyx "github.com/codcoz/chefia/agent/history"
)

type Flow struct {
	store    historyx.Store
	registry contractx.Registry

	graphRunner compose.Runnable[GraphInput, GraphOutput]

	loc *time.Location
	now func() time.Time
}

func New(store historyx.Store, registry contractx.Registry, loc *time.Location) (*Flow, error) {
	if store == nil {
		return nil, errors.New("history store is required")
	}
	if registry == nil {
		return nil, errors.New("agent registry is required")
	}
	if loc == nil {
		loc = time.UTC
	}

	f := &Flow{
		store:    store,
		registry: registry,
		loc:      loc,
		now:      time.Now,
	}

	graphRunner, err := f.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	f.graphRunner = graphRunner

	return f, nil
}

// HandleMessage runs one full turn. The session's turn lock is held for the
// whole pipeline, so concurrent requests against the same session serialize
// while distinct sessions run in parallel.
func (f *Flow) HandleMessage(ctx context.Context, sessionID, text string, tenant contractx.TenantContext) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", fmt.Errorf("%w: session id is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: user message is required", contractx.ErrValidation)
	}

	sess := f.store.GetOrCreate(sessionID)
	sess.Lock()
	defer sess.Unlock()

	turnID := uuid.NewString()
	started := f.now()
	log.Info().
		Str("turn_id", turnID).
		Str("session_id", sessionID).
		Msg("turn started")

	out, err := f.graphRunner.Invoke(ctx, GraphInput{
		Session: sess,
		Text:    text,
		Tenant:  tenant,
		Today:   f.now().In(f.loc).Format("2006-01-02"),
	})
	if err != nil {
		log.Error().
			Str("turn_id", turnID).
			Str("session_id", sessionID).
			Dur("elapsed", f.now().Sub(started)).
			Err(err).
			Msg("turn failed")
		return "", err
	}

	log.Info().
		Str("turn_id", turnID).
		Str("session_id", sessionID).
		Bool("forwarded", out.Forwarded).
		Dur("elapsed", f.now().Sub(started)).
		Msg("turn finished")

	return out.Reply, nil
}
