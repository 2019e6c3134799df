package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	specialistx "github.com/codcoz/chefia/agent/agents/specialist"
	flowx "github.com/codcoz/chefia/agent/flow"
	historyx "github.com/codcoz/chefia/agent/history"
	llmx "github.com/codcoz/chefia/agent/llm"
	toolx "github.com/codcoz/chefia/agent/tool"
	configx "github.com/codcoz/chefia/pkg/config"
	embeddingsx "github.com/codcoz/chefia/pkg/embeddings"
	_ "github.com/codcoz/chefia/pkg/logger/autoload"
	mongodbx "github.com/codcoz/chefia/pkg/mongodb"
	openrouterx "github.com/codcoz/chefia/pkg/openrouter"
	postgresx "github.com/codcoz/chefia/pkg/postgres"
	serverx "github.com/codcoz/chefia/server"
)

type AppConfig struct {
	Timezone        string        `envconfig:"TIMEZONE" split_words:"true" default:"America/Sao_Paulo"`
	SessionTTL      time.Duration `envconfig:"SESSION_TTL" split_words:"true" default:"0"`
	JanitorInterval time.Duration `envconfig:"JANITOR_INTERVAL" split_words:"true" default:"5m"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("APP")

	loc, err := time.LoadLocation(appCfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", appCfg.Timezone).Msg("load timezone")
	}

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	if err := llmCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid llm config")
	}

	orClient := openrouterx.NewClient(llmCfg.OpenRouterFor(llmx.StageRouter))
	if orClient == nil {
		log.Fatal().Msg("failed to initialize openrouter client")
	}
	if err := openrouterx.Ping(ctx, orClient); err != nil {
		log.Fatal().Err(err).Msg("openrouter unreachable")
	}

	mongoCfg := configx.MustNew[mongodbx.Config]("MONGODB")
	mongoClient, err := mongodbx.Connect(ctx, *mongoCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect mongodb")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("disconnect mongodb")
		}
	}()

	pgCfg := configx.MustNew[postgresx.Config]("POSTGRES")
	db, err := postgresx.Connect(ctx, *pgCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer db.Close()

	embCfg := configx.MustNew[embeddingsx.Config]("HF")
	embedder := embeddingsx.MustNew(*embCfg)

	recipes := toolx.NewRecipeStore(mongoClient.Database(mongoCfg.Database), embedder)
	tasks := toolx.NewTaskStore(db, loc)
	gateway := toolx.NewGateway(recipes, tasks)

	registry, err := specialistx.NewRegistry(ctx, *llmCfg, gateway)
	if err != nil {
		log.Fatal().Err(err).Msg("build agent registry")
	}

	store := historyx.NewMemoryStore(historyx.WithTTL(appCfg.SessionTTL))
	go store.RunJanitor(ctx, appCfg.JanitorInterval)

	flow, err := flowx.New(store, registry, loc)
	if err != nil {
		log.Fatal().Err(err).Msg("build flow")
	}

	srvCfg := configx.MustNew[serverx.Config]("HTTP")
	srv := serverx.New(*srvCfg, flow)
	if err := srv.Run(ctx, srvCfg.ShutdownTimeout); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}

	log.Info().Msg("shutdown complete")
}
