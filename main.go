package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/afquintero/cierre-agent/agent/contract"
	routerx "github.com/afquintero/cierre-agent/agent/router"
	sessionx "github.com/afquintero/cierre-agent/agent/session"
	toolsx "github.com/afquintero/cierre-agent/agent/tools"
	configx "github.com/afquintero/cierre-agent/pkg/config"
	datalakex "github.com/afquintero/cierre-agent/pkg/datalake"
	httpapix "github.com/afquintero/cierre-agent/pkg/httpapi"
	llmx "github.com/afquintero/cierre-agent/pkg/llm"
	_ "github.com/afquintero/cierre-agent/pkg/logger/autoload"
	metricsx "github.com/afquintero/cierre-agent/pkg/metrics"
)

type AppConfig struct {
	// Backend selects where the closing data comes from: "datalake" (HTTP
	// summaries + parquet detail) or "sql" (closing database).
	Backend       string `envconfig:"AGENT_BACKEND" default:"datalake"`
	MaxToolRounds int    `envconfig:"AGENT_MAX_TOOL_ROUNDS" default:"10"`
	// SessionStore is "memory" or "redis".
	SessionStore string `envconfig:"AGENT_SESSION_STORE" default:"memory"`
	DatabaseDSN  string `envconfig:"DATABASE_DSN"`
}

func main() {
	listen := flag.String("listen", "", "serve the HTTP API on this address instead of the CLI")
	threadID := flag.String("thread", "1", "session id for the CLI conversation")

	appCfg := configx.MustNew[AppConfig]("")
	llmCfg := configx.MustNew[llmx.Config]("LLM")
	lakeCfg := configx.MustNew[datalakex.Config]("DATALAKE")

	ctx := context.Background()

	chatModel, err := llmCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("create chat model")
	}

	lake := datalakex.NewClient(*lakeCfg)
	mets := metricsx.New()

	registry, err := buildRegistry(appCfg, lake, *lakeCfg, mets)
	if err != nil {
		log.Fatal().Err(err).Msg("build tool registry")
	}

	store, err := buildSessionStore(appCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build session store")
	}

	opts := []routerx.Option{
		routerx.WithMaxToolRounds(appCfg.MaxToolRounds),
		routerx.WithMetrics(mets),
	}
	if *listen == "" {
		opts = append(opts, routerx.WithObserver(cliObserver{}))
	}

	agent, err := routerx.New(chatModel, registry, store, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("build routing agent")
	}

	if *listen != "" {
		api := httpapix.New(agent, lake, *lakeCfg, llmx.NewSDKClient(*llmCfg))
		log.Info().Str("addr", *listen).Msg("serving http api")
		if err := http.ListenAndServe(*listen, api.Handler()); err != nil {
			log.Fatal().Err(err).Msg("http server stopped")
		}
		return
	}

	runREPL(ctx, agent, *threadID)
}

func buildRegistry(cfg *AppConfig, lake *datalakex.Client, lakeCfg datalakex.Config, mets *metricsx.Metrics) (*toolsx.Registry, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "sql":
		if strings.TrimSpace(cfg.DatabaseDSN) == "" {
			return nil, fmt.Errorf("DATABASE_DSN is required for the sql backend")
		}
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DatabaseDSN)))
		db := bun.NewDB(sqldb, pgdialect.New())
		return toolsx.NewRegistry(mets, toolsx.SQLTools(toolsx.NewClosingStore(db))...)
	case "datalake":
		return toolsx.NewRegistry(mets, toolsx.DatalakeTools(lake, lakeCfg)...)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func buildSessionStore(cfg *AppConfig) (sessionx.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.SessionStore)) {
	case "memory", "":
		return sessionx.NewMemoryStore(), nil
	case "redis":
		redisCfg := configx.MustNew[sessionx.UpstashRedisConfig]("UPSTASH_REDIS")
		return sessionx.NewUpstashRedisStore(*redisCfg)
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}

func runREPL(ctx context.Context, agent *routerx.Router, threadID string) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Println("Ingrese la pregunta (/q para finalizar):")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/q") {
			return
		}

		reply, err := agent.Respond(ctx, threadID, line)
		if err != nil {
			log.Error().Str("session_id", threadID).Err(err).Msg("turn failed")
			fmt.Println(routerx.GenericErrorReply)
			continue
		}
		fmt.Println(reply)
	}
}

// cliObserver streams intermediate agent steps to the terminal.
type cliObserver struct{}

func (cliObserver) OnToolCall(req contractx.ToolRequest) {
	fmt.Printf("[tool] %s %v\n", req.Tool, req.Args)
}

func (cliObserver) OnToolResult(res contractx.ToolResult) {
	if res.Failed() {
		fmt.Printf("[tool] %s: sin datos (%v)\n", res.Tool, res.Err)
		return
	}
	fmt.Printf("[tool] %s: %d bytes\n", res.Tool, len(res.Output))
}
