// Command enrichd is a thin demonstration entry point: it wires config,
// the runtime client, the vector index, the router, the session store,
// and the Assembler together, then runs one enrichment call against
// whatever message is passed on the command line. It is not a dashboard
// or a long-running service. The three corpora are always empty in-memory
// readers: the database backend settings, the enabled switch and the
// history-compression toggle are not read here.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"enrichcore/internal/config"
	"enrichcore/internal/enrich/activitylog"
	"enrichcore/internal/enrich/assembler"
	"enrichcore/internal/enrich/cache"
	"enrichcore/internal/enrich/corpus"
	"enrichcore/internal/enrich/index"
	"enrichcore/internal/enrich/obs"
	"enrichcore/internal/enrich/router"
	"enrichcore/internal/enrich/runtime"
	"enrichcore/internal/enrich/session"
	"enrichcore/internal/observability"
)

func main() {
	sessionID := flag.String("session", "", "session ID to enrich against (generated if omitted)")
	flag.Parse()
	message := "what did we discuss about the deployment pipeline last week?"
	if flag.NArg() > 0 {
		message = flag.Arg(0)
	}
	if *sessionID == "" {
		generated := uuid.NewString()
		sessionID = &generated
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.Obs.LogPath, cfg.Obs.LogLevel)

	httpClient := observability.NewHTTPClient(nil)
	rt := runtime.New(runtime.Config{
		EmbedBaseURL: cfg.Embedding.BaseURL,
		EmbedPath:    cfg.Embedding.Path,
		EmbedModel:   cfg.Embedding.Model,
		EmbedHeader:  cfg.Embedding.APIHeader,
		EmbedAPIKey:  cfg.Embedding.APIKey,
		EmbedTimeout: cfg.Embedding.Timeout,
		GenBaseURL:   cfg.Generate.BaseURL,
		GenModel:     cfg.Generate.Model,
		GenTimeout:   cfg.Generate.Timeout,
	}, httpClient, log.Logger)

	memoryCorpus := corpus.NewInMemory(index.SourceMemory)
	chatCorpus := corpus.NewInMemory(index.SourceChat)
	telegramCorpus := corpus.NewInMemory(index.SourceTelegram)
	idx := index.New([]index.CorpusReader{memoryCorpus, chatCorpus, telegramCorpus}, cfg.Enrichment.VectorIndex.StaleAfter)

	var embedCache *cache.EmbeddingCache
	if cfg.Enrichment.Features.EmbeddingCache {
		embedCache = cache.New(cfg.Enrichment.Cache.MaxSize, cfg.Enrichment.Cache.TTL, func(ctx context.Context, text string) ([]float32, error) {
			out, err := rt.EmbedBatch(ctx, []string{text})
			if err != nil || len(out) == 0 {
				return nil, err
			}
			return out[0], nil
		})
	} else {
		embedCache = cache.New(0, 0, func(ctx context.Context, text string) ([]float32, error) {
			out, err := rt.EmbedBatch(ctx, []string{text})
			if err != nil || len(out) == 0 {
				return nil, err
			}
			return out[0], nil
		})
	}

	defaultRoute := router.Route(cfg.Enrichment.Routing.DefaultRoute)
	defaultPriority := router.Priority(cfg.Enrichment.Routing.DefaultPriority)
	rtr := router.New(rt, defaultRoute, defaultPriority, log.Logger)

	sessions := session.New()

	var metrics obs.Metrics = obs.NewOtelMetrics()

	var activity *activitylog.Log
	if cfg.Enrichment.Features.ActivityLog {
		activity = activitylog.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Key, log.Logger)
	}

	asm := assembler.New(idx, rtr, sessions, embedCache, metrics, activity, assembler.Params{
		TopK:                 cfg.Enrichment.RAG.TopK,
		MinScore:             cfg.Enrichment.RAG.MinScore,
		ShortTermMaxMessages: cfg.Enrichment.ShortTerm.MaxMessages,
		ShortTermMaxTokens:   cfg.Enrichment.ShortTerm.MaxTokens,
		OverallTimeout:       cfg.Enrichment.OverallTimeout,
		BranchTimeout:        cfg.Enrichment.BranchTimeout,
		DefaultRoute:         defaultRoute,
		DefaultPriority:      defaultPriority,
	}, log.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := asm.Assemble(ctx, message, *sessionID, assembler.Overrides{})
	if err != nil {
		fmt.Fprintln(os.Stderr, "assemble error:", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}
