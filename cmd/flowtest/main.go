package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/arjun/flowtest/internal/agent"
	"github.com/arjun/flowtest/internal/browser"
	"github.com/arjun/flowtest/internal/gateway"
	"github.com/arjun/flowtest/internal/observability"
	"github.com/arjun/flowtest/internal/orchestrator"
	"github.com/arjun/flowtest/internal/retrieval"
	"github.com/arjun/flowtest/internal/runner"
	"github.com/arjun/flowtest/internal/store"
	"github.com/arjun/flowtest/pkg/config"
)

func main() {
	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	configPath := "config.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg := config.LoadConfig(configPath)

	runStore := store.New(store.Options{
		Type:       cfg.Store.Type,
		Path:       cfg.Store.Path,
		TTLSeconds: cfg.Store.TTLSeconds,
	})
	defer runStore.Close()

	logger := observability.NewLogger()

	// Initialize LLM (using default enabled provider)
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		log.Fatal("No enabled provider found in config")
	}

	var llm llms.Model
	var err error
	switch pName {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	default:
		log.Fatalf("Provider %s not yet implemented in main", pName)
	}
	if err != nil {
		log.Fatal(err)
	}

	prompts := agent.NewPromptManager("./prompts")
	extractor := agent.NewExtractor(llm, prompts, logger)
	generator := agent.NewGenerator(llm, prompts, logger)

	retriever := retrieval.NewDocRetriever(cfg.Retrieval.DocsDir)

	driver := browser.NewDriver(browser.Config{
		Headless:      cfg.Runner.Headless,
		StepTimeout:   time.Duration(cfg.Runner.StepTimeoutMS) * time.Millisecond,
		SettleTimeout: time.Duration(cfg.Runner.SettleTimeoutMS) * time.Millisecond,
		SlowMo:        time.Duration(cfg.Runner.SlowMoMS) * time.Millisecond,
	})
	exec := runner.New(func(ctx context.Context) (runner.Session, error) {
		return driver.NewSession(ctx)
	}, runner.Options{OutputDir: cfg.Runner.OutputDir})

	orch := orchestrator.New(runStore, retriever, extractor, generator, exec, logger,
		orchestrator.Options{TopK: cfg.Retrieval.TopK})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var messengers []gateway.Messenger

	httpSrv := gateway.NewHTTPServer(cfg.Server.Addr, orch)
	go func() {
		if err := httpSrv.Start(); err != nil {
			log.Printf("\033[91m[ FAIL ] HTTP GATEWAY CRITICAL ERROR: %v\033[0m", err)
			stop()
		}
	}()

	if tgCfg, ok := cfg.GetGateway("telegram"); ok {
		tg, err := gateway.NewTelegramGateway(tgCfg.Token, orch)
		if err != nil {
			log.Fatal(err)
		}
		messengers = append(messengers, tg)
		go func() {
			if err := tg.Start(); err != nil {
				log.Printf("\033[91m[ FAIL ] TELEGRAM GATEWAY CRITICAL ERROR: %v\033[0m", err)
			}
		}()
	}

	if dcCfg, ok := cfg.GetGateway("discord"); ok {
		dc, err := gateway.NewDiscordNotifier(dcCfg.Token, dcCfg.ChannelID)
		if err != nil {
			log.Fatal(err)
		}
		if err := dc.Start(); err != nil {
			log.Printf("Warning: discord notifier unavailable: %v", err)
		} else {
			orch.SetNotifier(dc)
			messengers = append(messengers, dc)
		}
	}

	// Start Live Resource Dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
				logger.LogHeartbeat()
			}
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	// Stop accepting work, then drain in-flight runs with a grace window.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpSrv.Stop(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	for _, m := range messengers {
		if err := m.Stop(); err != nil {
			log.Printf("gateway shutdown: %v", err)
		}
	}
	if err := orch.Shutdown(shutdownCtx); err != nil {
		log.Printf("orchestrator shutdown: %v", err)
	}

	// Reset terminal aesthetics
	observability.CleanupTerminal()
	log.Println("\033[95m[ EXIT ] ALL RUNS DRAINED. GOODBYE.\033[0m")
}
