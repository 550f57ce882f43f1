package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"maestro/internal/infra/config"
	"maestro/internal/infra/logger"
	"maestro/internal/infra/tracer"
	"maestro/internal/usecase/assembler"
	"maestro/internal/usecase/quota"
	"maestro/internal/usecase/scheduling"
)

const version = "0.4.0"

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		showUsage()
	case "version":
		fmt.Println("maestro " + version)
	case "plan":
		if err := runPlan(false); err != nil {
			fmt.Fprintf(os.Stderr, "plan: %v\n", err)
			os.Exit(1)
		}
	case "explain":
		if err := runPlan(true); err != nil {
			fmt.Fprintf(os.Stderr, "explain: %v\n", err)
			os.Exit(1)
		}
	case "forecast":
		if err := runForecast(); err != nil {
			fmt.Fprintf(os.Stderr, "forecast: %v\n", err)
			os.Exit(1)
		}
	case "daemon":
		if err := runDaemon(); err != nil {
			fmt.Fprintf(os.Stderr, "daemon: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		showUsage()
		os.Exit(2)
	}
}

func showUsage() {
	fmt.Println(`maestro - model-routing decision engine

Usage:
  maestro plan <inputs.yaml>      compute and print a routing plan
  maestro explain <inputs.yaml>   print per-role explanations for a plan
  maestro forecast <inputs.yaml>  project quota exhaustion from usage history
  maestro daemon <inputs.yaml>    re-plan on a schedule, printing plan diffs
  maestro version                 print the version

Flags:
  MAESTRO_CONFIG                  path to config file (default maestro.yaml)`)
}

func configPath() string {
	if p := os.Getenv("MAESTRO_CONFIG"); p != "" {
		return p
	}
	return "maestro.yaml"
}

func setup() (*config.Config, *slog.Logger, func(), error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, nil, nil, err
	}
	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, nil, err
	}
	shutdownTracer, err := tracer.Setup(context.Background(), cfg.Tracer)
	if err != nil {
		_ = closeLog()
		return nil, nil, nil, err
	}
	cleanup := func() {
		_ = shutdownTracer(context.Background())
		_ = closeLog()
	}
	return cfg, log, cleanup, nil
}

func inputsArg() (string, error) {
	if len(os.Args) < 3 {
		return "", fmt.Errorf("missing inputs file argument")
	}
	return os.Args[2], nil
}

func buildPlanOnce(cfg *config.Config, log *slog.Logger, path string) ([]byte, error) {
	in, err := loadInputs(path)
	if err != nil {
		return nil, err
	}
	engine := assembler.NewWithLogger(assembler.Config{
		Scoring:     cfg.Engine.Scoring,
		Planner:     cfg.Engine.Planner,
		MaxChainLen: cfg.Engine.MaxChainLen,
	}, log)

	plan, err := engine.BuildPlan(context.Background(), in.Assembler())
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(plan)
}

func runPlan(explainOnly bool) error {
	path, err := inputsArg()
	if err != nil {
		return err
	}
	cfg, log, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	if !explainOnly {
		out, err := buildPlanOnce(cfg, log, path)
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
		return nil
	}

	in, err := loadInputs(path)
	if err != nil {
		return err
	}
	engine := assembler.NewWithLogger(assembler.Config{
		Scoring:     cfg.Engine.Scoring,
		Planner:     cfg.Engine.Planner,
		MaxChainLen: cfg.Engine.MaxChainLen,
	}, log)
	plan, err := engine.BuildPlan(context.Background(), in.Assembler())
	if err != nil {
		return err
	}
	for _, role := range rolesInOrder() {
		if ex, ok := plan.Explanations[role]; ok {
			fmt.Println(ex)
		}
	}
	return nil
}

func runForecast() error {
	path, err := inputsArg()
	if err != nil {
		return err
	}
	cfg, _, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	in, err := loadInputs(path)
	if err != nil {
		return err
	}
	fc := quota.NewForecaster(cfg.Engine.QuotaHorizonDays).Forecast(in.Quota, in.DailyUsage)
	out, err := yaml.Marshal(fc)
	if err != nil {
		return err
	}
	os.Stdout.Write(out)
	return nil
}

func runDaemon() error {
	path, err := inputsArg()
	if err != nil {
		return err
	}
	cfg, log, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	var last []byte

	refresh := func(ctx context.Context) error {
		out, err := buildPlanOnce(cfg, log, path)
		if err != nil {
			return err
		}
		runID := ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
		if bytes.Equal(out, last) {
			log.Info("plan unchanged", "run_id", runID)
			return nil
		}
		last = out
		fmt.Printf("# run %s\n", runID)
		os.Stdout.Write(out)
		return nil
	}

	schedule := cfg.Refresh.Schedule
	if schedule == "" {
		schedule = "*/15 * * * *"
	}
	refresher := scheduling.NewRefresher(refresh, cfg.Refresh.ForcedPerHour, log)
	if err := refresher.Start(schedule); err != nil {
		return err
	}
	defer refresher.Stop()

	// Emit the initial plan right away rather than waiting for a tick.
	if err := refresher.Force(context.Background()); err != nil {
		return err
	}
	log.Info("daemon started", "schedule", schedule)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("daemon stopping")
	return nil
}
