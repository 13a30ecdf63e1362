// Command journeyctl is a small demo host for the journey engine: a
// flag-driven one-shot CLI that constructs its own wiring (logger,
// repository, engine) directly in main rather than through any shared
// singleton. It embeds everything in a local SQLite file, so running it
// requires no external database or broker.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/journeyengine/internal/demo"
	"github.com/yungbote/journeyengine/internal/engine"
	"github.com/yungbote/journeyengine/internal/journey"
	"github.com/yungbote/journeyengine/internal/platform/envutil"
	"github.com/yungbote/journeyengine/internal/platform/logger"
	"github.com/yungbote/journeyengine/internal/repo/sqlite"
	"github.com/yungbote/journeyengine/internal/wfcase"
)

type kvList []string

func (l *kvList) String() string { return strings.Join(*l, ",") }
func (l *kvList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func (l kvList) toMap() map[string]string {
	out := map[string]string{}
	for _, kv := range l {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		out[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return out
}

func main() {
	var (
		op          string
		journeyPath string
		caseID      string
		journeyName string
		basket      string
		vars        kvList
	)
	flag.StringVar(&op, "op", "start", "one of: start, resume, change-basket")
	flag.StringVar(&journeyPath, "journey", "", "path to a journey definition JSON file (required for -op=start)")
	flag.StringVar(&caseID, "case", "", "case id (required)")
	flag.StringVar(&journeyName, "journey-name", "", "journey name, if it differs from the definition file's own name")
	flag.StringVar(&basket, "basket", "", "new work basket name (required for -op=change-basket)")
	flag.Var(&vars, "var", "initial variable as name=value (repeatable, -op=start only)")
	flag.Parse()

	if caseID == "" {
		fmt.Fprintln(os.Stderr, "journeyctl: -case is required")
		os.Exit(1)
	}

	log, err := logger.New(envutil.String("JOURNEYCTL_LOG_MODE", "development"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "journeyctl: init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	dbPath := envutil.String("JOURNEYCTL_DB_PATH", "./journeyengine.db")
	repo, err := sqlite.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "journeyctl: open repository %q: %v\n", dbPath, err)
		os.Exit(1)
	}
	defer repo.Close()
	ctx := context.Background()
	if err := repo.Init(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "journeyctl: init repository: %v\n", err)
		os.Exit(1)
	}

	cfg := engine.DefaultConfig()
	cfg.MaxThreads = envutil.Int("JOURNEYCTL_MAX_THREADS", cfg.MaxThreads)
	cfg.IdleTimeout = envutil.Duration("JOURNEYCTL_IDLE_TIMEOUT", cfg.IdleTimeout)
	cfg.WriteAuditLog = envutil.Bool("JOURNEYCTL_WRITE_AUDIT_LOG", cfg.WriteAuditLog)
	cfg.WorkerStaleAfter = envutil.Duration("JOURNEYCTL_WORKER_STALE_AFTER", cfg.WorkerStaleAfter)

	factory := demo.NewComponentFactory()
	eng, err := engine.New(cfg, repo, factory, nil, nil, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "journeyctl: construct engine: %v\n", err)
		os.Exit(1)
	}

	var snap *wfcase.Snapshot
	switch op {
	case "start":
		if journeyPath == "" {
			fmt.Fprintln(os.Stderr, "journeyctl: -journey is required for -op=start")
			os.Exit(1)
		}
		raw, err := os.ReadFile(journeyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "journeyctl: read journey file %q: %v\n", journeyPath, err)
			os.Exit(1)
		}
		j, err := journey.LoadJSON(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "journeyctl: load journey: %v\n", err)
			os.Exit(1)
		}
		if journeyName != "" {
			j.Name = journeyName
		}
		eng.RegisterJourney(j)
		snap, err = eng.StartCase(ctx, caseID, j.Name, vars.toMap(), nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "journeyctl: start case: %v\n", err)
			os.Exit(1)
		}
	case "resume":
		if journeyPath != "" {
			raw, err := os.ReadFile(journeyPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "journeyctl: read journey file %q: %v\n", journeyPath, err)
				os.Exit(1)
			}
			j, err := journey.LoadJSON(raw)
			if err != nil {
				fmt.Fprintf(os.Stderr, "journeyctl: load journey: %v\n", err)
				os.Exit(1)
			}
			if journeyName != "" {
				j.Name = journeyName
			}
			eng.RegisterJourney(j)
		}
		snap, err = eng.ResumeCase(ctx, caseID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "journeyctl: resume case: %v\n", err)
			os.Exit(1)
		}
	case "change-basket":
		if basket == "" {
			fmt.Fprintln(os.Stderr, "journeyctl: -basket is required for -op=change-basket")
			os.Exit(1)
		}
		if err := eng.ChangeWorkBasket(ctx, caseID, basket); err != nil {
			fmt.Fprintf(os.Stderr, "journeyctl: change work basket: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("case %s: work basket changed to %s\n", caseID, basket)
		return
	default:
		fmt.Fprintf(os.Stderr, "journeyctl: unknown -op %q (want start, resume, or change-basket)\n", op)
		os.Exit(1)
	}

	doc, err := snap.Encode()
	if err != nil {
		fmt.Fprintf(os.Stderr, "journeyctl: encode snapshot: %v\n", err)
		os.Exit(1)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, doc, "", "  "); err != nil {
		os.Stdout.Write(doc)
		return
	}
	pretty.WriteTo(os.Stdout)
	fmt.Println()
}
