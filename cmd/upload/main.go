package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/timmy/nlsql-console/internal/config"
	"github.com/timmy/nlsql-console/internal/domain"
	"github.com/timmy/nlsql-console/internal/logger"
	"github.com/timmy/nlsql-console/internal/service"
	"github.com/timmy/nlsql-console/internal/source"
	"github.com/timmy/nlsql-console/internal/wiring"
)

// fileFlags collects repeated -file slot=ref arguments.
type fileFlags map[domain.InputSlotID]string

func (f fileFlags) String() string {
	parts := make([]string, 0, len(f))
	for slot, ref := range f {
		parts = append(parts, string(slot)+"="+ref)
	}
	return strings.Join(parts, ",")
}

func (f fileFlags) Set(value string) error {
	slot, ref, ok := strings.Cut(value, "=")
	if !ok || slot == "" || ref == "" {
		return fmt.Errorf("expected slot=path, got %q", value)
	}
	f[domain.InputSlotID(slot)] = ref
	return nil
}

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "warn",
		Format:      "text",
		Output:      os.Stderr,
		ServiceName: "nlsql-upload",
	})
	logger.SetDefaultLogger(appLogger)

	files := fileFlags{}
	targetKey := flag.String("target", "", "Target as SOURCE_ID:NAMESPACE; defaults to the first registered database")
	dir := flag.String("dir", "", "Directory holding one <slot>.csv (or template-named) file per input slot")
	list := flag.Bool("list", false, "List registered databases and exit")
	configPath := flag.String("config", "", "Path to config file")
	flag.Var(files, "file", "Input file as slot=path, repeatable; obj://key reads from object storage and is released after a successful run")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Warn("Received shutdown signal, canceling...")
		cancel()
	}()

	components, err := wiring.Build(ctx, cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize services")
	}
	defer components.Close()

	if *list {
		if err := listDatabases(ctx, components.Backend); err != nil {
			appLogger.WithError(err).Fatal("Failed to list databases")
		}
		return
	}

	target, err := resolveTarget(ctx, *targetKey, components.Backend)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to resolve target")
	}

	inputs, err := collectInputs(*dir, files, components)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to collect input files")
	}

	if err := run(ctx, components.Orchestrator, target, inputs); err != nil {
		fmt.Fprintf(os.Stderr, "upload failed: %v\n", err)
		components.Close()
		logger.Sync()
		os.Exit(1)
	}
}

func listDatabases(ctx context.Context, lister service.DatabaseLister) error {
	dbs, err := lister.ListDatabases(ctx)
	if err != nil {
		return err
	}
	for _, db := range dbs {
		fmt.Printf("%-30s connected=%-5t tables=%d\n", db.Target().Key(), db.IsConnected, db.TableCount)
	}
	fmt.Printf("%d registered\n", len(dbs))
	return nil
}

func resolveTarget(ctx context.Context, key string, lister service.DatabaseLister) (*domain.TargetRef, error) {
	if key != "" {
		target := domain.ParseTargetKey(key)
		return &target, nil
	}

	dbs, err := lister.ListDatabases(ctx)
	if err != nil {
		return nil, err
	}
	if len(dbs) == 0 {
		return nil, errors.New("no -target given and no databases registered")
	}
	target := dbs[0].Target()
	fmt.Printf("using target %s\n", target.Key())
	return &target, nil
}

// collectInputs starts from -dir, then applies -file entries on top.
func collectInputs(dir string, files fileFlags, c *wiring.Components) (map[domain.InputSlotID]domain.FileHandle, error) {
	slots := c.Orchestrator.Slots()
	inputs := domain.EmptyInputs(slots)

	if dir != "" {
		found, err := source.FromDirectory(dir, slots)
		if err != nil {
			return nil, err
		}
		for slot, h := range found {
			inputs[slot] = h
		}
	}

	for slot, ref := range files {
		if _, ok := inputs[slot]; !ok {
			return nil, fmt.Errorf("%w: %s", service.ErrUnknownSlot, slot)
		}
		h, err := source.Resolve(ref, c.Storage)
		if err != nil {
			return nil, err
		}
		inputs[slot] = h
	}
	return inputs, nil
}

// run prints every snapshot while the orchestrator drives the run.
func run(ctx context.Context, o *service.UploadOrchestrator, target *domain.TargetRef, inputs map[domain.InputSlotID]domain.FileHandle) error {
	snapshots, unsubscribe := o.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for s := range snapshots {
			printSnapshot(s)
		}
	}()

	err := o.StartRun(ctx, target, inputs)
	unsubscribe()
	<-done
	return err
}

func printSnapshot(s domain.RunState) {
	line := fmt.Sprintf("[%3d%%] %-9s", s.OverallProgress, s.Phase)
	if st := s.ActiveStage(); st != nil {
		line += " " + st.Label + "..."
	} else if st := s.FailedStage(); st != nil {
		line += " " + st.Label + ": " + st.Message
	}
	if s.Phase.IsTerminal() && s.ResultMessage != "" {
		line += " " + s.ResultMessage
	}
	fmt.Println(line)
}
