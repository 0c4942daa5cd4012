package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/liveballot/go/internal/backend"
	"github.com/mcdev12/liveballot/go/internal/board"
	"github.com/mcdev12/liveballot/go/internal/dbconfig"
	"github.com/mcdev12/liveballot/go/internal/governor"
	"github.com/mcdev12/liveballot/go/internal/localstore"
	"github.com/mcdev12/liveballot/go/internal/models"
	"github.com/mcdev12/liveballot/go/internal/roster"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	admin := flag.Bool("admin", getEnv("BALLOT_ADMIN", "false") == "true", "enable extend and reset")
	backendKind := flag.String("backend", getEnv("BACKEND", "remote"), "backend: remote, postgres or memory")
	serverURL := flag.String("server", getEnv("BALLOT_SERVER_URL", "http://localhost:8080"), "API server base URL")
	storePath := flag.String("store", getEnv("LOCAL_STORE", "liveballot.db"), "local store file")
	rosterPath := flag.String("roster", getEnv("ROSTER_FILE", ""), "YAML file with the candidate roster")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	// Logs go to stderr so they don't interleave with the board
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	candidates, err := roster.Load(*rosterPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load roster")
	}

	be, closeBackend, err := openBackend(ctx, *backendKind, *serverURL, candidates)
	if err != nil {
		log.Fatal().Err(err).Str("backend", *backendKind).Msg("failed to open backend")
	}
	defer closeBackend()

	store, err := localstore.OpenSQLite(ctx, *storePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open local store")
	}
	defer store.Close()

	b, err := board.Open(ctx, board.Deps{
		Backend:    be,
		Store:      store,
		Candidates: candidates,
	}, board.Config{Admin: *admin})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open board")
	}
	defer b.Close()

	select {
	case <-b.Ready():
	case <-ctx.Done():
		return
	}
	fmt.Print(board.Render(b.View()))

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handle(ctx, b, line); quit {
				return
			}
		}
	}
}

// handle runs one command line and reports whether the session should end
func handle(ctx context.Context, b *board.Board, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "vote":
		if len(fields) != 2 {
			fmt.Println("usage: vote <id>")
			return false
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Println("candidate id must be a number")
			return false
		}
		d := b.Vote(ctx, id)
		switch {
		case d.Accepted():
			fmt.Println("vote recorded, thank you")
		case errors.Is(d.Reason, governor.ErrCooldownActive):
			fmt.Printf("please wait %s before voting again\n", governor.FormatCooldown(b.View().Governor.CooldownRemaining))
		case d.Status == governor.StatusFailed:
			fmt.Println("vote could not be recorded, try again")
		default:
			fmt.Println(d.Reason)
		}
	case "board", "b":
		fmt.Print(board.Render(b.View()))
	case "extend":
		days := 1
		if len(fields) == 2 {
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Println("usage: extend <days>")
				return false
			}
			days = n
		}
		if err := b.Extend(ctx, days); err != nil {
			fmt.Println(err)
			return false
		}
		fmt.Printf("voting period extended by %d day(s)\n", days)
	case "reset":
		if err := b.Reset(ctx); err != nil {
			fmt.Println(err)
			return false
		}
		fmt.Println("voting period reset")
	case "quit", "exit", "q":
		return true
	default:
		fmt.Println("commands: vote <id>, board, extend <days>, reset, quit")
	}
	return false
}

func openBackend(ctx context.Context, kind, serverURL string, candidates []models.Candidate) (backend.Backend, func(), error) {
	switch kind {
	case "remote":
		r := backend.NewRemote(backend.RemoteConfig{
			BaseURL:    serverURL,
			AdminToken: os.Getenv("ADMIN_TOKEN"),
		})
		if err := r.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("server", serverURL).Msg("server not healthy")
		}
		return r, func() {}, nil
	case "postgres":
		cfg := backend.DefaultPostgresConfig()
		cfg.DatabaseURL = dbconfig.NewConfigFromEnv().DSN()
		p, err := backend.NewPostgres(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {
			if err := p.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close postgres backend")
			}
		}, nil
	case "memory":
		ids := make([]int, len(candidates))
		for i, c := range candidates {
			ids[i] = c.ID
		}
		return backend.NewMemory(clockwork.NewRealClock(), ids...), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", kind)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
