// Command simulate runs Secret AGI games against the engine: seeded
// random self-play, interrupted-game listing, and crash recovery.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/alignmentlab/secret-agi/internal/config"
	"github.com/alignmentlab/secret-agi/internal/logger"
	"github.com/alignmentlab/secret-agi/internal/repository"
	"github.com/alignmentlab/secret-agi/internal/repository/memory"
	"github.com/alignmentlab/secret-agi/internal/repository/postgres"
	redisrepo "github.com/alignmentlab/secret-agi/internal/repository/redis"
	"github.com/alignmentlab/secret-agi/internal/service"
	"github.com/alignmentlab/secret-agi/pkg/secretagi"
)

// Exit codes.
const (
	exitOK = iota
	exitBadConfig
	exitStoreError
	exitUnrecovered
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		players         int
		seed            int64
		games           int
		turnCap         int
		databaseURL     string
		redisURL        string
		listInterrupted bool
		recoverID       string
		verbose         bool
	)
	flag.IntVar(&players, "players", 0, "Players per game, 5-10 (default from SECRET_AGI_PLAYER_COUNT)")
	flag.Int64Var(&seed, "seed", 0, "Base seed, 0 = time-derived (default from SECRET_AGI_SEED)")
	flag.IntVar(&games, "games", 1, "Number of games to simulate")
	flag.IntVar(&turnCap, "turn-cap", 0, "Max turns per game (default from SECRET_AGI_TURN_CAP)")
	flag.StringVar(&databaseURL, "database", "", "Postgres URL, empty = in-memory store")
	flag.StringVar(&redisURL, "redis", "", "Redis URL, empty = no cache")
	flag.BoolVar(&listInterrupted, "list-interrupted", false, "List interrupted game ids and exit")
	flag.StringVar(&recoverID, "recover", "", "Recover the given game id and exit")
	flag.BoolVar(&verbose, "v", false, "Debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return exitBadConfig
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger.Init(level)

	if players == 0 {
		players = cfg.PlayerCount
	}
	if seed == 0 {
		seed = cfg.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if turnCap == 0 {
		turnCap = cfg.TurnCap
	}
	if databaseURL == "" {
		databaseURL = cfg.DatabaseURL
	}
	if redisURL == "" {
		redisURL = cfg.RedisURL
	}

	if players < 5 || players > 10 {
		log.Error().Int("players", players).Msg("player count must be 5-10")
		return exitBadConfig
	}
	if games < 1 || turnCap < 1 {
		log.Error().Int("games", games).Int("turnCap", turnCap).Msg("games and turn-cap must be positive")
		return exitBadConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store *repository.Store
	if databaseURL != "" {
		db, err := postgres.Connect(databaseURL)
		if err != nil {
			log.Error().Err(err).Msg("database connection failed")
			return exitStoreError
		}
		defer db.Close()
		store = postgres.NewStore(db)
	} else {
		store = memory.New()
	}

	var cache repository.StateCache
	if redisURL != "" {
		client, err := redisrepo.NewClient(redisURL)
		if err != nil {
			log.Error().Err(err).Msg("redis connection failed")
			return exitStoreError
		}
		defer client.Close()
		cache = client
	}

	engine := service.NewGameEngine(store, cache, logger.Get())
	recovery := service.NewRecoveryService(store, cache, logger.Get())

	switch {
	case listInterrupted:
		return listInterruptedGames(ctx, recovery)
	case recoverID != "":
		return recoverGame(ctx, recovery, recoverID)
	default:
		return simulate(ctx, engine, players, seed, games, turnCap)
	}
}

func listInterruptedGames(ctx context.Context, recovery *service.RecoveryService) int {
	ids, err := recovery.FindInterrupted(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list interrupted")
		return exitStoreError
	}
	for _, id := range ids {
		report, err := recovery.Analyze(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("gameId", id).Msg("analyze")
			return exitStoreError
		}
		out, _ := json.Marshal(report)
		fmt.Println(string(out))
	}
	log.Info().Int("count", len(ids)).Msg("interrupted games listed")
	return exitOK
}

func recoverGame(ctx context.Context, recovery *service.RecoveryService, gameID string) int {
	gs, err := recovery.Recover(ctx, gameID)
	if err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("recovery failed")
		return exitUnrecovered
	}
	fmt.Printf(`{"game_id":%q,"restored_turn":%d}`+"\n", gameID, gs.TurnNumber)
	return exitOK
}

func simulate(ctx context.Context, engine *service.GameEngine, players int, seed int64, games, turnCap int) int {
	ids := make([]string, players)
	for i := range ids {
		ids[i] = fmt.Sprintf("player_%d", i+1)
	}

	var (
		mu        sync.Mutex
		summaries []*service.Summary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := 0; i < games; i++ {
		gameSeed := seed + int64(i)
		g.Go(func() error {
			cfg := secretagi.Config{PlayerCount: players, PlayerIDs: ids, Seed: gameSeed}
			summary, err := engine.SimulateToCompletion(gctx, cfg, service.NewRandomPolicy(gameSeed), turnCap)
			if err != nil {
				return err
			}
			log.Info().Str("gameId", summary.GameID).Int64("seed", gameSeed).
				Bool("completed", summary.Completed).Int("turns", summary.Turns).
				Str("reason", summary.Reason).Msg("simulation finished")
			mu.Lock()
			summaries = append(summaries, summary)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("simulation failed")
		return exitStoreError
	}

	for _, s := range summaries {
		out, _ := json.Marshal(s)
		fmt.Println(string(out))
	}
	return exitOK
}
