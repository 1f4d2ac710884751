package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"twirvo-sync/internal/domain"
	"twirvo-sync/internal/fold"
	"twirvo-sync/internal/ingestion"
	"twirvo-sync/internal/memo"
	"twirvo-sync/internal/simfeed"
	"twirvo-sync/internal/solana"
	"twirvo-sync/internal/storage/file"
)

func main() {
	// Parse flags
	ledgerPath := flag.String("ledger", "data/ledger.txt", "Signature log file")
	cachePath := flag.String("cache", "data/tx-cache.json", "Transaction cache file")
	simFeedPath := flag.String("sim-feed", "", "Simulated feed file, one JSON object per line")
	rpcEndpoint := flag.String("rpc", "https://api.mainnet-beta.solana.com", "Solana JSON-RPC endpoint")
	offline := flag.Bool("offline", false, "Skip the RPC backfill and fold from the cache only")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	// Setup structured logger
	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	ledger, err := file.NewSignatureLog(*ledgerPath)
	if err != nil {
		logger.Fatalf("open ledger: %v", err)
	}
	cache, err := file.NewTxCache(*cachePath)
	if err != nil {
		logger.Fatalf("open cache: %v", err)
	}

	sigs, err := ledger.List(ctx)
	if err != nil {
		logger.Fatalf("list ledger: %v", err)
	}
	logger.Printf("Ledger holds %d signatures", len(sigs))

	if !*offline {
		backfiller := ingestion.NewBackfiller(ingestion.Options{
			Resolver: solana.NewHTTPClient(*rpcEndpoint),
			Cache:    cache,
		})
		result, err := backfiller.Backfill(ctx, sigs)
		if err != nil {
			logger.Fatalf("backfill: %v", err)
		}
		logger.Printf("Backfill done: fetched=%d cached=%d unresolved=%d errors=%d in %v",
			result.Fetched, result.Cached, result.Unresolved, result.Errors, result.Duration)
	}

	events := make([]*domain.Event, 0, len(sigs))
	for _, sig := range sigs {
		tx, err := cache.Get(ctx, sig)
		if err != nil {
			continue
		}
		ev, err := memo.Decode(tx)
		if err != nil {
			continue
		}
		events = append(events, ev)
	}

	if *simFeedPath != "" {
		f, err := os.Open(*simFeedPath)
		if err != nil {
			logger.Fatalf("open simulated feed: %v", err)
		}
		simEvents, err := simfeed.Parse(f)
		f.Close()
		if err != nil {
			logger.Fatalf("parse simulated feed: %v", err)
		}
		events = append(events, simEvents...)
	}

	state := fold.Fold(events)
	summary := summarize(state, len(sigs), len(events))

	if *outputJSON {
		output, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(output))
		return
	}

	fmt.Printf("\n=== Replay Summary ===\n")
	fmt.Printf("Signatures:   %d\n", summary.Signatures)
	fmt.Printf("Events:       %d\n", summary.Events)
	fmt.Printf("Posts:        %d\n", summary.Posts)
	fmt.Printf("Comments:     %d\n", summary.Comments)
	fmt.Printf("Wallets:      %d\n", summary.Wallets)
	fmt.Printf("Communities:  %d\n", summary.Communities)
	fmt.Printf("Tombstones:   %d\n", summary.Tombstones)
	if len(summary.Leaders) > 0 {
		fmt.Printf("\nPoints leaders:\n")
		for i, l := range summary.Leaders {
			name := l.Username
			if name == "" {
				name = l.Wallet
			}
			fmt.Printf("  %2d. %-30s %d\n", i+1, name, l.Points)
		}
	}
}

// Summary is the derived-state digest printed after a fold.
type Summary struct {
	Signatures  int      `json:"signatures"`
	Events      int      `json:"events"`
	Posts       int      `json:"posts"`
	Comments    int      `json:"comments"`
	Wallets     int      `json:"wallets"`
	Communities int      `json:"communities"`
	Tombstones  int      `json:"tombstones"`
	Leaders     []Leader `json:"leaders"`
}

// Leader is one row of the points leaderboard.
type Leader struct {
	Wallet   string `json:"wallet"`
	Username string `json:"username,omitempty"`
	Points   int    `json:"points"`
}

func summarize(state *fold.State, signatures, events int) Summary {
	leaders := make([]Leader, 0, len(state.Points))
	for wallet, pts := range state.Points {
		l := Leader{Wallet: wallet, Points: pts.Global}
		if profile := state.Users[wallet]; profile != nil {
			l.Username = profile.Username
		}
		leaders = append(leaders, l)
	}
	sort.Slice(leaders, func(i, j int) bool {
		if leaders[i].Points != leaders[j].Points {
			return leaders[i].Points > leaders[j].Points
		}
		return leaders[i].Wallet < leaders[j].Wallet
	})
	if len(leaders) > 10 {
		leaders = leaders[:10]
	}

	return Summary{
		Signatures:  signatures,
		Events:      events,
		Posts:       len(state.Posts),
		Comments:    len(state.Comments),
		Wallets:     len(state.Wallets),
		Communities: len(state.Communities),
		Tombstones:  len(state.Tombstones),
		Leaders:     leaders,
	}
}
