package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/DirusLupito/Light-Year-Wars-C-sub000/server"
)

func main() {
	addr := flag.String("addr", ":7855", "UDP listen address")
	httpAddr := flag.String("http", "", "HTTP listen address for the spectator feed (empty disables)")
	dbPath := flag.String("db", "", "SQLite match-results path (empty disables persistence)")
	mapName := flag.String("map", "frontier", "Map name; the same name generates the same map")
	factions := flag.Int("factions", 4, "Number of factions (2-16)")
	planets := flag.Int("planets", 16, "Number of planets")
	maxPlayers := flag.Int("players", 0, "Max sessions (default: one per faction)")
	timeout := flag.Float64("timeout", 120, "Seconds of silence before a session is dropped (0 disables)")
	flag.Parse()

	if *factions < 2 || *factions > 16 {
		log.Fatalf("factions must be 2-16, got %d", *factions)
	}

	var db *server.DB
	if *dbPath != "" {
		var err error
		db, err = server.OpenDB(*dbPath)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer db.Close()
	}

	srv, err := server.NewServer(server.Config{
		Addr:              *addr,
		MaxPlayers:        *maxPlayers,
		FactionCount:      *factions,
		PlanetCount:       *planets,
		MapName:           *mapName,
		InactivityTimeout: *timeout,
		DB:                db,
	})
	if err != nil {
		log.Fatalf("start server: %v", err)
	}
	defer srv.Close()

	if *httpAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/spectate", srv.SpectatorHandler())
		go func() {
			log.Printf("spectator feed on %s/spectate", *httpAddr)
			if err := http.ListenAndServe(*httpAddr, mux); err != nil {
				log.Printf("spectator http: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		log.Println("shutting down...")
		cancel()
	}()

	if err := srv.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("server: %v", err)
	}
}
