package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "arena.db", "sqlite database path")
	tick := flag.Duration("tick", tickInterval, "simulation tick interval")
	flag.Parse()
	tickInterval = *tick

	db, err := OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	analytics := NewAnalytics(db)
	hub, err := NewHub(db, analytics)
	if err != nil {
		log.Fatalf("init hub: %v", err)
	}
	go hub.Run()

	server := &http.Server{Addr: *addr, Handler: SetupRoutes(hub)}
	go func() {
		log.Printf("listening on %s", *addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Printf("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	hub.sessions.StopAll()
	analytics.Stop()
	if err := db.Close(); err != nil {
		log.Printf("close database: %v", err)
	}
}
