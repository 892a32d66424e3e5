// Command server starts the p01 compute server: it resolves
// configuration from the environment, wires the Shared State, Command
// Registry, Dispatcher and Job Manager together, restores any persisted
// job journal, and serves HTTP/1.0 until SIGINT/SIGTERM.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"p01-compute-server/internal/config"
	"p01-compute-server/internal/dispatch"
	"p01-compute-server/internal/handlers"
	"p01-compute-server/internal/jobs"
	"p01-compute-server/internal/router"
	"p01-compute-server/internal/server"
	"p01-compute-server/internal/state"
)

func main() {
	cfg := config.FromEnv()
	bindAddr := config.ResolveBindAddr(os.Args[1:])

	handlers.DataDir = cfg.DataDir

	st := state.New(cfg)
	reg := router.Build()
	disp := dispatch.New(st, reg)
	disp.Start()

	jm := jobs.NewManager(st, reg, disp)
	if err := jobs.LoadJournal(st, jobs.JournalPath); err != nil {
		log.Printf("warning: could not load job journal: %v", err)
	}

	srv := server.New(st, reg, disp, jm)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		if err := jobs.SaveJournal(st, jobs.JournalPath); err != nil {
			log.Printf("warning: could not save job journal: %v", err)
		}
		os.Exit(0)
	}()

	log.Printf("p01 compute server listening on %s", bindAddr)
	if err := srv.ListenAndServe(bindAddr); err != nil {
		log.Fatalf("listen failed: %v", err)
	}
}
