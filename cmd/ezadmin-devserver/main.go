// cmd/ezadmin-devserver/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nhath/ezadmin/internal/devserver"
)

func main() {
	addr := flag.String("addr", "localhost:5014", "Listen address")
	engine := flag.String("engine", string(devserver.SQLite), "Database engine: sqlite, postgres or mysql")
	dsn := flag.String("dsn", "", "Database DSN; sqlite defaults to an in-memory database")
	username := flag.String("user", devserver.DefaultUsername, "Operator username")
	password := flag.String("password", os.Getenv("EZADMIN_DEVSERVER_PASSWORD"), "Operator password, generated when empty")
	backupDir := flag.String("backup-dir", "backups", "Directory receiving backups")
	schedule := flag.String("schedule", "", "Cron spec for periodic server-wide backups")
	flag.Parse()

	log.SetOutput(os.Stderr)

	db, err := devserver.Open(devserver.Kind(*engine), *dsn)
	if err != nil {
		log.Fatalf("devserver: %v", err)
	}
	defer db.Close()

	srv, err := devserver.New(db, devserver.Options{
		Username:  *username,
		Password:  *password,
		BackupDir: *backupDir,
		Schedule:  *schedule,
	})
	if err != nil {
		log.Fatalf("devserver: %v", err)
	}
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("devserver: shutdown: %v", err)
		}
	}()

	fmt.Fprintf(os.Stderr, "devserver: %s engine listening on http://%s\n", *engine, *addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("devserver: %v", err)
	}
}
