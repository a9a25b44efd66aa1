// Command mysteryd serves the SQL mystery page over HTTP and, optionally,
// the same operations over gRPC.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/SimonWaldherr/sqlmystery"
	"github.com/SimonWaldherr/sqlmystery/internal/config"
	"github.com/SimonWaldherr/sqlmystery/internal/logging"
	"github.com/SimonWaldherr/sqlmystery/internal/refresh"
	"github.com/SimonWaldherr/sqlmystery/internal/rpc"
	"github.com/SimonWaldherr/sqlmystery/internal/web"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "mysteryd:", err)
		os.Exit(1)
	}
}

// configPath finds -config before the other flags are bound, so the file
// provides defaults that flags can still override.
func configPath(args []string) string {
	for i, a := range args {
		a = strings.TrimLeft(a, "-")
		if v, ok := strings.CutPrefix(a, "config="); ok {
			return v
		}
		if a == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func run(args []string) error {
	path := configPath(args)
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("mysteryd", flag.ContinueOnError)
	fs.String("config", path, "YAML config file")
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := sqlmystery.New(ctx, cfg, log)
	if err != nil {
		log.Errorw("startup failed", "error", err)
		return err
	}
	defer app.Close()

	if cfg.Refresh != "" {
		sched, err := refresh.New(cfg.Refresh, app.Refresh, log)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	errc := make(chan error, 2)

	var gs interface{ GracefulStop() }
	if cfg.GRPCListen != "" {
		lis, err := net.Listen("tcp", cfg.GRPCListen)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		srv := rpc.NewServer(app, log)
		gs = srv
		go func() {
			log.Infow("gRPC listening", "addr", cfg.GRPCListen)
			errc <- srv.Serve(lis)
		}()
	}

	var hs *http.Server
	if cfg.Listen != "" {
		hs = &http.Server{
			Addr: cfg.Listen,
			Handler: web.NewHandler(app, web.Options{
				Lesson:    app.Lesson(),
				AssetsDir: cfg.AssetsDir,
				Logger:    log,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Infow("HTTP listening", "addr", cfg.Listen)
			if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errc <- err
				return
			}
			errc <- nil
		}()
	}

	select {
	case <-ctx.Done():
		log.Infow("shutting down")
	case err = <-errc:
		if err != nil {
			log.Errorw("server stopped", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if hs != nil {
		if serr := hs.Shutdown(shutdownCtx); serr != nil {
			log.Warnw("http shutdown", "error", serr)
		}
	}
	if gs != nil {
		gs.GracefulStop()
	}
	return err
}
