package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tickcore.ai/internal/host/sim"
	"tickcore.ai/internal/transport/ws"
)

func main() {
	var (
		addr = flag.String("addr", "127.0.0.1:8090", "http listen address")
		seed = flag.Int64("seed", 1, "demo world seed")
		rate = flag.Int("rate", 2, "ticks per second")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[hostsim] ", log.LstdFlags|log.Lmicroseconds)
	if *rate <= 0 {
		logger.Fatalf("rate must be > 0")
	}

	ctx, cancel := signalContext()
	defer cancel()

	w := sim.NewDemo(*seed)
	hs := ws.NewServer(w, *rate, logger)
	logger.Printf("demo world room=%s seed=%d tick=%d", sim.DemoRoom, *seed, hs.Tick())

	go func() {
		if err := hs.Run(ctx, time.Second/time.Duration(*rate)); err != nil && err != context.Canceled {
			logger.Printf("host stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		fmt.Fprintf(rw, "# HELP tickcore_host_tick Current host tick.\n")
		fmt.Fprintf(rw, "# TYPE tickcore_host_tick gauge\n")
		fmt.Fprintf(rw, "tickcore_host_tick{room=%q} %d\n", sim.DemoRoom, hs.Tick())

		fmt.Fprintf(rw, "# HELP tickcore_host_clients Current number of connected controllers.\n")
		fmt.Fprintf(rw, "# TYPE tickcore_host_clients gauge\n")
		fmt.Fprintf(rw, "tickcore_host_clients{room=%q} %d\n", sim.DemoRoom, hs.Clients())
	})
	mux.HandleFunc("/v1/ws", hs.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
