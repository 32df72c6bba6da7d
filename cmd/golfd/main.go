// golfd is the multiplayer golf card game server. Clients speak JSON
// over a websocket; game history lives in the event log, live state in
// the cache, and replicas coordinate over the pub/sub bus.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"golf-lite/golf/npc"
	"golf-lite/internal/cache"
	"golf-lite/internal/eventlog"
	"golf-lite/internal/gateway"
	"golf-lite/internal/pubsub"
	"golf-lite/internal/recovery"
	"golf-lite/internal/room"
)

func main() {
	serverID := os.Getenv("SERVER_ID")
	if serverID == "" {
		serverID = "golfd-" + uuid.NewString()[:8]
	}
	log.Printf("[Server] starting as %s", serverID)

	store, storeMode, err := eventlog.NewStoreFromEnv()
	if err != nil {
		log.Fatalf("[Server] event log init failed: %v", err)
	}
	defer store.Close()
	log.Printf("[Server] event log: %s", storeMode)

	c, cacheMode, err := cache.NewCacheFromEnv()
	if err != nil {
		log.Printf("[Server] cache init failed (%v), falling back to memory", err)
		c = cache.NewMemoryCache(cache.DefaultTTL)
		cacheMode = "memory"
	}
	defer c.Close()
	log.Printf("[Server] cache: %s", cacheMode)

	bus, busMode, err := pubsub.NewBusFromEnv(serverID)
	if err != nil {
		log.Printf("[Server] pubsub init failed (%v), falling back to memory", err)
		bus = pubsub.NewMemoryHub().Bus(serverID)
		busMode = "memory"
	}
	defer bus.Close()
	log.Printf("[Server] pubsub: %s", busMode)

	recoverCtx, cancelRecover := context.WithTimeout(context.Background(), 2*time.Minute)
	restored, err := recovery.Run(recoverCtx, store, c, serverID)
	cancelRecover()
	if err != nil {
		log.Printf("[Server] recovery failed: %v", err)
	} else if restored > 0 {
		log.Printf("[Server] recovery restored %d room(s)", restored)
	}

	profiles := npc.NewRegistry(npc.DefaultProfiles())
	if path := os.Getenv("CPU_PROFILES_PATH"); path != "" {
		if err := profiles.LoadFromFile(path); err != nil {
			log.Printf("[Server] cpu profiles from %s failed (%v), using defaults", path, err)
		} else {
			log.Printf("[Server] cpu profiles loaded from %s", path)
		}
	}

	mgr := room.NewManager(room.ManagerConfig{
		ServerID: serverID,
		Store:    store,
		Cache:    c,
		Bus:      bus,
		Profiles: profiles,
		Brain:    npc.NewRuleBrain(time.Now().UnixNano()),
	})
	mgr.Start()
	defer mgr.Stop()

	gw := gateway.New(mgr)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWS)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		log.Printf("[Server] listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Server] listen failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Printf("[Server] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] shutdown: %v", err)
	}
}
