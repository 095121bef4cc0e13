// cmd/node is the main entrypoint for a storage node.
//
// Configuration is entirely via flags/environment so a single binary can
// serve any position in the cluster.
//
// Example — 3-node cluster, run once per node:
//
//	./node --node-id=http://localhost:8080 --addr=:8080 --data-dir=/tmp/n1 \
//	       --nodes=http://localhost:8080,http://localhost:8081,http://localhost:8082
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"okkv/internal/api"
	"okkv/internal/cluster"
	"okkv/internal/config"
	"okkv/internal/coordinator"
	"okkv/internal/storage"
)

func main() {
	log := logrus.NewEntry(logrus.StandardLogger())

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("node: load config")
	}
	log = log.WithField("node_id", cfg.NodeID)

	topology, err := cfg.Topology()
	if err != nil {
		log.WithError(err).Fatal("node: build topology")
	}

	engine, err := storage.OpenPebble(cfg.DataDir)
	if err != nil {
		log.WithError(err).Fatal("node: open storage engine")
	}
	defer engine.Close()
	store := storage.NewTimestampedStore(engine)

	transport := cluster.NewPeerTransport(topology.Nodes, cfg.PeerTimeout, cfg.DialTimeout)
	coord := coordinator.New(topology, transport, store, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(api.RequestID(), api.Logger(log), api.Recovery(log))
	api.NewHandler(coord, store, topology, log).Register(router)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Addr).Info("node: listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("node: server error")
		}
	}()

	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := store.Compact(); err != nil {
				log.WithError(err).Warn("node: compact error")
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("node: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("node: server shutdown error")
	}
}
