// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/google/gops/agent"
	"github.com/google/uuid"

	"github.com/yourfrienddhruv/hornetq/internal/catalog"
	"github.com/yourfrienddhruv/hornetq/internal/config"
	"github.com/yourfrienddhruv/hornetq/internal/runtimeEnv"
	"github.com/yourfrienddhruv/hornetq/internal/transport"
	"github.com/yourfrienddhruv/hornetq/pkg/journal"
	"github.com/yourfrienddhruv/hornetq/pkg/wildcard"
)

var version = "development"

func main() {
	cliInit()

	if flagVersion {
		fmt.Printf("hornetq-broker version %s\n", version)
		return
	}

	cclog.Init(flagLogLevel, flagLogDateTime)

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			cclog.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := runtimeEnv.LoadEnv("./.env"); err != nil && !os.IsNotExist(err) {
		cclog.Fatalf("parsing './.env' file failed: %s", err.Error())
	}

	if err := config.Init(flagConfigFile); err != nil {
		cclog.Fatalf("config: %s", err.Error())
	}

	// Pattern Repository: resolves a destination to the tightest matching
	// AddressPolicy, mirroring how transport.Connection looks up policy
	// per decoded frame.
	repo := wildcard.New(transport.AddressPolicy{}, transport.MergeAddressPolicies)

	var store *catalog.Store
	if config.Keys.Journal.CatalogPath != "" {
		var err error
		store, err = catalog.Open(config.Keys.Journal.CatalogPath)
		if err != nil {
			cclog.Fatalf("catalog: %s", err.Error())
		}
		defer store.Close()

		if err := catalog.Load(store, repo, decodeAddressPolicy); err != nil {
			cclog.Warnf("catalog: restoring pattern snapshot: %v", err)
		}
	}

	factory := journal.NewNIOSequentialFileFactory(
		config.Keys.Journal.RootDir,
		config.Keys.Journal.BufferSizeBytes,
		config.Keys.Journal.FlushTimeout,
	)
	if err := factory.CreateDirs(); err != nil {
		cclog.Fatalf("journal: %s", err.Error())
	}
	if err := factory.Start(); err != nil {
		cclog.Fatalf("journal: %s", err.Error())
	}
	factory.SetCriticalErrorListener(loggingCriticalErrorListener{})

	records, err := journal.Recover(config.Keys.Journal.RootDir, config.Keys.Journal.Extension)
	if err != nil {
		cclog.Warnf("journal: recovery: %v", err)
	} else {
		cclog.Infof("[JOURNAL]> recovered %d records from %s", len(records), config.Keys.Journal.RootDir)
	}

	journalName := fmt.Sprintf("%s.%s", uuid.NewString(), config.Keys.Journal.Extension)
	sf, err := factory.CreateSequentialFile(journalName)
	if err != nil {
		cclog.Fatalf("journal: %s", err.Error())
	}
	if err := sf.Open(); err != nil {
		cclog.Fatalf("journal: %s", err.Error())
	}

	var conns []*transport.Connection
	if config.Keys.Transport.Address != "" {
		nc, err := transport.Connect(config.Keys.Transport)
		if err != nil {
			cclog.Fatalf("transport: %s", err.Error())
		}
		defer nc.Close()

		conn, err := transport.NewConnection(nc, "hornetq.frames", repo, config.Keys.Transport)
		if err != nil {
			cclog.Fatalf("transport: %s", err.Error())
		}
		defer conn.Close()
		conns = append(conns, conn)
	}

	scheduler, err := startMaintenanceScheduler(config.Keys.Journal.RootDir, factory, config.Keys.Journal.Extension)
	if err != nil {
		cclog.Fatalf("scheduler: %s", err.Error())
	}

	adminRouter := newAdminRouter(&admin{repo: repo, factory: factory, ext: config.Keys.Journal.Extension})
	server := &http.Server{
		Addr:         config.Keys.AdminAddr,
		Handler:      adminRouter,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		cclog.Infof("[ADMIN]> listening at %s", config.Keys.AdminAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			cclog.Fatalf("admin server: %s", err.Error())
		}
	}()

	runtimeEnv.SystemdNotifiy(true, "running")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	runtimeEnv.SystemdNotifiy(false, "shutting down")
	cclog.Info("[MAIN]> shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if err := scheduler.Shutdown(); err != nil {
		cclog.Warnf("scheduler: shutdown: %v", err)
	}
	for _, c := range conns {
		c.Close()
	}
	if err := sf.Close(); err != nil {
		cclog.Warnf("journal: closing active file: %v", err)
	}
	if err := factory.Stop(context.Background()); err != nil {
		cclog.Warnf("journal: stop: %v", err)
	}

	if store != nil {
		if err := persistPatterns(store, repo); err != nil {
			cclog.Warnf("catalog: persisting pattern snapshot: %v", err)
		}
	}

	cclog.Info("[MAIN]> graceful shutdown complete")
}

type loggingCriticalErrorListener struct{}

func (loggingCriticalErrorListener) OnIOError(err error, message string, file journal.SequentialFile) {
	cclog.Errorf("[JOURNAL]> critical I/O error on %q: %s: %v", file.Name(), message, err)
}

func decodeAddressPolicy(raw []byte) (transport.AddressPolicy, error) {
	var v int
	_, err := fmt.Sscanf(string(raw), "%d", &v)
	if err != nil {
		return transport.AddressPolicy{}, err
	}
	return transport.AddressPolicy{MaxFrameBytes: v}, nil
}

func encodeAddressPolicy(p transport.AddressPolicy) ([]byte, error) {
	return []byte(fmt.Sprintf("%d", p.MaxFrameBytes)), nil
}

func persistPatterns(store *catalog.Store, repo *wildcard.Repository[transport.AddressPolicy]) error {
	entries := repo.Snapshot()
	values := make(map[string]transport.AddressPolicy, len(entries))
	for _, e := range entries {
		if v, ok := repo.ValueAt(e.Pattern); ok {
			values[e.Pattern] = v
		}
	}
	return catalog.Persist(store, entries, values, encodeAddressPolicy)
}
