// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourfrienddhruv/hornetq/internal/transport"
	"github.com/yourfrienddhruv/hornetq/pkg/journal"
	"github.com/yourfrienddhruv/hornetq/pkg/wildcard"
)

// admin is the broker's operator-facing HTTP surface: pattern inspection
// and journal file listing, plus the Prometheus scrape endpoint. None of
// this is on the message path; it exists purely so an operator can see
// what the Pattern Repository and Sequential File Factory are doing.
type admin struct {
	repo    *wildcard.Repository[transport.AddressPolicy]
	factory journal.SequentialFileFactory
	ext     string
}

func newAdminRouter(a *admin) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/patterns", a.listPatterns).Methods(http.MethodGet)
	r.HandleFunc("/journal/files", a.listJournalFiles).Methods(http.MethodGet)
	return r
}

func (a *admin) listPatterns(w http.ResponseWriter, r *http.Request) {
	entries := a.repo.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func (a *admin) listJournalFiles(w http.ResponseWriter, r *http.Request) {
	names, err := a.factory.ListFiles(a.ext)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(names)
}
