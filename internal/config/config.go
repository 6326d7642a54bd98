// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config aggregates the broker's subsystem configuration from a
// single JSON file, following config.Init's shape: a package-level Keys
// value, decoded eagerly at startup with unknown fields rejected.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/yourfrienddhruv/hornetq/internal/transport"
)

// JournalConfig mirrors metricstore.MetricStoreConfig's shape: a root
// directory, a file extension, and the Timed Buffer's size/timeout
// knobs.
type JournalConfig struct {
	RootDir         string        `json:"rootDir"`
	Extension       string        `json:"extension"`
	BufferSizeBytes int           `json:"bufferSizeBytes"`
	FlushTimeout    time.Duration `json:"flushTimeout"`
	CatalogPath     string        `json:"catalogPath"`
}

// ProgramConfig is the top-level broker configuration loaded from disk
// at startup.
type ProgramConfig struct {
	Journal   JournalConfig    `json:"journal"`
	Transport transport.Config `json:"transport"`
	AdminAddr string           `json:"adminAddr"`
}

const (
	DefaultBufferSizeBytes = 4096
	DefaultFlushTimeout    = 2 * time.Second
	DefaultExtension       = "jnl"
	DefaultAdminAddr       = ":8081"
)

// Keys holds the active configuration once Init has run.
var Keys = ProgramConfig{
	Journal: JournalConfig{
		Extension:       DefaultExtension,
		BufferSizeBytes: DefaultBufferSizeBytes,
		FlushTimeout:    DefaultFlushTimeout,
	},
	AdminAddr: DefaultAdminAddr,
}

// Init loads flagConfigFile into Keys, rejecting unknown fields the way
// config.Init does, and validates the result. Each call decodes into a
// fresh configuration, so values from an earlier call do not carry over.
func Init(flagConfigFile string) error {
	raw, err := os.ReadFile(flagConfigFile)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", flagConfigFile, err)
	}

	var cfg ProgramConfig
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return fmt.Errorf("config: decode %s: %w", flagConfigFile, err)
	}

	Keys = cfg
	return validate()
}

func validate() error {
	if Keys.Journal.RootDir == "" {
		return errors.New("config: journal.rootDir must not be empty")
	}
	if Keys.Journal.Extension == "" {
		Keys.Journal.Extension = DefaultExtension
	}
	if Keys.Journal.BufferSizeBytes <= 0 {
		Keys.Journal.BufferSizeBytes = DefaultBufferSizeBytes
	}
	if Keys.Journal.FlushTimeout <= 0 {
		Keys.Journal.FlushTimeout = DefaultFlushTimeout
	}
	if Keys.AdminAddr == "" {
		Keys.AdminAddr = DefaultAdminAddr
	}
	return nil
}
