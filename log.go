// Copyright (C) 2025 Logical Mechanism LLC
// SPDX-License-Identifier: GPL-3.0-only

// log.go

package main

import (
	"io"
	"time"

	gnarklogger "github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"
)

// newLogger returns a console logger writing to w. gnark's own logger is
// pointed at the same sink so circuit compilation and setup progress shows
// up in one place.
func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	lg := zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()

	if verbose {
		gnarklogger.Set(lg)
	} else {
		gnarklogger.Set(lg.Level(zerolog.WarnLevel))
	}
	return lg
}
