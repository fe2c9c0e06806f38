/*
 * Copyright (c) SAS Institute Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package shared

import (
	"fmt"
	stdlog "log"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Linmuge/apkextractor-sub000/internal/logrotate"
)

const rfc3339Milli = "2006-01-02T15:04:05.000Z07:00"

// SetupLogging initializes zerolog. An empty logFile writes pretty text to
// stderr, "-" writes JSON to stderr and any other value appends JSON to that
// file, reopening it after rotation.
func SetupLogging(levelName, logFile string) error {
	zerolog.TimeFieldFormat = rfc3339Milli
	zerolog.DurationFieldInteger = true
	switch logFile {
	case "-":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	case "":
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		}).With().Timestamp().Logger()
	default:
		w, err := logrotate.NewWriter(logFile)
		if err != nil {
			return fmt.Errorf("log_file: %w", err)
		}
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	}
	if levelName == "" {
		levelName = zerolog.WarnLevel.String()
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	log.Logger = log.Logger.Level(level)
	// pass stdlib logger through
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
	return nil
}
