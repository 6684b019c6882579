/*
 * Copyright 2026 Fieldwatch Systems, Inc.
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

package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log, err := New(&Config{
		Level:  "debug",
		Output: "stdout",
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	impl, ok := log.(*loggerImpl)
	if !ok {
		t.Fatalf("New should return a *loggerImpl, got %T", log)
	}

	if impl.logger.GetLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level, got %v", impl.logger.GetLevel())
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New(&Config{Level: "noisy"}); err == nil {
		t.Error("Expected an error for an unknown level")
	}
}

func TestDebugOverridesLevel(t *testing.T) {
	log, err := New(&Config{Level: "error", Debug: true})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	if impl := log.(*loggerImpl); impl.logger.GetLevel() != zerolog.DebugLevel {
		t.Errorf("Debug flag should win over level, got %v", impl.logger.GetLevel())
	}
}

func TestSetDebug(t *testing.T) {
	log, err := New(nil)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	log.SetDebug(true)

	if impl := log.(*loggerImpl); impl.logger.GetLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level after SetDebug(true), got %v", impl.logger.GetLevel())
	}

	log.SetDebug(false)

	if impl := log.(*loggerImpl); impl.logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level after SetDebug(false), got %v", impl.logger.GetLevel())
	}
}

func TestNewComponentLogger(t *testing.T) {
	log, err := NewComponentLogger("discovery", nil)
	if err != nil {
		t.Fatalf("Failed to create component logger: %v", err)
	}

	if impl := log.(*loggerImpl); impl.logger.GetLevel() == zerolog.Disabled {
		t.Error("Component logger should not be disabled")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Level == "" {
		t.Error("Default config should have a level set")
	}

	if config.Output == "" {
		t.Error("Default config should have an output set")
	}
}
