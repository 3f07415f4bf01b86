// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestServiceFlags(t *testing.T) {
	flags := serviceFlags()

	findString := func(name string) *cli.StringFlag {
		for _, f := range flags {
			if sf, ok := f.(*cli.StringFlag); ok && sf.Name == name {
				return sf
			}
		}
		return nil
	}

	t.Run("db is required", func(t *testing.T) {
		dbFlag := findString("db")
		require.NotNil(t, dbFlag)
		assert.True(t, dbFlag.Required)
		assert.Contains(t, dbFlag.Aliases, "d")
	})

	t.Run("hosts have local defaults", func(t *testing.T) {
		embedHost := findString("embedding-host")
		require.NotNil(t, embedHost)
		assert.Equal(t, "http://localhost:11434/v1", embedHost.Value)

		chatHost := findString("chat-host")
		require.NotNil(t, chatHost)
		assert.Equal(t, "http://localhost:11434/v1", chatHost.Value)
	})

	t.Run("models are required with no default", func(t *testing.T) {
		embedModel := findString("embedding-model")
		require.NotNil(t, embedModel)
		assert.True(t, embedModel.Required)
		assert.Empty(t, embedModel.Value)

		chatModel := findString("chat-model")
		require.NotNil(t, chatModel)
		assert.True(t, chatModel.Required)
		assert.Empty(t, chatModel.Value)
	})
}

func TestCommandFlagValidation(t *testing.T) {
	app := &cli.App{
		Name: "docchat",
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Action: ingestCommand,
				Flags:  serviceFlags(),
			},
		},
	}

	t.Run("db is required", func(t *testing.T) {
		err := app.Run([]string{"docchat", "ingest", "--embedding-model", "m", "--chat-model", "m", "doc.txt"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db")
	})

	t.Run("models are required", func(t *testing.T) {
		err := app.Run([]string{"docchat", "ingest", "--db", t.TempDir(), "doc.txt"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model")
	})
}

func TestSetupLogger(t *testing.T) {
	contextWithLevel := func(level string) *cli.Context {
		set := flag.NewFlagSet("test", flag.ContinueOnError)
		set.String("log-level", level, "")
		return cli.NewContext(cli.NewApp(), set, nil)
	}

	t.Run("accepts known levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "WARN"} {
			assert.NoError(t, setupLogger(contextWithLevel(level)), "level %s", level)
		}
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		err := setupLogger(contextWithLevel("verbose"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "verbose")
	})
}
