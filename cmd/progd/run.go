/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"fmt"

	"github.com/Comcast/aiml/bot"
	"github.com/Comcast/aiml/graph"
	"github.com/Comcast/aiml/sio"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	coupling    string
	botId       string
	addr        string
	broker      string
	clientId    string
	subTopics   string
	resultTopic string

	watch      bool
	reload     string
	backend    string
	dbPath     string
	javascript bool
	maxDepth   int
)

var runCmd = &cobra.Command{
	Use:   "run [rule files...]",
	Short: "Load rules and talk to bots",
	Long: `Loads the configured bots' rule files and any given on the command
line (for --bot) and then answers input from the chosen coupling:

  std    an interactive shell on stdin and stdout
  http   POST /talk, GET /ws, and GET /health on --addr
  mqtt   requests on --topics and results on --result-topic`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&coupling, "io", "std", `IO coupling: "std", "http", or "mqtt"`)
	f.StringVarP(&botId, "bot", "b", "", "Bot for command-line rule files and requests without a bot")
	f.StringVar(&addr, "addr", ":8080", "Listen address for -io http")
	f.StringVar(&broker, "broker", "tcp://localhost:1883", "MQTT broker for -io mqtt")
	f.StringVar(&clientId, "client-id", "progd", "MQTT client id")
	f.StringVar(&subTopics, "topics", "aiml/in", "MQTT request topic(s), each optionally TOPIC:QOS")
	f.StringVar(&resultTopic, "result-topic", "aiml/out/%s", `MQTT result topic ("%s" is the bot id)`)

	f.BoolVar(&watch, "watch", false, "Reload rule files when they change")
	f.StringVar(&reload, "reload", "", "Cron expression for reloading all rule files")
	f.StringVar(&backend, "predicates", "", `Predicates backend: "memory", "bolt", or "sqlite"`)
	f.StringVar(&dbPath, "predicates-path", "", "Database file for the predicates backend")
	f.BoolVar(&javascript, "javascript", false, "Enable the <javascript> tag")
	f.IntVar(&maxDepth, "max-depth", 0, "Maximum template evaluation depth")
}

// engine builds the Engine with command-line flags overriding the
// configuration.
func engine(cmd *cobra.Command, files []string) (*bot.Engine, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("watch") {
		cfg.Watch = watch
	}
	if flags.Changed("reload") {
		cfg.Reload = reload
	}
	if flags.Changed("predicates") {
		cfg.Predicates.Backend = backend
	}
	if flags.Changed("predicates-path") {
		cfg.Predicates.Path = dbPath
	}
	if flags.Changed("javascript") {
		cfg.Javascript = javascript
	}
	if flags.Changed("max-depth") {
		cfg.Interpreter.MaxDepth = maxDepth
	}

	if 0 < len(files) {
		id := botId
		if id == "" {
			id = "default"
		}
		var bc *bot.BotConfig
		for _, b := range cfg.Bots {
			if b.ID == id {
				bc = b
			}
		}
		if bc == nil {
			bc = &bot.BotConfig{ID: id}
			cfg.Bots = append(cfg.Bots, bc)
		}
		bc.Files = append(bc.Files, files...)
	}

	return bot.NewEngine(cfg, logger)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	e, err := engine(cmd, args)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := e.LoadFiles(ctx); err != nil {
		logger.Warn("loading rules", zap.Error(err))
	}

	if e.Config.Watch {
		w, err := graph.NewWatcher(e.Graph)
		if err != nil {
			return err
		}
		for _, id := range e.BotIDs() {
			if err := w.AddLoaded(id); err != nil {
				return err
			}
		}
		go func() {
			if err := ignoreCanceled(w.Run(ctx)); err != nil {
				logger.Error("watcher", zap.Error(err))
			}
		}()
	}

	if e.Config.Reload != "" {
		s, err := sio.NewScheduler(e.Config.Reload, e.Reload)
		if err != nil {
			return fmt.Errorf("reload schedule: %w", err)
		}
		s.Logger = logger
		go s.Run(ctx)
	}

	var cs sio.Couplings
	switch coupling {
	case "std", "shell":
		s := sio.NewShell(e, e.Bots)
		s.BotID = botId
		s.Logger = logger
		cs = s
	case "http", "httpd", "ws":
		s := sio.NewHTTPD(addr, defaultBot(e))
		s.Logger = logger
		cs = s
	case "mq", "mqtt":
		m := sio.NewMQTT(broker, clientId, subTopics, resultTopic, defaultBot(e))
		m.Logger = logger
		cs = m
	default:
		return fmt.Errorf("unknown io: %q", coupling)
	}

	conv := sio.NewConversation(e.Interpreter, logger)
	return ignoreCanceled(sio.Run(ctx, conv, cs))
}

func defaultBot(e *bot.Engine) string {
	if botId != "" {
		return botId
	}
	if ids := e.BotIDs(); 0 < len(ids) {
		return ids[0]
	}
	return ""
}

var testCmd = &cobra.Command{
	Use:   "test script.yaml...",
	Short: "Run conversation scripts against the configured bots",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, err := engine(cmd, nil)
		if err != nil {
			return err
		}
		defer e.Close()
		if _, err := e.LoadFiles(ctx); err != nil {
			return err
		}
		return runScripts(ctx, sio.NewConversation(e.Interpreter, logger), args, cmd.OutOrStdout())
	},
}
