package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

var (
	serverURL = flag.String("server", "ws://localhost:8080", "botcore base WebSocket URL")
	botID     = flag.String("bot", "support", "Bot to talk to")
	sessionID = flag.String("session", "", "Resume an existing session")
	userID    = flag.String("user", "simulator", "User ID sent with every message")
	script    = flag.String("script", "", "File with one message per line; runs non-interactively")
	verbose   = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	simulator := NewSimulator(&SimulatorConfig{
		ServerURL: *serverURL,
		BotID:     *botID,
		SessionID: *sessionID,
		UserID:    *userID,
	}, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down simulator...")
		simulator.Stop()
		os.Exit(0)
	}()

	if err := simulator.Connect(); err != nil {
		logger.Fatal("Failed to connect to server", zap.Error(err))
	}
	defer simulator.Stop()

	if *script != "" {
		f, err := os.Open(*script)
		if err != nil {
			logger.Fatal("Failed to open script", zap.Error(err))
		}
		defer f.Close()
		if err := simulator.RunScript(f, os.Stdout); err != nil {
			logger.Error("Script failed", zap.Error(err))
		}
		return
	}

	fmt.Printf("botcore chat simulator (bot %q)\n", *botID)
	fmt.Println("Commands:")
	fmt.Println("  /restart [message]  - Start a new conversation")
	fmt.Println("  /session            - Show the current session id")
	fmt.Println("  /quit               - Exit simulator")
	fmt.Println("")

	simulator.RunInteractive(os.Stdin, os.Stdout)
}
