package main

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"overseer/internal/client"
	"overseer/internal/config"
)

const usageText = `overseer supervises a local AI coding agent and the project's dev server.

Usage:
  overseer <command> [flags]

Commands:
  daemon    run the control daemon
  chat      send a prompt and stream the reply
  tail      attach to the live event stream
  status    show daemon, stream, and dev server status
  abort     abort the in-flight stream
  history   show or clear the conversation history
  runs      manage model comparison runs
  app       control the supervised dev server
  confirm   list and resolve tool confirmations
  config    print effective configuration
  ui        run the terminal UI
  help      show help

Flags:
  -h, --help   show help

Daemon flags:
  --background    run in background (logs to file)
  --force         stop any running daemon before starting
  --kill          stop any running daemon and exit

Examples:
  overseer chat "add input validation to the signup form"
  overseer runs add --model opus --provider anthropic
  overseer app logs --follow
  overseer confirm approve all
`

const version = "dev"

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	case "daemon":
		exitOnErr("daemon", runDaemonCommand(args[1:]))
	case "chat":
		exitOnErr("chat", runChat(args[1:]))
	case "tail":
		exitOnErr("tail", runTail(args[1:]))
	case "status":
		exitOnErr("status", runStatus(args[1:]))
	case "abort":
		exitOnErr("abort", runAbort(args[1:]))
	case "history":
		exitOnErr("history", runHistory(args[1:]))
	case "runs":
		exitOnErr("runs", runRuns(args[1:]))
	case "app":
		exitOnErr("app", runApp(args[1:]))
	case "confirm":
		exitOnErr("confirm", runConfirm(args[1:]))
	case "config":
		exitOnErr("config", runConfig(args[1:]))
	case "ui":
		exitOnErr("ui", runUI(args[1:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func newClient() (*client.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return client.New(cfg.DaemonBaseURL()), nil
}

func exitOnErr(label string, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s error: %v\n", label, err)
	os.Exit(1)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		var revision string
		var modified string
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				revision = setting.Value
			case "vcs.modified":
				modified = setting.Value
			}
		}
		if revision != "" {
			if modified == "true" {
				return revision + "-dirty"
			}
			return revision
		}
	}

	exe, err := os.Executable()
	if err == nil {
		file, err := os.Open(exe)
		if err == nil {
			defer file.Close()
			hasher := sha256.New()
			if _, err := io.Copy(hasher, file); err == nil {
				sum := hasher.Sum(nil)
				return fmt.Sprintf("bin-%x", sum[:6])
			}
		}
	}

	return version
}
