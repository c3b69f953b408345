// chattemplate renders chat conversations through chat templates, resolves
// model templates from the Hugging Face Hub, compiles tool schemas, and
// serves all of it over MCP.
//
// Usage:
//
//	chattemplate [global flags] render [-f request.json]
//	chattemplate [global flags] fetch --model M [--revision R] [--chat-template T]
//	chattemplate [global flags] schema -f callable.json
//	chattemplate [global flags] serve [--http :8080]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/jonwraymond/chattemplate/chattemplate"
	"github.com/jonwraymond/chattemplate/modeltemplate"
	"github.com/jonwraymond/chattemplate/preprocessing"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Getenv)
	stop()
	klog.Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env carries the process streams and environment of one invocation.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	getenv func(string) string
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, app *app, args []string) error
}

var commands = []command{
	{"render", "render a request document and print the response", runRender},
	{"fetch", "print a model's chat template and special tokens", runFetch},
	{"schema", "compile a callable descriptor into a tool schema", runSchema},
	{"serve", "serve the MCP tools over stdio or HTTP", runServe},
}

// app is the configured processor shared by the subcommands.
type app struct {
	env       env
	config    Config
	processor *preprocessing.Processor
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, getenv func(string) string) error {
	var (
		configPath  string
		capacity    int
		hubEndpoint string
		hubToken    string
		verbosity   int
	)
	flagSet := pflag.NewFlagSet("chattemplate", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&configPath, "config", "", "path to a TOML config file")
	flagSet.IntVar(&capacity, "cache-capacity", chattemplate.DefaultCapacity, "compiled template cache capacity")
	flagSet.StringVar(&hubEndpoint, "hub-endpoint", modeltemplate.DefaultHubEndpoint, "model hub base URL")
	flagSet.StringVar(&hubToken, "hub-token", "", "model hub access token (default $HF_TOKEN)")
	flagSet.IntVarP(&verbosity, "verbosity", "v", 0, "log verbosity")
	flagSet.Usage = func() { printUsage(flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg := DefaultConfig()
	if configPath != "" {
		if err := LoadConfig(configPath, &cfg); err != nil {
			return err
		}
	}
	if flagSet.Changed("cache-capacity") {
		cfg.Cache.Capacity = capacity
	}
	if flagSet.Changed("hub-endpoint") {
		cfg.Hub.Endpoint = hubEndpoint
	}
	if flagSet.Changed("hub-token") {
		cfg.Hub.Token = hubToken
	}
	if flagSet.Changed("verbosity") {
		cfg.Log.Verbosity = verbosity
	}
	cfg.ApplyEnv(getenv)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := setupLogging(cfg.Log.Verbosity); err != nil {
		return err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(flagSet)
		return errors.New("missing command")
	}
	var cmd *command
	for i := range commands {
		if commands[i].name == rest[0] {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		return fmt.Errorf("unknown command %q", rest[0])
	}

	a, err := newApp(env{stdin: stdin, stdout: stdout, getenv: getenv}, cfg)
	if err != nil {
		return err
	}
	ctx = klog.NewContext(ctx, klog.Background().WithName("chattemplate"))
	return cmd.run(ctx, a, rest[1:])
}

func newApp(e env, cfg Config) (*app, error) {
	cache, err := chattemplate.NewCache(chattemplate.CacheOptions{Capacity: cfg.Cache.Capacity})
	if err != nil {
		return nil, err
	}
	hub, err := modeltemplate.NewHubRegistry(modeltemplate.HubOptions{
		Endpoint:  cfg.Hub.Endpoint,
		UserAgent: "chattemplate/" + version,
	})
	if err != nil {
		return nil, err
	}
	return &app{
		env:    e,
		config: cfg,
		processor: preprocessing.New(preprocessing.Options{
			TemplateCache: cache,
			Registry:      withDefaultToken(hub, cfg.Hub.Token),
		}),
	}, nil
}

// withDefaultToken uses token for registry requests that carry none.
func withDefaultToken(reg modeltemplate.Registry, token string) modeltemplate.Registry {
	if token == "" {
		return reg
	}
	return modeltemplate.RegistryFunc(func(ctx context.Context, key modeltemplate.Key) (modeltemplate.TokenizerConfig, error) {
		if key.Token == "" {
			key.Token = token
		}
		return reg.FetchTokenizerConfig(ctx, key)
	})
}

// setupLogging routes the verbosity into klog, which only reads its
// settings from a standard library flag set.
func setupLogging(verbosity int) error {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	return fs.Set("v", strconv.Itoa(verbosity))
}

func printUsage(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: chattemplate [flags] <command> [command flags]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", c.name, c.usage)
	}
	fmt.Fprintf(os.Stderr, "\nFlags:\n%s", flagSet.FlagUsages())
}
