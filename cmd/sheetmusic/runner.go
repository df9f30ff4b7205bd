package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tendant/sheetmusic/pkg/sheetmusic"
	"github.com/tendant/sheetmusic/pkg/sheetmusic/api"
	"github.com/tendant/sheetmusic/pkg/sheetmusic/config"
	"github.com/urfave/cli/v3"
)

const defaultTokenTTL = 24 * time.Hour

// errMissingArgument is returned when a required positional argument is empty
var errMissingArgument = errors.New("missing argument")

// Runner holds the dependencies of the CLI commands
type Runner struct {
	logger  *log.Logger
	output  io.Writer
	options []config.Option

	config  *config.ServerConfig
	runtime *config.Runtime
}

// RunnerOpts configures a Runner
type RunnerOpts struct {
	Logger *log.Logger
	Output io.Writer
	// Options are applied after the config file and environment.
	Options []config.Option
}

// NewRunner creates a Runner
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Runner{
		logger:  opts.Logger,
		output:  opts.Output,
		options: opts.Options,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range []func(*Runner) *cli.Command{
		listCommand, searchCommand, showCommand, downloadCommand, tokenCommand, migrateCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

// Before loads the configuration shared by every command
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		r.logger.SetLevel(log.DebugLevel)
	}

	opts := []config.Option{}
	if path := cmd.String("config"); path != "" {
		opts = append(opts, config.WithFile(path))
	}
	if path := cmd.String("env-file"); path != "" {
		opts = append(opts, config.WithDotEnv(path))
	}
	opts = append(opts, config.WithEnv())
	opts = append(opts, r.options...)

	cfg, err := config.Load(opts...)
	if err != nil {
		return ctx, err
	}
	r.config = cfg
	return ctx, nil
}

// After releases the service built by a command
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	if r.runtime != nil {
		r.runtime.Close()
		r.runtime = nil
	}
	return nil
}

// service builds the catalog service on first use
func (r *Runner) service(ctx context.Context) (sheetmusic.Service, error) {
	if r.runtime == nil {
		// charmbracelet/log implements slog.Handler
		rt, err := r.config.BuildService(ctx, slog.New(r.logger))
		if err != nil {
			return nil, err
		}
		r.runtime = rt
	}
	return r.runtime.Service, nil
}

func (r *Runner) List(ctx context.Context, cmd *cli.Command) error {
	return r.listPage(ctx, cmd, func(svc sheetmusic.Service, page sheetmusic.PageRequest) (*sheetmusic.Page[sheetmusic.SheetMusicSummary], error) {
		return svc.FindAllSheetMusic(ctx, page)
	})
}

func (r *Runner) SearchTitle(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	r.logger.Debug("searching titles", "query", query)
	return r.listPage(ctx, cmd, func(svc sheetmusic.Service, page sheetmusic.PageRequest) (*sheetmusic.Page[sheetmusic.SheetMusicSummary], error) {
		return svc.SearchTitleSheetMusic(ctx, page, query)
	})
}

func (r *Runner) SearchWriter(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	r.logger.Debug("searching writers", "query", query)
	return r.listPage(ctx, cmd, func(svc sheetmusic.Service, page sheetmusic.PageRequest) (*sheetmusic.Page[sheetmusic.SheetMusicSummary], error) {
		return svc.SearchWriterSheetMusic(ctx, page, query)
	})
}

func (r *Runner) Show(ctx context.Context, cmd *cli.Command) error {
	raw := cmd.StringArg("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("%w: id must be a positive integer, got %q", errMissingArgument, raw)
	}

	svc, err := r.service(ctx)
	if err != nil {
		return err
	}
	result, err := svc.FindSheetMusic(ctx, id)
	if err != nil {
		return err
	}
	return r.writeJSON(result)
}

func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	url := cmd.StringArg("url")
	if url == "" {
		return fmt.Errorf("%w: url", errMissingArgument)
	}
	if dir := cmd.String("dir"); dir != "" {
		r.config.DownloadDir = dir
	}

	svc, err := r.service(ctx)
	if err != nil {
		return err
	}
	path, err := svc.DownloadObject(ctx, url)
	if err != nil {
		return err
	}

	r.logger.Info("downloaded", "url", url, "path", path)
	fmt.Fprintln(r.output, path)
	return nil
}

func (r *Runner) Token(ctx context.Context, cmd *cli.Command) error {
	member := sheetmusic.Member{
		ID:    cmd.Int64("member-id"),
		Email: cmd.String("email"),
	}
	if member.ID <= 0 {
		return fmt.Errorf("%w: member-id must be positive", errMissingArgument)
	}

	token, err := api.IssueToken(api.NewAuth(r.config.Auth.JWTSecret), member, cmd.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Fprintln(r.output, token)
	return nil
}

func (r *Runner) Migrate(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Migrate(ctx); err != nil {
		return err
	}
	r.logger.Info("schema ready", "database", r.config.DatabaseType)
	return nil
}

func (r *Runner) listPage(ctx context.Context, cmd *cli.Command, find func(sheetmusic.Service, sheetmusic.PageRequest) (*sheetmusic.Page[sheetmusic.SheetMusicSummary], error)) error {
	page, err := sheetmusic.NewPageRequest(int(cmd.Int("page")), int(cmd.Int("size")))
	if err != nil {
		return err
	}

	svc, err := r.service(ctx)
	if err != nil {
		return err
	}
	result, err := find(svc, page)
	if err != nil {
		return err
	}
	return r.writeJSON(result)
}

func (r *Runner) writeJSON(data any) error {
	encoder := json.NewEncoder(r.output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
