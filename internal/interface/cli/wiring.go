package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/llmhelper/internal/adapter/gateway/completion"
	"github.com/YoshitsuguKoike/llmhelper/internal/adapter/gateway/storage"
	"github.com/YoshitsuguKoike/llmhelper/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/llmhelper/internal/app/config"
	"github.com/YoshitsuguKoike/llmhelper/internal/application/port/output"
	"github.com/YoshitsuguKoike/llmhelper/internal/application/service"
	"github.com/YoshitsuguKoike/llmhelper/internal/application/workflow"
	"github.com/YoshitsuguKoike/llmhelper/internal/domain/pricing"
	"github.com/YoshitsuguKoike/llmhelper/internal/infra/recordstore"
	"github.com/YoshitsuguKoike/llmhelper/internal/infra/tokenizer"
	"github.com/YoshitsuguKoike/llmhelper/internal/infrastructure/repository"
)

// container holds what the commands share for one invocation
type container struct {
	cfg     config.Config
	fs      afero.Fs
	store   *recordstore.Store
	history *repository.HistoryRepositoryImpl
	console output.Console
}

// newCompletionGateway is replaced in tests
var newCompletionGateway = func(cfg config.Config) (output.CompletionGateway, error) {
	return completion.NewGateway(cfg.Provider(), completion.Options{
		APIKey:  cfg.APIKey(),
		Model:   cfg.Model(),
		BaseURL: cfg.BaseURL(),
		Timeout: cfg.Timeout(),
	})
}

// newTokenCounter is replaced in tests
var newTokenCounter = func() output.TokenCounter {
	return tokenizer.Tiktoken{}
}

// newPrompter is replaced in tests
var newPrompter = func() output.Prompter {
	return NewTerminalPrompter(nil, nil)
}

func newContainer(cfg config.Config, out io.Writer, printTokens bool) *container {
	fs := afero.NewOsFs()
	store := recordstore.New(fs, cfg.Home(),
		recordstore.WithMaxSegmentBytes(cfg.SegmentMaxBytes()),
		recordstore.WithStrictFsync(cfg.StrictFsync()),
	)
	return &container{
		cfg:     cfg,
		fs:      fs,
		store:   store,
		history: repository.NewHistoryRepositoryImpl(store),
		console: presenter.NewConsolePresenter(out,
			presenter.WithPrintTokens(printTokens),
			presenter.WithNoClear(cfg.NoClear()),
		),
	}
}

func (c *container) workflowDeps() (workflow.Deps, error) {
	gateway, err := newCompletionGateway(c.cfg)
	if err != nil {
		return workflow.Deps{}, err
	}
	return workflow.Deps{
		Fs:         c.fs,
		Completion: gateway,
		Prompter:   newPrompter(),
		Console:    c.console,
		History:    c.history,
		Prices:     pricing.Default().WithOverrides(c.cfg.Prices()),
		Tokens:     newTokenCounter(),
		Logger:     presenter.NewStepLogger(c.console, time.Now),
	}, nil
}

// archiveTarget selects the storage gateway for history archive. A bucket
// wins over a local directory.
type archiveTarget struct {
	Bucket string
	Prefix string
	Region string
	Dir    string
}

func (c *container) archiveService(ctx context.Context, target archiveTarget) (*service.ArchiveService, error) {
	var gateway output.StorageGateway
	switch {
	case target.Bucket != "":
		s3Gateway, err := storage.NewS3StorageGateway(ctx, storage.S3Config{
			BucketName: target.Bucket,
			Prefix:     target.Prefix,
			Region:     target.Region,
		})
		if err != nil {
			return nil, err
		}
		gateway = s3Gateway
	case target.Dir != "":
		localGateway, err := storage.NewLocalStorageGateway(c.fs, target.Dir)
		if err != nil {
			return nil, err
		}
		gateway = localGateway
	default:
		return nil, fmt.Errorf("no archive target: set --bucket, --dir, archive_bucket or archive_dir")
	}
	return service.NewArchiveService(c.store, gateway), nil
}
