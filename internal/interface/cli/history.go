package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/llmhelper/internal/application/port/output"
	"github.com/YoshitsuguKoike/llmhelper/internal/application/service"
	"github.com/YoshitsuguKoike/llmhelper/internal/domain/repository"
	infraRepo "github.com/YoshitsuguKoike/llmhelper/internal/infrastructure/repository"
)

func parseCount(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid number of records: %q", arg)
	}
	return n, nil
}

func newTailCmd() *cobra.Command {
	var interrupted bool
	cmd := &cobra.Command{
		Use:   "tail <n>",
		Short: "Show the latest single prompt runs with their completions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseCount(args[0])
			if err != nil {
				return err
			}
			c := newContainer(globalConfig, cmd.OutOrStdout(), false)
			records, err := c.history.Query(cmd.Context(), repository.HistoryFilter{
				Types:              []repository.RunType{repository.RunTypeSinglePrompt},
				IncludeInterrupted: interrupted,
				Limit:              n,
			})
			if err != nil {
				return err
			}
			c.console.Clear()
			return printTail(c.console, records)
		},
	}
	cmd.Flags().BoolVar(&interrupted, "interrupted", false, "include interrupted runs")
	return cmd
}

// printTail groups records by the segment they were read from
func printTail(console output.Console, records []*repository.HistoryRecord) error {
	current := ""
	for _, rec := range records {
		if rec.Segment != current {
			console.Println("File: "+rec.Segment, output.ColorRed)
			console.Separator()
			current = rec.Segment
		}
		console.Println("Prompt: "+rec.Prompt, output.ColorGreen)
		console.Println("Completion: "+rec.Completion, output.ColorBlue)
		params, err := parameters(rec)
		if err != nil {
			return err
		}
		console.Println("Parameters: "+params, output.ColorRed)
		console.Separator()
	}
	return nil
}

// parameters renders every persisted field except prompt and completion
func parameters(rec *repository.HistoryRecord) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", err
	}
	delete(fields, "prompt")
	delete(fields, "completion")
	out, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func newListCmd() *cobra.Command {
	var interrupted bool
	cmd := &cobra.Command{
		Use:   "list <n>",
		Short: "List the latest runs of both modes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseCount(args[0])
			if err != nil {
				return err
			}
			c := newContainer(globalConfig, cmd.OutOrStdout(), false)
			records, err := c.history.Query(cmd.Context(), repository.HistoryFilter{
				Types:              []repository.RunType{repository.RunTypeSinglePrompt, repository.RunTypeChat},
				IncludeInterrupted: interrupted,
				Limit:              n,
			})
			if err != nil {
				return err
			}
			c.console.Clear()
			for _, rec := range records {
				c.console.Println(listLine(rec), output.ColorRed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&interrupted, "interrupted", false, "include interrupted runs")
	return cmd
}

// listLine pads the run mode so chat lines up with single_prompt
func listLine(rec *repository.HistoryRecord) string {
	mode := string(rec.Type)
	if rec.Type == repository.RunTypeChat {
		mode += strings.Repeat(" ", 9)
	}
	return fmt.Sprintf("Created at: %s.\tRun mode: %s\tFile: %s",
		rec.CreatedAt.Format("2006-01-02T15:04:05.000000"), mode, rec.FileLocation)
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and back up history segment files",
	}
	cmd.AddCommand(newHistorySegmentsCmd())
	cmd.AddCommand(newHistoryArchiveCmd())
	cmd.AddCommand(newHistoryArchivedCmd())
	return cmd
}

func newHistorySegmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "segments",
		Short: "List history segment files with their sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newContainer(globalConfig, cmd.OutOrStdout(), false)
			segments, err := c.store.Segments(cmd.Context(), infraRepo.HistoryCategory)
			if err != nil {
				return err
			}
			if len(segments) == 0 {
				c.console.Println("No history segments", output.ColorRed)
				return nil
			}
			for _, seg := range segments {
				line := fmt.Sprintf("%s\t%d bytes", seg.Name, seg.Size)
				if seg.Active {
					line += "\t(active)"
				}
				c.console.Println(line, output.ColorWhite)
			}
			return nil
		},
	}
}

// registerTarget binds the archive destination flags. Unset flags fall back
// to the archive_* settings.
func registerTarget(cmd *cobra.Command, target *archiveTarget) {
	cmd.Flags().StringVar(&target.Bucket, "bucket", "", "S3 bucket (default archive_bucket setting)")
	cmd.Flags().StringVar(&target.Prefix, "prefix", "", "S3 key prefix")
	cmd.Flags().StringVar(&target.Region, "region", "", "AWS region")
	cmd.Flags().StringVar(&target.Dir, "dir", "", "local directory used when no bucket is set")
}

func resolveTarget(cmd *cobra.Command, target archiveTarget) archiveTarget {
	if !cmd.Flags().Changed("bucket") {
		target.Bucket = globalConfig.ArchiveBucket()
	}
	if !cmd.Flags().Changed("prefix") {
		target.Prefix = globalConfig.ArchivePrefix()
	}
	if !cmd.Flags().Changed("region") {
		target.Region = globalConfig.ArchiveRegion()
	}
	if !cmd.Flags().Changed("dir") {
		target.Dir = globalConfig.ArchiveDir()
	}
	return target
}

func newHistoryArchiveCmd() *cobra.Command {
	var (
		target archiveTarget
		all    bool
	)
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Copy sealed history segments to S3 or a local directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := resolveTarget(cmd, target)
			c := newContainer(globalConfig, cmd.OutOrStdout(), false)
			archiver, err := c.archiveService(cmd.Context(), dest)
			if err != nil {
				return err
			}
			result, err := archiver.Archive(cmd.Context(), service.ArchiveOptions{
				Category:      infraRepo.HistoryCategory,
				IncludeActive: all,
			})
			if err != nil {
				return err
			}
			printArchiveResult(c.console, result)
			return nil
		},
	}
	registerTarget(cmd, &target)
	cmd.Flags().BoolVar(&all, "all", false, "include the active segment")
	return cmd
}

func newHistoryArchivedCmd() *cobra.Command {
	var target archiveTarget
	cmd := &cobra.Command{
		Use:   "archived",
		Short: "List history segments already archived",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newContainer(globalConfig, cmd.OutOrStdout(), false)
			archiver, err := c.archiveService(cmd.Context(), resolveTarget(cmd, target))
			if err != nil {
				return err
			}
			objects, err := archiver.List(cmd.Context(), infraRepo.HistoryCategory)
			if err != nil {
				return err
			}
			for _, obj := range objects {
				c.console.Println(fmt.Sprintf("%s\t%d bytes\t%s", obj.StoragePath, obj.Size, obj.Checksum), output.ColorWhite)
			}
			return nil
		},
	}
	registerTarget(cmd, &target)
	return cmd
}

func printArchiveResult(console output.Console, result *service.ArchiveResult) {
	for _, obj := range result.Uploaded {
		console.Println(fmt.Sprintf("Uploaded %s (%d bytes)", obj.StoragePath, obj.Size), output.ColorGreen)
	}
	for _, name := range result.Skipped {
		console.Println("Already archived: "+name, output.ColorWhite)
	}
	if result.Active != "" {
		console.Println("Skipped active segment "+result.Active+" (use --all to include it)", output.ColorYellow)
	}
}
