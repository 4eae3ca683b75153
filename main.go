package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"github.com/ytget/ytdl-gui/internal/compress"
	"github.com/ytget/ytdl-gui/internal/config"
	"github.com/ytget/ytdl-gui/internal/download"
	"github.com/ytget/ytdl-gui/internal/logger"
	"github.com/ytget/ytdl-gui/internal/model"
	"github.com/ytget/ytdl-gui/internal/platform"
	"github.com/ytget/ytdl-gui/internal/process"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppID   = "com.ytget.ytdl-gui"
	AppName = "ytdl-gui"

	// ShutdownGrace is added to the terminate deadline when waiting for
	// interrupted runs to end.
	ShutdownGrace = 5 * time.Second
)

var (
	debug    bool
	workDir  string
	encoding string
	custom   string

	settings *config.Settings
)

// exitCodeError carries a supervised command's exit code out of cobra
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("command exited with code %d", e.code)
}

func main() {
	setupCommands()
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(shellExitCode(exitErr.code))
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// shellExitCode maps a signal exit (negative code) to the 128+N shell convention
func shellExitCode(code int) int {
	if code < 0 {
		return 128 - code
	}
	return code
}

var rootCmd = &cobra.Command{
	Use:   AppName,
	Short: "Supervised front-end for youtube-dl",
	Long: `Runs youtube-dl (or a compatible downloader) as supervised child processes.

Output of every run is captured line by line from stdout and stderr, decoded
with the configured encoding and shown as it arrives. Interrupting a run asks
the process to exit and kills it when the terminate deadline passes.

Settings are shared with the desktop application and can be exported to and
imported from a YAML file.`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { logger.Close() },
}

var getCmd = &cobra.Command{
	Use:   "get URL...",
	Short: "Download one or more videos",
	RunE:  runGet,
}

var execCmd = &cobra.Command{
	Use:   "exec -- COMMAND [ARG...]",
	Short: "Run an arbitrary command under supervision",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExec,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether the downloader is installed",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

var compressCmd = &cobra.Command{
	Use:   "compress FILE...",
	Short: "Re-encode downloaded videos with ffmpeg",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCompress,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Export or import settings",
}

var configExportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Write the current settings to a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		if err := config.WriteFile(args[0], settings.Export()); err != nil {
			return err
		}
		fmt.Printf("Settings written to %s\n", args[0])
		return nil
	},
}

var configImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Apply settings from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		f, err := config.LoadFile(args[0])
		if err != nil {
			return err
		}
		if err := settings.Apply(f); err != nil {
			return err
		}
		fmt.Printf("Settings imported from %s\n", args[0])
		return nil
	},
}

func setupCommands() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Write debug entries to the log file")
	rootCmd.PersistentFlags().StringVar(&workDir, "workdir", "", "Working directory for supervised runs (default: download directory for get, current directory for exec)")
	rootCmd.PersistentFlags().StringVar(&encoding, "encoding", "", "Encoding of the tool's output (default: configured encoding)")

	getCmd.Flags().StringVar(&custom, "custom", "", "Run the downloader with these arguments instead of building them from settings")

	configCmd.AddCommand(configExportCmd, configImportCmd)
	rootCmd.AddCommand(getCmd, execCmd, checkCmd, compressCmd, configCmd)
}

// setup opens the log file and the shared preferences
func setup(_ *cobra.Command, _ []string) error {
	if path, err := logger.DefaultLogPath(); err == nil {
		if err := logger.Init(path); err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		}
	}
	logger.SetDebug(debug)

	if encoding != "" {
		if err := process.ValidateEncoding(encoding); err != nil {
			return err
		}
	}

	settings = config.NewSettings(app.NewWithID(AppID))
	logger.WithComponent("main").Info("starting", "version", version, "args", os.Args[1:])
	return nil
}

// processOptions applies the global flags to the configured launch options
func processOptions() process.Options {
	opts := settings.ProcessOptions()
	if workDir != "" {
		opts.WorkingDir = workDir
	}
	if encoding != "" {
		opts.Encoding = encoding
	}
	return opts
}

func newBuilder() *platform.Builder {
	return platform.NewBuilder(platform.NewProgramFinder(settings.GetDownloaderCommand()))
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runGet(cmd *cobra.Command, urls []string) error {
	if len(urls) == 0 && custom == "" {
		return errors.New("requires at least one URL or --custom arguments")
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	opts := processOptions()
	if err := platform.CreateDirectoryIfNotExists(opts.WorkingDir); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	svc := download.NewService(newBuilder(), opts.WorkingDir, settings.GetMaxParallelDownloads(), download.Options{
		Process:           opts,
		TerminateDeadline: settings.GetTerminateDeadline(),
		PollInterval:      settings.GetPollInterval(),
		FilenameTemplate:  settings.GetFilenameTemplate(),
		AdditionalOptions: settings.GetAdditionalOptions(),
		NoMarkWatched:     !settings.GetMarkWatched(),
	})
	svc.SetQualityPreset(string(settings.GetQualityPreset()))

	r := newConsoleRenderer()
	svc.SetOutputCallback(func(_ string, line model.OutputLine) {
		r.Render(line)
	})

	if custom != "" {
		if _, err := svc.AddCustomTask(custom); err != nil {
			return err
		}
	}
	for _, url := range urls {
		if _, err := svc.AddTask(url); err != nil {
			r.Println(err.Error())
		}
	}

	if !waitForDownloads(ctx, svc, settings.GetPollInterval()) {
		r.Println("Interrupted, stopping downloads...")
		for _, task := range svc.GetAllTasks() {
			if task.Status.IsActive() {
				r.Println(downloadStatusLine(task))
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.GetTerminateDeadline()+ShutdownGrace)
		defer cancel()
		if err := svc.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("downloads did not stop: %w", err)
		}
	}

	tasks := svc.GetAllTasks()
	failed := 0
	for _, task := range tasks {
		r.Println(downloadStatusLine(task))
		if task.Status != model.TaskStatusCompleted {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d downloads did not complete", failed, len(tasks))
	}
	return nil
}

// downloadStatusLine describes a task by title, result and, for runs that
// did not complete, how far they got.
func downloadStatusLine(task *model.DownloadTask) string {
	line := fmt.Sprintf("%s: %s", task.GetDisplayTitle(), task.ResultSummary())
	switch {
	case task.Status == model.TaskStatusCompleted:
		if task.OutputPath != "" {
			line += " " + task.OutputPath
		}
	case task.Status == model.TaskStatusStopped || !task.Status.IsFinished():
		line += fmt.Sprintf(" (%d%% ETA %s)", task.Percent, task.GetETAString())
	}
	return line
}

// waitForDownloads reports false when ctx ended before every task finished
func waitForDownloads(ctx context.Context, svc *download.Service, interval time.Duration) bool {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		finished := true
		for _, task := range svc.GetAllTasks() {
			if !task.Status.IsFinished() {
				finished = false
				break
			}
		}
		if finished {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

func runExec(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	opts := processOptions()
	opts.WorkingDir = workDir

	sup, err := process.Start(process.Command(args), opts)
	if err != nil {
		return err
	}

	deadline, poll := settings.GetTerminateDeadline(), settings.GetPollInterval()
	go func() {
		select {
		case <-sup.Done():
		case <-ctx.Done():
			if _, err := sup.TerminateWithDeadline(context.Background(), deadline, poll); err != nil {
				fmt.Fprintf(os.Stderr, "failed to stop %s: %v\n", sup.Command(), err)
			}
		}
	}()

	r := newConsoleRenderer()
	if err := sup.Follow(context.Background(), poll, r.RenderAll); err != nil {
		return err
	}

	code, err := sup.ExitCode()
	if err != nil {
		return err
	}
	if sup.Killed() {
		r.Println("killed.")
	}
	if code != 0 {
		return &exitCodeError{code: code}
	}
	return nil
}

func runCheck(cmd *cobra.Command, _ []string) error {
	builder := newBuilder()
	opts := processOptions()
	opts.WorkingDir = workDir
	opts.EchoCommand = false
	opts.PseudoTerminal = false

	installed, ver, err := builder.IsInstalled(cmd.Context(), opts)
	if err != nil {
		return err
	}
	if !installed {
		fmt.Printf("%s is not installed or could not be started\n", strings.Join(builder.Program(), " "))
		return &exitCodeError{code: 1}
	}
	fmt.Printf("%s %s\n", strings.Join(builder.Program(), " "), ver)
	return nil
}

func runCompress(cmd *cobra.Command, files []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	opts := processOptions()
	opts.WorkingDir = workDir
	svc := compress.NewService(compress.Options{
		Process:           opts,
		TerminateDeadline: settings.GetTerminateDeadline(),
		PollInterval:      settings.GetPollInterval(),
	})

	r := newConsoleRenderer()
	svc.SetUpdateCallback(func(task *model.CompressionTask) {
		if task.Status == model.TaskStatusRunning {
			r.Render(model.OutputLine{
				Text:   fmt.Sprintf("%s %3d%%\r", filepath.Base(task.InputPath), task.Percent),
				Source: model.SourceStdout,
			})
		}
	})

	var ids []string
	for _, file := range files {
		task, err := svc.StartCompression(file)
		if err != nil {
			r.Println(err.Error())
			continue
		}
		ids = append(ids, task.ID)
	}

	poll := settings.GetPollInterval()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	interrupted := false
	for {
		finished := true
		for _, id := range ids {
			if task, ok := svc.GetTask(id); ok && !task.Status.IsFinished() {
				finished = false
			}
		}
		if finished {
			break
		}
		select {
		case <-ctx.Done():
			if !interrupted {
				interrupted = true
				r.Println("Interrupted, stopping compression...")
				for _, id := range ids {
					svc.StopCompression(id)
				}
			}
			ctx = context.Background()
		case <-ticker.C:
		}
	}

	failed := len(files) - len(ids)
	for _, id := range ids {
		task, _ := svc.GetTask(id)
		switch task.Status {
		case model.TaskStatusCompleted:
			r.Println(fmt.Sprintf("%s: %s", task.InputPath, task.OutputPath))
		case model.TaskStatusError:
			r.Println(fmt.Sprintf("%s: %s", task.InputPath, task.LastError))
			failed++
		default:
			r.Println(fmt.Sprintf("%s: %s", task.InputPath, task.Status))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files were not compressed", failed, len(files))
	}
	return nil
}
