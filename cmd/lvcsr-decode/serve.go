package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/example/lvcsr-decode/internal/doctor"
	"github.com/example/lvcsr-decode/internal/modelio"
	"github.com/example/lvcsr-decode/internal/observe"
	"github.com/example/lvcsr-decode/internal/recognizer"
	"github.com/example/lvcsr-decode/internal/server"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var watchDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the module server, decoding feature files dropped into a watch directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			m, err := loadModel(cfg)
			if err != nil {
				return err
			}
			tree, err := m.tree()
			if err != nil {
				return err
			}
			rec, err := recognizer.New(m.dict, m.index, m.am, tree, m.bigram, m.dfa, m.main, nil, buildRecognizerConfig(cfg))
			if err != nil {
				return err
			}

			recorder, err := observe.NewRecorder("lvcsr-decode")
			if err != nil {
				return fmt.Errorf("observe: %w", err)
			}

			report := doctor.Run(doctor.Config{
				HMMDefsPath:  cfg.Paths.HMMDefsPath,
				HMMListPath:  cfg.Paths.HMMListPath,
				DictPath:     cfg.Paths.DictPath,
				BigramPath:   cfg.Paths.BigramPath,
				NgramPath:    cfg.Paths.NgramPath,
				DFAPath:      cfg.Paths.DFAPath,
				ManifestPath: cfg.Paths.ManifestPath,
			}, os.Stderr)

			srv := server.New(cfg.Server,
				server.WithLogger(slog.Default()),
				server.WithRecorder(recorder),
				server.WithDoctor(report),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if watchDir != "" {
				if err := os.MkdirAll(watchDir, 0o755); err != nil {
					return fmt.Errorf("watch dir: %w", err)
				}
				watcher, err := watchFeatureDir(ctx, watchDir, m, rec, srv)
				if err != nil {
					return fmt.Errorf("start watcher: %w", err)
				}
				defer watcher.Close()
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&watchDir, "watch-dir", "", "Directory to watch for dropped feature files to decode (optional)")

	return cmd
}

// watchFeatureDir decodes each feature file created under dir and
// broadcasts the result over the module server, removing the file once
// consumed.
func watchFeatureDir(ctx context.Context, dir string, m *model, rec *recognizer.Recognizer, srv *server.Server) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				decodeDroppedFile(ctx, ev.Name, m, rec, srv)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("watch-dir error", slog.Any("err", err))
			}
		}
	}()

	return watcher, nil
}

func decodeDroppedFile(ctx context.Context, path string, m *model, rec *recognizer.Recognizer, srv *server.Server) {
	defer os.Remove(path)

	f, err := os.Open(path)
	if err != nil {
		return
	}
	frames, err := modelio.LoadFrameVectors(f)
	f.Close()
	if err != nil {
		slog.Error("decode dropped file", slog.String("path", path), slog.Any("err", err))
		return
	}

	m.am.Prepare(len(frames), m.index.TotalStateNum())
	uttID := fmt.Sprintf("%s-%s", filepath.Base(path), uuid.NewString())
	if err := srv.RecognizeAndBroadcast(ctx, rec, uttID, recognizer.Input{Frames: frames}, recognizer.Callbacks{}); err != nil {
		slog.Error("recognize and broadcast", slog.String("path", path), slog.Any("err", err))
	}
}
