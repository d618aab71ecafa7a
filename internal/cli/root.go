// Package cli は vibewall のコマンドライン定義です。
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shouni/go-remote-io/pkg/remoteio"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shouni/vibe-wallpaper/internal/config"
	"github.com/shouni/vibe-wallpaper/internal/logger"
	"github.com/shouni/vibe-wallpaper/internal/output"
	"github.com/shouni/vibe-wallpaper/pkg/domain"
	"github.com/shouni/vibe-wallpaper/pkg/imgutil"
	"github.com/shouni/vibe-wallpaper/pkg/session"
)

// app はコマンド間で共有する状態です。
type app struct {
	v          *viper.Viper
	configFile string
	build      DepsBuilder
	logOutput  io.Writer

	cfg *config.Config
	log *slog.Logger
}

// NewRootCmd は実際の Gemini API につながるルートコマンドを返します。
func NewRootCmd() *cobra.Command {
	return newRootCmd(BuildDeps)
}

func newRootCmd(build DepsBuilder) *cobra.Command {
	a := &app{v: viper.New(), build: build, logOutput: os.Stderr}

	root := &cobra.Command{
		Use:           "vibewall",
		Short:         domain.AppTitle,
		Long:          "Generate AI phone wallpapers from a vibe, then preview, download or remix them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configFile, "config", "c", "", "Config file (default: ./vibewall.yaml)")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("log-format", "", "Log format (pretty, json, text)")
	pf.String("api-key", "", "Gemini API key (overrides GEMINI_API_KEY env_var)")
	pf.StringP("output", "o", "", "Output folder (default: ./wallpapers)")
	_ = root.MarkPersistentFlagDirname("output")
	_ = a.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", pf.Lookup("log-format"))
	_ = a.v.BindPFlag("gemini.api_key", pf.Lookup("api-key"))
	_ = a.v.BindPFlag("output.dir", pf.Lookup("output"))

	root.AddCommand(
		newServeCmd(a),
		newTUICmd(a),
		newGenerateCmd(a),
		newRemixCmd(a),
	)
	return root
}

// Execute はルートコマンドを実行します。main から 1 度だけ呼ばれます。
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// load は設定を読み込み、ロガーを初期化します。
func (a *app) load() error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.Setup(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: a.logOutput,
	})
	return nil
}

// bootstrap は設定の読み込みと依存の組み立てをまとめて行います。
func (a *app) bootstrap(ctx context.Context) (*Deps, error) {
	if err := a.load(); err != nil {
		return nil, err
	}
	deps, err := a.build(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("依存関係の初期化に失敗しました: %w", err)
	}
	return deps, nil
}

// newOrchestrator は deps から Orchestrator を作ります。
func newOrchestrator(d *Deps, opts ...session.Option) (*session.Orchestrator, error) {
	if d.Metrics != nil {
		opts = append(opts, session.WithRecorder(d.Metrics))
	}
	return session.New(d.Images, d.Remixer, opts...)
}

// runChain は task の完了を待ち、失敗していればエラーにします。
func runChain(orch *session.Orchestrator, task *session.Task) (session.State, error) {
	if task == nil {
		return orch.State(), fmt.Errorf("the request was rejected (empty prompt, invalid aspect ratio or a generation in progress)")
	}
	task.Wait()
	s := orch.State()
	if s.Error != nil {
		return s, fmt.Errorf("%s", s.Error.Message)
	}
	return s, nil
}

// saveBatch はバッチの画像を JPEG として w 経由で dir に書き出し、パスを返します。
func saveBatch(ctx context.Context, w remoteio.OutputWriter, dir, prompt string, images []domain.GeneratedImage) ([]string, error) {
	base := strings.TrimSuffix(session.DownloadFilename(prompt), ".jpeg")
	paths := make([]string, 0, len(images))
	for i, img := range images {
		data, err := imgutil.EnsureJPEG(img.Data, img.MimeType)
		if err != nil {
			return paths, fmt.Errorf("画像 %d の変換に失敗しました: %w", i+1, err)
		}
		path, err := output.Write(ctx, w, dir, fmt.Sprintf("%s_%d.jpeg", base, i+1), data)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func printPaths(w io.Writer, paths []string) {
	for _, p := range paths {
		fmt.Fprintf(w, "Image saved: %s\n", p)
	}
}
