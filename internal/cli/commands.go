package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/shouni/vibe-wallpaper/internal/server"
	"github.com/shouni/vibe-wallpaper/internal/tui"
	"github.com/shouni/vibe-wallpaper/pkg/domain"
	"github.com/shouni/vibe-wallpaper/pkg/session"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web UI and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := a.bootstrap(ctx)
			if err != nil {
				return err
			}
			orch, err := newOrchestrator(deps)
			if err != nil {
				return err
			}
			srv, err := server.New(a.cfg.Server, orch,
				server.WithMetrics(deps.Metrics, deps.Registry),
				server.WithLogger(a.log),
			)
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default: :8080)")
	_ = a.v.BindPFlag("server.address", cmd.Flags().Lookup("addr"))
	return cmd
}

func newTUICmd(a *app) *cobra.Command {
	var display string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the interactive terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			protocol, err := tui.ParseProtocol(display)
			if err != nil {
				return err
			}
			// 画面を崩さないようログはファイルへ逃がす
			logPath := filepath.Join(os.TempDir(), "vibewall-tui.log")
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("ログファイルを開けませんでした: %w", err)
			}
			defer logFile.Close()
			a.logOutput = logFile

			ctx := cmd.Context()
			deps, err := a.bootstrap(ctx)
			if err != nil {
				return err
			}
			orch, err := newOrchestrator(deps)
			if err != nil {
				return err
			}

			m := tui.New(ctx, orch, tui.Config{
				OutputDir: a.cfg.Output.Dir,
				Protocol:  protocol,
				Writer:    deps.Writer,
			})
			defer m.Close()
			a.log.Info("TUI を起動します", "protocol", protocol, "output", a.cfg.Output.Dir)
			if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
				return fmt.Errorf("error running program: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&display, "display", "d", "auto", "Inline image protocol (auto, kitty, iterm, none)")
	return cmd
}

func newGenerateCmd(a *app) *cobra.Command {
	var (
		prompt string
		aspect string
	)
	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Generate a batch of wallpapers and save them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				prompt = args[0]
			}
			if strings.TrimSpace(prompt) == "" {
				return domain.ErrEmptyPrompt
			}
			ar, err := domain.ParseAspectRatio(aspect)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			deps, err := a.bootstrap(ctx)
			if err != nil {
				return err
			}
			orch, err := newOrchestrator(deps)
			if err != nil {
				return err
			}

			a.log.InfoContext(ctx, "壁紙を生成します", "prompt", prompt, "aspect_ratio", ar)
			s, err := runChain(orch, orch.Submit(ctx, prompt, ar))
			if err != nil {
				return err
			}
			paths, err := saveBatch(ctx, deps.Writer, a.cfg.Output.Dir, s.Prompt, s.Images)
			printPaths(cmd.OutOrStdout(), paths)
			return err
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Prompt for image generation")
	cmd.Flags().StringVarP(&aspect, "aspect", "a", string(domain.DefaultAspectRatio), "Aspect ratio ("+ratioList()+")")
	return cmd
}

func newRemixCmd(a *app) *cobra.Command {
	var (
		source   string
		prompt   string
		aspect   string
		generate bool
	)
	cmd := &cobra.Command{
		Use:   "remix",
		Short: "Derive a refined prompt from an image, optionally regenerating",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(prompt) == "" {
				return domain.ErrEmptyPrompt
			}
			ar, err := domain.ParseAspectRatio(aspect)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			deps, err := a.bootstrap(ctx)
			if err != nil {
				return err
			}
			img, err := deps.Sources.Load(ctx, source)
			if err != nil {
				return err
			}
			a.log.InfoContext(ctx, "リミックス元を読み込みました", "source", logSource(source), "mime_type", img.MimeType, "bytes", len(img.Data))

			if !generate {
				refined, err := deps.Remixer.GenerateRemixPrompt(ctx, prompt, img)
				if err != nil {
					return fmt.Errorf("%s %w", session.PrefixRemix, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), refined)
				return nil
			}

			initial := session.NewState()
			initial.Prompt = prompt
			initial.AspectRatio = ar
			initial.Selected = &img
			orch, err := newOrchestrator(deps, session.WithInitialState(initial))
			if err != nil {
				return err
			}
			s, err := runChain(orch, orch.Remix(ctx))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.Prompt)
			paths, err := saveBatch(ctx, deps.Writer, a.cfg.Output.Dir, s.Prompt, s.Images)
			printPaths(cmd.OutOrStdout(), paths)
			return err
		},
	}
	cmd.Flags().StringVarP(&source, "source", "s", "", "Source image (file path, http(s) URL or data URL)")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", domain.DefaultPrompt, "Original prompt the image was generated from")
	cmd.Flags().StringVarP(&aspect, "aspect", "a", string(domain.DefaultAspectRatio), "Aspect ratio ("+ratioList()+")")
	cmd.Flags().BoolVarP(&generate, "generate", "g", false, "Generate a new batch from the refined prompt")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagFilename("source")
	return cmd
}

func ratioList() string {
	ratios := domain.AspectRatios()
	s := make([]string, len(ratios))
	for i, r := range ratios {
		s[i] = r.String()
	}
	return strings.Join(s, ", ")
}

// logSource は data URL をログに丸ごと出さないよう短くします。
func logSource(source string) string {
	const keep = 32
	if strings.HasPrefix(source, "data:") && len(source) > keep {
		return source[:keep] + "..."
	}
	return source
}
