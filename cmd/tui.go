package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/Odrinateur/sputifixV2/internal/repositories"
	"github.com/Odrinateur/sputifixV2/internal/shared"
	"github.com/Odrinateur/sputifixV2/internal/tasks"
	"github.com/Odrinateur/sputifixV2/internal/ui"
)

// TUI launches the interactive maker wizard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureAuth(ctx, cmd.String("config")); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/sputifix-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	engine := tasks.NewMakerEngine(r.spotify, repositories.NewSyncStateRepository(db), tasks.OptionsFromConfig(r.config.Maker))
	engine.SetLogger(fileLogger)

	model := ui.NewModel(ctx, r.spotify, engine)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
