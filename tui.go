// Package modeshift wires the picker form into a full screen program.
package modeshift

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/rapidmidiex/modeshift/config"
	"github.com/rapidmidiex/modeshift/pickerui"
)

// ********
// Code heavily based on "Project Journal"
// https://github.com/bashbunni/pjs
// https://www.youtube.com/watch?v=uJ2egAkSkjg&t=319s
// ********

type mainModel struct {
	picker tea.Model
	done   []pickerui.DoneMsg
}

func NewModel(cfg *config.Config) (tea.Model, error) {
	table, err := cfg.Table()
	if err != nil {
		return nil, err
	}
	if table.Len() == 0 {
		return nil, errors.New("scale table is empty")
	}
	return mainModel{picker: pickerui.New(cfg, table, pickerui.Options{})}, nil
}

func (m mainModel) Init() tea.Cmd {
	return m.picker.Init()
}

func (m mainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if done, ok := msg.(pickerui.DoneMsg); ok {
		log.WithFields(log.Fields{
			"out":     done.Out,
			"notes":   done.Stats.Notes,
			"changed": done.Stats.Changed,
		}).Info("remapped")
		m.done = append(m.done, done)
	}
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m mainModel) View() string {
	return m.picker.View()
}

// Run shows the picker until the user quits. Logs go to debug.log in the
// config directory while the screen is taken over.
func Run(cfg *config.Config) error {
	m, err := NewModel(cfg)
	if err != nil {
		return err
	}

	if f, err := logFile(); err == nil {
		prev := log.StandardLogger().Out
		log.SetOutput(f)
		defer func() {
			log.SetOutput(prev)
			f.Close()
		}()
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}
	for _, d := range final.(mainModel).done {
		fmt.Printf("%s: %d of %d notes moved\n", d.Out, d.Stats.Changed, d.Stats.Notes)
	}
	return nil
}

func logFile() (*os.File, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "debug.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
