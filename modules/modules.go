// Package modules groups configured commands into engine modules. Each
// module corresponds to one admin surface (general commands, song
// request, ...) and simply exposes its resolved commands.
package modules

import (
	"github.com/onnwee/streambot/actions"
	"github.com/onnwee/streambot/command"
	"github.com/onnwee/streambot/db"
	"github.com/onnwee/streambot/engine"
)

// ConfigModule is a named set of resolved commands loaded from storage.
type ConfigModule struct {
	name string
	cmds []*command.FunctionCommand
}

func New(name string, cmds []*command.FunctionCommand) *ConfigModule {
	return &ConfigModule{name: name, cmds: cmds}
}

func (m *ConfigModule) Name() string { return m.name }

func (m *ConfigModule) Commands() []*command.FunctionCommand { return m.cmds }

// FromStored resolves stored command configs through the action registry
// and groups them into modules, preserving stored order within and across
// modules.
func FromStored(reg *actions.Registry, deps actions.Deps, stored []db.StoredCommand) []engine.Module {
	grouped := make(map[string]*ConfigModule)
	var order []string
	for _, sc := range stored {
		m, ok := grouped[sc.Module]
		if !ok {
			m = New(sc.Module, nil)
			grouped[sc.Module] = m
			order = append(order, sc.Module)
		}
		cmd := sc.Cmd
		m.cmds = append(m.cmds, reg.Build(deps, &cmd))
	}
	out := make([]engine.Module, 0, len(order))
	for _, name := range order {
		out = append(out, grouped[name])
	}
	return out
}
