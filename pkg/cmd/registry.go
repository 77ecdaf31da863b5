package cmd

import (
	"sort"
	"strings"
)

// Registry stores commands by name. Lookup is case-insensitive. It does not
// perform dispatch; each adapter looks up commands and invokes them with its
// own context.
type Registry struct {
	commands map[string]Command
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds a command. Registration is data built at startup; later
// registrations with the same name overwrite earlier ones.
func (r *Registry) Register(c Command) {
	r.commands[strings.ToLower(c.Name())] = c
}

// Get returns the command with the given name, or nil.
func (r *Registry) Get(name string) Command {
	return r.commands[strings.ToLower(name)]
}

// All returns all registered commands, sorted by name.
func (r *Registry) All() []Command {
	list := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}
