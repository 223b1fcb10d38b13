package keys

import "github.com/gdamore/tcell/v2"

// Action represents a keybinding action.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Description string
	Handler     func()
	Visible     bool
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

type binding struct {
	name   string
	action *Action
}

// Registry holds keybindings by scope, in registration order.
type Registry struct {
	global []binding
	views  map[string][]binding
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string][]binding)}
}

// AddGlobal registers a global keybinding, replacing one of the same name.
func (r *Registry) AddGlobal(name string, action *Action) {
	r.global = put(r.global, name, action)
}

// AddView registers a view-specific keybinding, replacing one of the same name.
func (r *Registry) AddView(view, name string, action *Action) {
	r.views[view] = put(r.views[view], name, action)
}

func put(list []binding, name string, action *Action) []binding {
	for i := range list {
		if list[i].name == name {
			list[i].action = action
			return list
		}
	}
	return append(list, binding{name: name, action: action})
}

// Hints returns visible keybinding descriptions for a view, view bindings first.
func (r *Registry) Hints(view string) []string {
	var hints []string
	for _, list := range [][]binding{r.views[view], r.global} {
		for _, b := range list {
			if b.action.Visible {
				hints = append(hints, b.action.Description)
			}
		}
	}
	return hints
}

// HandleEvent dispatches a key event to the first matching action, view
// bindings before global ones. Returns true if a handler matched.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	for _, list := range [][]binding{r.views[view], r.global} {
		for _, b := range list {
			if b.action.Matches(ev) {
				b.action.Handler()
				return true
			}
		}
	}
	return false
}
