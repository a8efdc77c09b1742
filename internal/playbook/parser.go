package playbook

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nlarkin/junoctl/internal/module"
)

// knownTaskFields are fields that are task directives, not module names.
var knownTaskFields = map[string]bool{
	"name":          true,
	"ignore_errors": true,
}

// shorthandParam maps a module name to the parameter a bare string
// value expands into, e.g. `cli: show version`.
var shorthandParam = map[string]string{
	"cli": "command",
	"rpc": "rpc",
}

// ParseFile parses a playbook from a YAML file.
func ParseFile(path string) (*Playbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read playbook: %w", err)
	}
	return Parse(data, path)
}

// Parse parses a playbook from YAML data. The document is either a
// list of plays or a single play map.
func Parse(data []byte, path string) (*Playbook, error) {
	var rawPlays []map[string]any
	if err := yaml.Unmarshal(data, &rawPlays); err != nil {
		var rawPlay map[string]any
		if err := yaml.Unmarshal(data, &rawPlay); err != nil {
			return nil, fmt.Errorf("invalid playbook format: %w", err)
		}
		rawPlays = []map[string]any{rawPlay}
	}

	pb := &Playbook{Path: path}
	for i, rawPlay := range rawPlays {
		play, err := parseRawPlay(rawPlay)
		if err != nil {
			return nil, fmt.Errorf("play %d: %w", i+1, err)
		}
		if err := play.Validate(); err != nil {
			return nil, fmt.Errorf("play %d: %w", i+1, err)
		}
		pb.Plays = append(pb.Plays, play)
	}

	return pb, nil
}

// parseRawPlay parses a single play from a raw map.
func parseRawPlay(raw map[string]any) (*Play, error) {
	play := &Play{}

	if v, ok := raw["name"].(string); ok {
		play.Name = v
	}
	if v, ok := raw["user"].(string); ok {
		play.User = v
	}
	if v, ok := raw["passwd"].(string); ok {
		play.Passwd = v
	}
	if v, ok := raw["port"].(int); ok {
		play.Port = v
	}
	if v, ok := raw["ssh_private_key_file"].(string); ok {
		play.KeyFile = v
	}
	if v, ok := raw["mode"].(string); ok {
		play.Mode = v
	}
	if v, ok := raw["timeout"].(int); ok {
		play.Timeout = v
	}

	// hosts is a single host or a list of hosts
	switch hosts := raw["hosts"].(type) {
	case string:
		play.Hosts = []string{hosts}
	case []any:
		for _, h := range hosts {
			if host, ok := h.(string); ok {
				play.Hosts = append(play.Hosts, host)
			}
		}
	}

	if tasks, ok := raw["tasks"].([]any); ok {
		for i, rawTask := range tasks {
			taskMap, ok := rawTask.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("task %d: invalid task format", i+1)
			}
			task, err := parseRawTask(taskMap)
			if err != nil {
				return nil, fmt.Errorf("task %d: %w", i+1, err)
			}
			play.Tasks = append(play.Tasks, task)
		}
	}

	return play, nil
}

// parseRawTask parses a single task from a raw map. The module name is
// a dynamic key, so every non-directive key is a module candidate.
func parseRawTask(raw map[string]any) (*Task, error) {
	task := &Task{
		Params: make(map[string]any),
	}

	if v, ok := raw["name"].(string); ok {
		task.Name = v
	}
	if v, ok := raw["ignore_errors"].(bool); ok {
		task.IgnoreErrors = v
	}

	for key, value := range raw {
		if knownTaskFields[key] {
			continue
		}
		if task.Module != "" {
			return nil, fmt.Errorf("task %q has multiple modules: %s and %s", task.String(), task.Module, key)
		}
		task.Module = key

		switch v := value.(type) {
		case map[string]any:
			task.Params = v
		case string:
			// Shorthand form: the bare string is the module's
			// primary parameter.
			task.Params = map[string]any{}
			if v != "" {
				ExpandShorthand(task, v)
			}
		case nil:
			// Module with no parameters, e.g. `facts:`.
		default:
			return nil, fmt.Errorf("task %q: invalid parameters for module %s", task.String(), key)
		}
	}

	if task.Module == "" {
		return nil, fmt.Errorf("task %q has no module", task.String())
	}

	return task, nil
}

// ExpandShorthand turns a bare string value into the module's primary
// parameter.
func ExpandShorthand(task *Task, value string) {
	if param, ok := shorthandParam[task.Module]; ok {
		task.Params[param] = value
	}
}

// ResolveModule checks that the task's module is registered.
func ResolveModule(task *Task) error {
	if module.Get(task.Module) == nil {
		return fmt.Errorf("unknown module %q", task.Module)
	}
	return nil
}
