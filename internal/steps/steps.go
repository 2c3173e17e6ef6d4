// Package steps manages and validates build steps defined in a JSON file.
//
// A steps file has a single root array "build_steps"; each step carries a
// unique index, a description, a work path, a command, and two booleans
// controlling failure handling and verbosity. Work paths and commands may
// reference environment variables as ${VAR}.
package steps

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strings"
)

// ErrStepNotFound indicates a lookup for an index no step carries.
var ErrStepNotFound = errors.New("未找到指定步骤")

// UnsetVarError indicates a ${VAR} reference to an environment variable
// that is not set.
type UnsetVarError struct {
	Name string
}

func (e *UnsetVarError) Error() string {
	return fmt.Sprintf("环境变量未设置: %s", e.Name)
}

// Step is a single build step.
type Step struct {
	Index          int
	Description    string
	WorkPath       string
	ExecuteCommand string
	BreakOnError   bool
	ForceVerbose   bool
}

// rawStep uses pointer fields so missing keys are distinguishable from
// zero values during validation.
type rawStep struct {
	Index          *int    `json:"index"`
	Description    *string `json:"description"`
	WorkPath       *string `json:"work_path"`
	ExecuteCommand *string `json:"execute_command"`
	BreakOnError   *bool   `json:"break_on_error"`
	ForceVerbose   *bool   `json:"force_verbose"`
}

// Manager holds a validated set of build steps, ordered by index.
type Manager struct {
	steps []Step
}

// Load reads and validates a build steps JSON file.
func Load(path string) (*Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取步骤文件失败: %w", err)
	}

	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("解析步骤文件失败: %w", err)
	}
	rawList, ok := root["build_steps"]
	if !ok {
		return nil, fmt.Errorf("步骤文件缺少根节点 build_steps")
	}

	var rawSteps []rawStep
	if err := json.Unmarshal(rawList, &rawSteps); err != nil {
		return nil, fmt.Errorf("步骤列表结构无效: %w", err)
	}

	seen := make(map[int]bool)
	steps := make([]Step, 0, len(rawSteps))
	for i, rs := range rawSteps {
		if rs.Index == nil || rs.Description == nil || rs.WorkPath == nil || rs.ExecuteCommand == nil {
			return nil, fmt.Errorf("第 %d 个步骤缺少必需字段 (index/description/work_path/execute_command)", i+1)
		}
		if rs.BreakOnError == nil || rs.ForceVerbose == nil {
			return nil, fmt.Errorf("步骤 %d 缺少布尔字段 (break_on_error/force_verbose)", *rs.Index)
		}
		if seen[*rs.Index] {
			return nil, fmt.Errorf("步骤索引重复: %d", *rs.Index)
		}
		seen[*rs.Index] = true

		steps = append(steps, Step{
			Index:          *rs.Index,
			Description:    *rs.Description,
			WorkPath:       *rs.WorkPath,
			ExecuteCommand: *rs.ExecuteCommand,
			BreakOnError:   *rs.BreakOnError,
			ForceVerbose:   *rs.ForceVerbose,
		})
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].Index < steps[j].Index })
	return &Manager{steps: steps}, nil
}

// Count returns the number of steps.
func (m *Manager) Count() int {
	return len(m.steps)
}

// Steps returns all steps in index order.
func (m *Manager) Steps() []Step {
	return m.steps
}

// Step returns the step with the given index.
func (m *Manager) Step(index int) (Step, error) {
	for _, s := range m.steps {
		if s.Index == index {
			return s, nil
		}
	}
	return Step{}, fmt.Errorf("步骤 %d: %w", index, ErrStepNotFound)
}

// WorkPath returns the step's work path with environment variables expanded.
func (m *Manager) WorkPath(index int) (string, error) {
	s, err := m.Step(index)
	if err != nil {
		return "", err
	}
	return ExpandEnv(s.WorkPath)
}

// Command returns the step's command with environment variables expanded.
func (m *Manager) Command(index int) (string, error) {
	s, err := m.Step(index)
	if err != nil {
		return "", err
	}
	return ExpandEnv(s.ExecuteCommand)
}

var descriptionSanitizer = regexp.MustCompile(`[^a-z0-9_]`)

// FormattedDescription returns the step description formatted for safe
// file naming: lower case, spaces to underscores, everything outside
// [a-z0-9_] dropped.
func (m *Manager) FormattedDescription(index int) (string, error) {
	s, err := m.Step(index)
	if err != nil {
		return "", err
	}
	formatted := strings.ToLower(s.Description)
	formatted = strings.ReplaceAll(formatted, " ", "_")
	return descriptionSanitizer.ReplaceAllString(formatted, ""), nil
}

// VerifyWorkPath checks that the step's expanded work path is an
// accessible directory.
func (m *Manager) VerifyWorkPath(index int) error {
	workPath, err := m.WorkPath(index)
	if err != nil {
		return err
	}
	info, err := os.Stat(workPath)
	if err != nil {
		return fmt.Errorf("工作目录不可访问: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("工作目录不是目录: %s", workPath)
	}
	return nil
}

// VerifyCommand checks that the step's expanded command names an
// executable resolvable in the system path.
func (m *Manager) VerifyCommand(index int) error {
	command, err := m.Command(index)
	if err != nil {
		return err
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return fmt.Errorf("步骤 %d 的执行命令为空", index)
	}
	if _, err := exec.LookPath(fields[0]); err != nil {
		return fmt.Errorf("命令不可执行: %w", err)
	}
	return nil
}

// ExpandEnv replaces every ${VAR} reference with the variable's value.
// Unlike os.ExpandEnv, an unset variable is an error rather than an empty
// string: a silently empty work path or command is never what a build run
// wants.
func ExpandEnv(s string) (string, error) {
	var out strings.Builder
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			out.WriteString(s)
			return out.String(), nil
		}
		rel := strings.Index(s[start:], "}")
		if rel < 0 {
			out.WriteString(s)
			return out.String(), nil
		}
		name := s[start+2 : start+rel]
		value, ok := os.LookupEnv(name)
		if !ok {
			return "", &UnsetVarError{Name: name}
		}
		out.WriteString(s[:start])
		out.WriteString(value)
		s = s[start+rel+1:]
	}
}
