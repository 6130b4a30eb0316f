package slurm

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"
)

type scriptContext struct {
	Spec       *JobSpec
	Directives []string
	Env        []string
	Runner     string
}

// GenerateScript renders a complete sbatch script for the given specification.
//
// Defaults are applied and the specification is validated first, so the
// returned script is always submittable. Generation is deterministic for a
// given specification.
func GenerateScript(spec *JobSpec) (string, error) {
	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return "", err
	}

	directives, err := buildDirectives(spec)
	if err != nil {
		return "", err
	}

	ctx := scriptContext{
		Spec:       spec,
		Directives: directives,
		Env:        buildEnvExports(spec),
		Runner:     runnerFor(spec.Script),
	}

	tmpl, err := template.New("sbatch").Funcs(sprig.TxtFuncMap()).Parse(scriptTemplate)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse batch script template")
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, &ctx); err != nil {
		return "", errors.Wrap(err, "failed to render batch script")
	}
	return buf.String(), nil
}

// buildDirectives computes the #SBATCH header in a stable order
func buildDirectives(spec *JobSpec) ([]string, error) {
	directives := make([]string, 0, 12)
	add := func(format string, args ...interface{}) {
		directives = append(directives, ScriptCmdPrefix+" "+fmt.Sprintf(format, args...))
	}

	add("--job-name=%s", spec.Name)
	if spec.Account != "" {
		add("--account=%s", spec.Account)
	}
	if spec.Partition != "" {
		add("--partition=%s", spec.Partition)
	}
	add("--nodes=%d", spec.Nodes)

	switch spec.Profile {
	case ProfileDistributed:
		add("--gpus-per-node=%d", spec.GPUsPerNode)
	case ProfileSingleNode:
		add("--gpus=%d", spec.GPUsPerNode)
	case ProfileLowMemory:
		add("--gpus-per-node=%d", spec.GPUsPerNode)
	case ProfileCPU:
		// no GPU directive
	}

	add("--ntasks-per-node=%d", spec.TasksPerNode)
	if spec.CPUsPerTask > 0 {
		add("--cpus-per-task=%d", spec.CPUsPerTask)
	}

	mem, err := spec.MemoryDirective()
	if err != nil {
		return nil, err
	}
	if mem != "" {
		add("--mem=%s", mem)
	}

	add("--time=%s", spec.WallTime)
	add("--output=%s", spec.Output)
	if spec.Error != "" {
		add("--error=%s", spec.Error)
	}

	for _, opt := range spec.ExtraOptions {
		add("--%s", strings.TrimLeft(opt, "-"))
	}

	return directives, nil
}

// buildEnvExports returns "KEY=VALUE" pairs sorted by key so generation stays deterministic
func buildEnvExports(spec *JobSpec) []string {
	if len(spec.Env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(spec.Env))
	for k := range spec.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	exports := make([]string, 0, len(keys))
	for _, k := range keys {
		exports = append(exports, fmt.Sprintf("%s=%s", k, spec.Env[k]))
	}
	return exports
}

// runnerFor picks the interpreter prefix for the payload script
func runnerFor(script string) string {
	switch {
	case strings.HasSuffix(script, ".py"):
		return "python3 "
	case strings.HasSuffix(script, ".sh"):
		return "bash "
	default:
		return ""
	}
}
