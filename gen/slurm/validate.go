package slurm

import (
	"fmt"
	"regexp"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/hpcforge/hpcforge/helper/sizeutil"
)

// MaxGPUsPerNode is the number of GPUs available on a standard GPU node
const MaxGPUsPerNode = 8

var (
	// Accepts MM:SS, HH:MM:SS and D-HH:MM:SS
	wallTimeRegexp = regexp.MustCompile(`^(?:\d+-)?\d{1,2}:\d{2}(?::\d{2})?$`)
	jobNameRegexp  = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// Validate checks the consistency of a job specification.
//
// All detected problems are aggregated and returned as a single error.
func (j *JobSpec) Validate() error {
	var result *multierror.Error

	if j.Name == "" {
		result = multierror.Append(result, errors.New("job name is required"))
	} else if !jobNameRegexp.MatchString(j.Name) {
		result = multierror.Append(result, errors.Errorf("invalid job name %q: only letters, digits, '.', '_' and '-' are allowed", j.Name))
	}

	if j.WallTime == "" {
		result = multierror.Append(result, errors.New("wall time is required"))
	} else if !wallTimeRegexp.MatchString(j.WallTime) {
		result = multierror.Append(result, errors.Errorf("invalid wall time %q: expected MM:SS, HH:MM:SS or D-HH:MM:SS", j.WallTime))
	}

	if j.Script == "" {
		result = multierror.Append(result, errors.New("script to run is required"))
	}

	if !IsValidProfile(string(j.Profile)) {
		result = multierror.Append(result, errors.Errorf("unknown profile %q: expected one of %v", j.Profile, Profiles))
	}

	if j.Nodes < 1 {
		result = multierror.Append(result, errors.Errorf("invalid nodes count %d: at least 1 node is required", j.Nodes))
	}
	if j.GPUsPerNode < 0 || j.GPUsPerNode > MaxGPUsPerNode {
		result = multierror.Append(result, errors.Errorf("invalid GPUs per node %d: expected a value between 0 and %d", j.GPUsPerNode, MaxGPUsPerNode))
	}
	if j.CPUsPerTask < 0 {
		result = multierror.Append(result, errors.Errorf("invalid CPUs per task %d", j.CPUsPerTask))
	}
	if j.TasksPerNode < 1 {
		result = multierror.Append(result, errors.Errorf("invalid tasks per node %d: at least 1 task is required", j.TasksPerNode))
	}

	switch j.Profile {
	case ProfileDistributed:
		if j.Nodes < 2 {
			result = multierror.Append(result, errors.Errorf("profile %q requires at least 2 nodes, got %d", j.Profile, j.Nodes))
		}
		if j.GPUsPerNode == 0 {
			result = multierror.Append(result, errors.Errorf("profile %q requires GPUs", j.Profile))
		}
		if j.Image == "" {
			result = multierror.Append(result, errors.Errorf("profile %q requires a container image for the torchrun environment", j.Profile))
		}
	case ProfileSingleNode, ProfileLowMemory:
		if j.Nodes != 1 {
			result = multierror.Append(result, errors.Errorf("profile %q runs on a single node, got %d", j.Profile, j.Nodes))
		}
		if j.GPUsPerNode == 0 {
			result = multierror.Append(result, errors.Errorf("profile %q requires GPUs, use the %q profile for CPU-only jobs", j.Profile, ProfileCPU))
		}
	case ProfileCPU:
		if j.GPUsPerNode != 0 {
			result = multierror.Append(result, errors.Errorf("profile %q is CPU-only but %d GPUs per node were requested", j.Profile, j.GPUsPerNode))
		}
	}

	if j.Memory != "" {
		if _, err := j.MemoryDirective(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// MemoryDirective returns the memory size formated as SLURM expects it for the --mem option.
// An empty string is returned if no memory request is set.
func (j *JobSpec) MemoryDirective() (string, error) {
	if j.Memory == "" {
		return "", nil
	}
	gb, err := sizeutil.ConvertToGB(j.Memory)
	if err != nil {
		return "", errors.Wrapf(err, "invalid memory %q", j.Memory)
	}
	if gb == 0 {
		// SLURM interprets --mem=0 as "all the memory of the node"
		return "", errors.Errorf("invalid memory %q: a non-zero amount is required", j.Memory)
	}
	return fmt.Sprintf("%dG", gb), nil
}
