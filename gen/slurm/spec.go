// Package slurm generates SLURM batch scripts from structured job specifications.
package slurm

import (
	"time"
)

// ScriptCmdPrefix is the directive prefix understood by sbatch
const ScriptCmdPrefix = "#SBATCH"

// DefaultOutputPattern is the output file pattern used when none is specified.
// %j is expanded by SLURM into the job ID.
const DefaultOutputPattern = "slurm-%j.out"

// DefaultMasterPort is the default rendezvous port for distributed training jobs
const DefaultMasterPort = 29500

// A Profile selects the resource shape and run block of a generated script
type Profile string

const (
	// ProfileDistributed is a multi-node data-parallel training job using a
	// torchrun rendezvous across all allocated nodes
	ProfileDistributed Profile = "distributed"
	// ProfileSingleNode is a training job using several GPUs on a single node
	ProfileSingleNode Profile = "single-node"
	// ProfileLowMemory is a parameter-efficient fine-tuning job using a single GPU
	ProfileLowMemory Profile = "low-memory"
	// ProfileCPU is a CPU-only validation job, typically used to check a
	// container before requesting GPU time
	ProfileCPU Profile = "cpu"
)

// Profiles lists the supported generation profiles
var Profiles = []Profile{ProfileDistributed, ProfileSingleNode, ProfileLowMemory, ProfileCPU}

// IsValidProfile checks that the given string names a supported profile
func IsValidProfile(p string) bool {
	for _, known := range Profiles {
		if Profile(p) == known {
			return true
		}
	}
	return false
}

// JobSpec describes a batch job to generate a script for.
//
// Memory accepts human readable sizes ("64G", "8000 MB"). WallTime accepts
// the SLURM forms MM:SS, HH:MM:SS and D-HH:MM:SS.
type JobSpec struct {
	Name         string            `json:"name" yaml:"name"`
	Account      string            `json:"account,omitempty" yaml:"account,omitempty"`
	Partition    string            `json:"partition,omitempty" yaml:"partition,omitempty"`
	Profile      Profile           `json:"profile" yaml:"profile"`
	Nodes        int               `json:"nodes" yaml:"nodes"`
	TasksPerNode int               `json:"tasks_per_node,omitempty" yaml:"tasks_per_node,omitempty"`
	CPUsPerTask  int               `json:"cpus_per_task,omitempty" yaml:"cpus_per_task,omitempty"`
	GPUsPerNode  int               `json:"gpus_per_node,omitempty" yaml:"gpus_per_node,omitempty"`
	Memory       string            `json:"memory,omitempty" yaml:"memory,omitempty"`
	WallTime     string            `json:"wall_time" yaml:"wall_time"`
	Output       string            `json:"output,omitempty" yaml:"output,omitempty"`
	Error        string            `json:"error,omitempty" yaml:"error,omitempty"`
	Modules      []string          `json:"modules,omitempty" yaml:"modules,omitempty"`
	Env          map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	ExtraOptions []string          `json:"extra_options,omitempty" yaml:"extra_options,omitempty"`
	Image        string            `json:"image,omitempty" yaml:"image,omitempty"`
	BindPath     string            `json:"bind_path,omitempty" yaml:"bind_path,omitempty"`
	Script       string            `json:"script" yaml:"script"`
	Args         []string          `json:"args,omitempty" yaml:"args,omitempty"`
	MasterPort   int               `json:"master_port,omitempty" yaml:"master_port,omitempty"`

	// MonitoringTimeInterval is only used when the job is watched after
	// submission, it does not influence the generated script
	MonitoringTimeInterval time.Duration `json:"-" yaml:"-"`
}

// ApplyDefaults fills unset fields with their profile-dependent defaults
func (j *JobSpec) ApplyDefaults() {
	if j.Profile == "" {
		j.Profile = ProfileSingleNode
	}
	if j.Nodes == 0 {
		j.Nodes = 1
	}
	if j.TasksPerNode == 0 {
		j.TasksPerNode = 1
	}
	if j.Output == "" {
		j.Output = DefaultOutputPattern
	}
	if j.MasterPort == 0 {
		j.MasterPort = DefaultMasterPort
	}
	switch j.Profile {
	case ProfileLowMemory:
		// Low-resource configuration, common for smaller experiments or LoRA
		j.Nodes = 1
		j.GPUsPerNode = 1
	case ProfileCPU:
		j.Nodes = 1
		j.GPUsPerNode = 0
		if j.CPUsPerTask == 0 {
			j.CPUsPerTask = 4
		}
	case ProfileSingleNode:
		j.Nodes = 1
		if j.GPUsPerNode == 0 {
			j.GPUsPerNode = 1
		}
	case ProfileDistributed:
		if j.GPUsPerNode == 0 {
			j.GPUsPerNode = 8
		}
	}
}
