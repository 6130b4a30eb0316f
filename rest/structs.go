package rest

import (
	gen "github.com/hpcforge/hpcforge/gen/slurm"
	"github.com/hpcforge/hpcforge/prov/slurm"
)

// ScriptRequest is the payload of a batch script generation request
type ScriptRequest struct {
	gen.JobSpec
}

// ScriptResponse holds a generated batch script
type ScriptResponse struct {
	Script string `json:"script"`
}

// ContainerResponse holds a generated container artifact
type ContainerResponse struct {
	Content string `json:"content"`
}

// WorkflowResponse holds the local-to-HPC push workflow
type WorkflowResponse struct {
	LocalCommands   []string `json:"local_commands"`
	ClusterCommands []string `json:"cluster_commands"`
	Script          string   `json:"script"`
}

// SubmissionRequest is the payload of a job submission request.
//
// Either a complete batch script or a job specification to generate one from
// must be provided.
type SubmissionRequest struct {
	Script string            `json:"script,omitempty"`
	Spec   *gen.JobSpec      `json:"spec,omitempty"`
	Name   string            `json:"name,omitempty"`
	Env    map[string]string `json:"env,omitempty"`
}

// SubmissionResponse is returned on a successful job submission
type SubmissionResponse struct {
	JobID     string   `json:"job_id"`
	RemoteDir string   `json:"remote_dir"`
	Outputs   []string `json:"outputs"`
}

// JobsCollection is the collection of jobs in the cluster queue
type JobsCollection struct {
	Jobs []slurm.Job `json:"jobs"`
}

// JobOutputResponse holds a chunk of a job output file
type JobOutputResponse struct {
	File     string `json:"file"`
	Content  string `json:"content"`
	NextLine int    `json:"next_line"`
}

// ServerInfo describes a running hpcforge server
type ServerInfo struct {
	Version string `json:"version"`
	// ClusterReachable reports whether the login node answers over SSH
	ClusterReachable bool `json:"cluster_reachable"`
	// SlurmVersion is filled when the cluster is reachable
	SlurmVersion string `json:"slurm_version,omitempty"`
}
