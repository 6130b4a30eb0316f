package slurm

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hpcforge/hpcforge/helper/sshutil"
	"github.com/hpcforge/hpcforge/helper/stringutil"
	"github.com/hpcforge/hpcforge/log"
)

// SubmissionRequest describes a batch script submission
type SubmissionRequest struct {
	// Script is the batch script content
	Script string
	// Name is used to build the remote working directory name
	Name string
	// Env vars are exported before running sbatch
	Env map[string]string
	// Artifacts are extra files uploaded next to the script, keyed by their
	// remote relative path
	Artifacts map[string][]byte
}

// SubmissionResult is the outcome of a successful batch submission
type SubmissionResult struct {
	JobID string `json:"job_id"`
	// RemoteDir is the remote working directory holding the script and
	// artifacts, removed once the job reaches a terminal state
	RemoteDir string `json:"remote_dir"`
	// Outputs are the output files the job writes to, parsed from the script
	Outputs []string `json:"outputs"`
}

// SubmitJob uploads the batch script and its artifacts to a dedicated remote
// working directory and submits it with sbatch
func SubmitJob(ctx context.Context, client sshutil.Client, req *SubmissionRequest) (*SubmissionResult, error) {
	if strings.TrimSpace(req.Script) == "" {
		return nil, errors.New("a batch script is required for submission")
	}
	name := req.Name
	if name == "" {
		name = "job"
	}
	remoteDir := stringutil.UniqueTimestampedName(".hpcforge_", "")
	scriptName := name + ".sbatch"

	if err := uploadArtifacts(ctx, client, remoteDir, scriptName, req); err != nil {
		return nil, errors.Wrap(err, "failed to upload job artifacts")
	}

	var exports string
	for k, v := range req.Env {
		log.Debugf("Add env var with key:%q and value:%q", k, v)
		exports += fmt.Sprintf("export %s=%s;", k, v)
	}
	cmd := fmt.Sprintf("%scd %s;sbatch %s", exports, remoteDir, scriptName)
	output, err := client.RunCommand(cmd)
	if err != nil {
		log.Debugf("stderr:%q", output)
		return nil, errors.Wrap(err, output)
	}
	jobID, err := parseJobIDFromBatchOutput(strings.Trim(output, "\n"))
	if err != nil {
		return nil, err
	}
	log.Debugf("JobID:%q", jobID)

	outputs, err := parseOutputConfigFromBatchScript(strings.NewReader(req.Script), true)
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		// Default sbatch output when nothing is specified by the script
		outputs = []string{fmt.Sprintf("slurm-%s.out", jobID)}
	}
	for i, out := range outputs {
		outputs[i] = resolveOutputPattern(out, jobID)
		if !path.IsAbs(outputs[i]) {
			outputs[i] = path.Join(remoteDir, outputs[i])
		}
	}
	return &SubmissionResult{JobID: jobID, RemoteDir: remoteDir, Outputs: outputs}, nil
}

func uploadArtifacts(ctx context.Context, client sshutil.Client, remoteDir, scriptName string, req *SubmissionRequest) error {
	var g errgroup.Group
	g.Go(func() error {
		return client.CopyFile(ctx, strings.NewReader(req.Script), path.Join(remoteDir, scriptName), "0755")
	})
	for artPath, content := range req.Artifacts {
		artPath, content := artPath, content
		g.Go(func() error {
			log.Debugf("handle artifact path:%q", artPath)
			return client.CopyFile(ctx, strings.NewReader(string(content)), path.Join(remoteDir, artPath), "0644")
		})
	}
	return g.Wait()
}

// resolveOutputPattern expands the %j job ID pattern of an output file name
func resolveOutputPattern(out, jobID string) string {
	return strings.Replace(out, "%j", jobID, -1)
}

// RunInteractive runs the given command through srun in asynchronous mode,
// its output redirected to a uniquely named file, and returns the job ID
// once it shows up in the queue
func RunInteractive(ctx context.Context, client sshutil.Client, jobName, opts, command string) (string, string, error) {
	redirectFile := stringutil.UniqueTimestampedName("hpcforge_", "")
	cmd := fmt.Sprintf("srun --job-name=%s %s %s > %s 2>&1 &", jobName, opts, command, redirectFile)
	output, err := client.RunCommand(strings.TrimSpace(cmd))
	if err != nil {
		log.Debugf("stderr:%q", output)
		return "", "", errors.Wrap(err, output)
	}
	jobID, err := retrieveJobID(ctx, client, jobName)
	return jobID, redirectFile, err
}

// retrieveJobID polls the queue until the job with the given name shows up
func retrieveJobID(ctx context.Context, client sshutil.Client, jobName string) (string, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debugf("Job information polling has been cancelled")
			return "", ctx.Err()
		case <-ticker.C:
			info, err := getJobInfo(client, "", jobName)
			if err != nil {
				// If the job is not found, we assume it still hasn't been created
				if !IsNoJobFoundError(err) {
					return "", err
				}
			} else if info.ID != "" {
				return info.ID, nil
			}
		}
	}
}

// AllocationRequest describes a salloc resource allocation
type AllocationRequest struct {
	JobName   string
	CPUs      int
	Memory    string
	Partition string
	Gres      string
	NodeCount int
}

// AllocateResources requests a node allocation with salloc in no-shell mode.
//
// The returned job ID holds the allocation. When granted is false the
// allocation is still pending in the queue.
func AllocateResources(ctx context.Context, client sshutil.Client, req *AllocationRequest) (jobID string, granted bool, err error) {
	var opts []string
	if req.CPUs > 0 {
		opts = append(opts, fmt.Sprintf("-c %d", req.CPUs))
	}
	if req.Memory != "" {
		opts = append(opts, fmt.Sprintf("--mem=%s", req.Memory))
	}
	if req.Partition != "" {
		opts = append(opts, fmt.Sprintf("-p %s", req.Partition))
	}
	if req.Gres != "" {
		opts = append(opts, fmt.Sprintf("--gres=%s", req.Gres))
	}
	if req.NodeCount > 1 {
		opts = append(opts, fmt.Sprintf("--nodes=%d", req.NodeCount))
	}
	sallocCmd := strings.TrimSpace(fmt.Sprintf("salloc --no-shell -J %s %s", req.JobName, strings.Join(opts, " ")))
	output, err := client.RunCommand(sallocCmd)
	if err != nil {
		return "", false, errors.Wrapf(err, "Failed to allocate resources: %q", output)
	}

	chRes := make(chan allocationResponse)
	chErr := make(chan error)
	go parseSallocResponse(strings.NewReader(output), chRes, chErr)
	select {
	case res := <-chRes:
		return res.jobID, res.granted, nil
	case err := <-chErr:
		return "", false, err
	case <-ctx.Done():
		return "", false, ctx.Err()
	case <-time.After(10 * time.Second):
		return "", false, errors.Errorf("unexpected salloc response:%q", output)
	}
}

// CancelJob cancels the job with the given ID
func CancelJob(client sshutil.Client, jobID string) error {
	if jobID == "" {
		return errors.New("a job ID is required for cancellation")
	}
	output, err := client.RunCommand(fmt.Sprintf("scancel %s", jobID))
	if err != nil {
		return errors.Wrapf(err, "Failed to cancel job with id:%q: %s", jobID, output)
	}
	return nil
}

// ListJobs returns the jobs currently in the queue, optionally restricted to
// the given user
func ListJobs(client sshutil.Client, user string) ([]Job, error) {
	cmd := "squeue --noheader -o \"%i,%j,%u,%T,%P,%M,%R\""
	if user != "" {
		cmd = fmt.Sprintf("squeue --noheader -u %s -o \"%%i,%%j,%%u,%%T,%%P,%%M,%%R\"", user)
	}
	output, err := client.RunCommand(cmd)
	if err != nil {
		return nil, errors.Wrap(err, output)
	}
	jobs := make([]Job, 0)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, ",", 7)
		if len(fields) != 7 {
			return nil, errors.Errorf("unexpected squeue output line:%q", line)
		}
		jobs = append(jobs, Job{
			ID:        fields[0],
			Name:      fields[1],
			User:      fields[2],
			State:     fields[3],
			Partition: fields[4],
			RunTime:   fields[5],
			Reason:    fields[6],
		})
	}
	return jobs, nil
}

// GetJobDetails returns the full scontrol view of the job
func GetJobDetails(client sshutil.Client, jobID string) (JobDetails, error) {
	return getJobDetails(client, jobID)
}
