package slurm

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpcforge/hpcforge/helper/sshutil"
)

func TestSubmitJob(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	copied := make(map[string]string)
	s := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			assert.Contains(t, cmd, "sbatch train.sbatch")
			assert.Contains(t, cmd, "export DATASET=/data/set1;")
			return "Submitted batch job 4567\n", nil
		},
		MockCopyFile: func(ctx context.Context, source io.Reader, remotePath string, permissions string) error {
			require.NotNil(t, ctx)
			content, err := io.ReadAll(source)
			require.NoError(t, err)
			mu.Lock()
			copied[remotePath] = string(content)
			mu.Unlock()
			return nil
		},
	}

	script := "#!/bin/bash\n#SBATCH --output=res-%j.out\nsrun hostname\n"
	res, err := SubmitJob(context.Background(), s, &SubmissionRequest{
		Script:    script,
		Name:      "train",
		Env:       map[string]string{"DATASET": "/data/set1"},
		Artifacts: map[string][]byte{"requirements.txt": []byte("torch==2.3.0\n")},
	})
	require.NoError(t, err)
	assert.Equal(t, "4567", res.JobID)
	require.Len(t, res.Outputs, 1)
	assert.Equal(t, res.RemoteDir+"/res-4567.out", res.Outputs[0])

	require.Len(t, copied, 2)
	assert.Equal(t, script, copied[res.RemoteDir+"/train.sbatch"])
	assert.Equal(t, "torch==2.3.0\n", copied[res.RemoteDir+"/requirements.txt"])
}

func TestSubmitJobWithoutOutputDirective(t *testing.T) {
	t.Parallel()
	s := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			return "Submitted batch job 88", nil
		},
	}
	res, err := SubmitJob(context.Background(), s, &SubmissionRequest{Script: "#!/bin/bash\nsrun hostname\n", Name: "noout"})
	require.NoError(t, err)
	require.Len(t, res.Outputs, 1)
	assert.Equal(t, res.RemoteDir+"/slurm-88.out", res.Outputs[0])
}

func TestSubmitJobWithoutScript(t *testing.T) {
	t.Parallel()
	_, err := SubmitJob(context.Background(), &sshutil.MockSSHClient{}, &SubmissionRequest{})
	require.Error(t, err)
}

func TestRunInteractive(t *testing.T) {
	t.Parallel()
	s := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			if strings.Contains(cmd, "squeue") {
				return "interactive_test,42,RUNNING", nil
			}
			assert.Contains(t, cmd, "srun --job-name=interactive_test")
			assert.True(t, strings.HasSuffix(cmd, "&"), "srun must run asynchronously")
			return "", nil
		},
	}
	jobID, redirectFile, err := RunInteractive(context.Background(), s, "interactive_test", "--nodes=1", "hostname")
	require.NoError(t, err)
	assert.Equal(t, "42", jobID)
	assert.NotEmpty(t, redirectFile)
}

func TestAllocateResources(t *testing.T) {
	t.Parallel()
	s := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			assert.Contains(t, cmd, "salloc --no-shell -J alloc_test")
			assert.Contains(t, cmd, "-c 4")
			assert.Contains(t, cmd, "--mem=8G")
			assert.Contains(t, cmd, "-p compute")
			return "salloc: Granted job allocation 1881\n", nil
		},
	}
	jobID, granted, err := AllocateResources(context.Background(), s, &AllocationRequest{
		JobName:   "alloc_test",
		CPUs:      4,
		Memory:    "8G",
		Partition: "compute",
	})
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, "1881", jobID)
}

func TestAllocateResourcesRevoked(t *testing.T) {
	t.Parallel()
	s := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			return "salloc: Job allocation 1882 has been revoked.\nsalloc: error: CPU count per node can not be satisfied", nil
		},
	}
	_, _, err := AllocateResources(context.Background(), s, &AllocationRequest{JobName: "alloc_test"})
	require.Error(t, err)
}

func TestCancelJob(t *testing.T) {
	t.Parallel()
	s := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			assert.Equal(t, "scancel 123", cmd)
			return "", nil
		},
	}
	require.NoError(t, CancelJob(s, "123"))
	require.Error(t, CancelJob(s, ""))
}

func TestListJobs(t *testing.T) {
	t.Parallel()
	s := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			return "123,train_a,jdoe,RUNNING,gpu,12:34,node[1-4]\n124,train_b,jdoe,PENDING,compute,0:00,(Priority)\n", nil
		},
	}
	jobs, err := ListJobs(s, "jdoe")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, Job{ID: "123", Name: "train_a", User: "jdoe", State: "RUNNING", Partition: "gpu", RunTime: "12:34", Reason: "node[1-4]"}, jobs[0])
	assert.Equal(t, "PENDING", jobs[1].State)
}

func TestMonitorJobUntilCompletion(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	polls := 0
	s := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			switch {
			case strings.Contains(cmd, "squeue"):
				polls++
				if polls < 3 {
					return "my_test,123,RUNNING", nil
				}
				return "my_test,123,COMPLETED", nil
			case strings.Contains(cmd, "tail -n"):
				if polls == 1 {
					return "epoch 1 done\n", nil
				}
				return "", nil
			case strings.Contains(cmd, "rm -rf"):
				return "", nil
			}
			return "", nil
		},
	}

	var logs strings.Builder
	state, err := MonitorJob(context.Background(), s, &MonitoringRequest{
		JobID:    "123",
		Outputs:  []string{"slurm-123.out"},
		Interval: 10 * time.Millisecond,
	}, &logs)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", state)
	assert.Contains(t, logs.String(), "epoch 1 done")
}

func TestMonitorJobFailure(t *testing.T) {
	t.Parallel()
	s := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			if strings.Contains(cmd, "squeue") {
				return "my_test,123,FAILED", nil
			}
			return "", nil
		},
	}
	state, err := MonitorJob(context.Background(), s, &MonitoringRequest{JobID: "123", Interval: 10 * time.Millisecond}, io.Discard)
	require.Error(t, err)
	assert.Equal(t, "FAILED", state)
	assert.Contains(t, err.Error(), "finished unsuccessfully")
}

func TestMonitorJobCancelled(t *testing.T) {
	t.Parallel()
	s := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			return "my_test,123,RUNNING", nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := MonitorJob(ctx, s, &MonitoringRequest{JobID: "123", Interval: 10 * time.Millisecond}, io.Discard)
	require.ErrorIs(t, err, context.Canceled)
}

func TestGetUsageInfo(t *testing.T) {
	t.Parallel()
	s := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			switch {
			case strings.Contains(cmd, "%C"):
				return "12/4/0/16\n", nil
			case strings.Contains(cmd, "%P"):
				return "compute*,up,infinite,4,idle\ngpu,up,1-00:00:00,2,mix\n", nil
			case strings.Contains(cmd, "%T"):
				return "RUNNING\nRUNNING\nPENDING\n", nil
			}
			return "", nil
		},
	}
	usage, err := GetUsageInfo(s)
	require.NoError(t, err)
	assert.Equal(t, 12, usage.CPUsAllocated)
	assert.Equal(t, 16, usage.CPUsTotal)
	require.Len(t, usage.Partitions, 2)
	assert.Equal(t, "compute", usage.Partitions[0].Name)
	assert.Equal(t, 2, usage.Partitions[1].NodeCount)
	assert.Equal(t, map[string]int{"RUNNING": 2, "PENDING": 1}, usage.JobStates)
}
