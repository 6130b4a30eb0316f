package commands

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpcforge/hpcforge/config"
	"github.com/hpcforge/hpcforge/helper/sshutil"
	"github.com/hpcforge/hpcforge/prov/slurm"
)

func newWatchMock(removed *bool, mu *sync.Mutex) *sshutil.MockSSHClient {
	return &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			switch {
			case strings.Contains(cmd, "squeue"):
				return "train,123,COMPLETED", nil
			case strings.Contains(cmd, "rm -rf"):
				*removed = true
			}
			return "", nil
		},
	}
}

func TestWatchJobKeepsRemoteDirFromClusterConfig(t *testing.T) {
	var mu sync.Mutex
	var removed bool
	configuration := config.Configuration{Cluster: config.DynamicMap{
		"job_monitoring_time_interval": 10 * time.Millisecond,
		"keep_job_remote_artifacts":    true,
	}}
	err := watchJob(context.Background(), newWatchMock(&removed, &mu), configuration, &slurm.MonitoringRequest{
		JobID:     "123",
		RemoteDir: ".hpcforge_test",
	})
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, removed, "the remote working directory must be kept")
}

func TestWatchJobRemovesRemoteDirByDefault(t *testing.T) {
	var mu sync.Mutex
	var removed bool
	configuration := config.Configuration{Cluster: config.DynamicMap{
		"job_monitoring_time_interval": 10 * time.Millisecond,
	}}
	err := watchJob(context.Background(), newWatchMock(&removed, &mu), configuration, &slurm.MonitoringRequest{
		JobID:     "123",
		RemoteDir: ".hpcforge_test",
	})
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.True(t, removed, "the remote working directory must be removed")
}
