package slurm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	t.Run("profile defaults to single-node", func(t *testing.T) {
		spec := &JobSpec{Name: "j", WallTime: "01:00:00", Script: "s.py"}
		spec.ApplyDefaults()
		assert.Equal(t, ProfileSingleNode, spec.Profile)
		assert.Equal(t, 1, spec.Nodes)
		assert.Equal(t, 1, spec.TasksPerNode)
		assert.Equal(t, 1, spec.GPUsPerNode)
		assert.Equal(t, DefaultOutputPattern, spec.Output)
	})

	t.Run("distributed defaults to full nodes", func(t *testing.T) {
		spec := &JobSpec{Profile: ProfileDistributed, Nodes: 4}
		spec.ApplyDefaults()
		assert.Equal(t, 4, spec.Nodes)
		assert.Equal(t, 8, spec.GPUsPerNode)
		assert.Equal(t, DefaultMasterPort, spec.MasterPort)
	})

	t.Run("low-memory pins resources", func(t *testing.T) {
		spec := &JobSpec{Profile: ProfileLowMemory, Nodes: 2, GPUsPerNode: 4}
		spec.ApplyDefaults()
		assert.Equal(t, 1, spec.Nodes)
		assert.Equal(t, 1, spec.GPUsPerNode)
	})

	t.Run("cpu clears GPUs", func(t *testing.T) {
		spec := &JobSpec{Profile: ProfileCPU, GPUsPerNode: 2}
		spec.ApplyDefaults()
		assert.Equal(t, 0, spec.GPUsPerNode)
		assert.Equal(t, 4, spec.CPUsPerTask)
	})

	t.Run("explicit values are kept", func(t *testing.T) {
		spec := &JobSpec{Profile: ProfileSingleNode, GPUsPerNode: 2, CPUsPerTask: 16, Output: "train.log", MasterPort: 30000}
		spec.ApplyDefaults()
		assert.Equal(t, 2, spec.GPUsPerNode)
		assert.Equal(t, 16, spec.CPUsPerTask)
		assert.Equal(t, "train.log", spec.Output)
		assert.Equal(t, 30000, spec.MasterPort)
	})
}

func TestIsValidProfile(t *testing.T) {
	t.Parallel()
	for _, p := range Profiles {
		assert.True(t, IsValidProfile(string(p)))
	}
	assert.False(t, IsValidProfile(""))
	assert.False(t, IsValidProfile("multi-node"))
}
