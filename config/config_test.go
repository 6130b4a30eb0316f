package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDynamicMapGetString(t *testing.T) {
	t.Parallel()
	m := DynamicMap{"user_name": "jdoe", "port": 22}
	assert.Equal(t, "jdoe", m.GetString("user_name"))
	assert.Equal(t, "22", m.GetString("port"))
	assert.Equal(t, "", m.GetString("unknown"))
}

func TestDynamicMapGetStringOrDefault(t *testing.T) {
	t.Parallel()
	m := DynamicMap{"partition": ""}
	assert.Equal(t, "compute", m.GetStringOrDefault("partition", "compute"))
	m.Set("partition", "gpu")
	assert.Equal(t, "gpu", m.GetStringOrDefault("partition", "compute"))
}

func TestDynamicMapGetInt(t *testing.T) {
	t.Parallel()
	m := DynamicMap{"port": "8022"}
	assert.Equal(t, 8022, m.GetInt("port"))
	assert.Equal(t, 0, m.GetInt("unknown"))
	assert.Equal(t, 22, m.GetIntOrDefault("unknown", 22))
}

func TestDynamicMapGetDuration(t *testing.T) {
	t.Parallel()
	m := DynamicMap{"job_monitoring_time_interval": "10s"}
	require.Equal(t, 10*time.Second, m.GetDuration("job_monitoring_time_interval"))
}

func TestDynamicMapGetStringSlice(t *testing.T) {
	t.Parallel()
	m := DynamicMap{"modules": "python/3.10,cuda/11.8"}
	assert.Equal(t, []string{"python/3.10", "cuda/11.8"}, m.GetStringSlice("modules"))
	m.Set("modules", []string{"apptainer"})
	assert.Equal(t, []string{"apptainer"}, m.GetStringSlice("modules"))
}

func TestDynamicMapIsSet(t *testing.T) {
	t.Parallel()
	m := DynamicMap{"keep_job_remote_artifacts": false}
	assert.True(t, m.IsSet("keep_job_remote_artifacts"))
	assert.False(t, m.GetBool("keep_job_remote_artifacts"))
	assert.False(t, m.IsSet("unknown"))
}
