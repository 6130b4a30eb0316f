package slurm

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hpcforge/hpcforge/helper/sshutil"
)

// PartitionUsage is a sinfo summary line for one partition and node state
type PartitionUsage struct {
	Name         string `json:"name"`
	Availability string `json:"availability"`
	TimeLimit    string `json:"time_limit"`
	NodeCount    int    `json:"node_count"`
	State        string `json:"state"`
}

// ClusterUsage aggregates the cluster load as seen from sinfo and squeue
type ClusterUsage struct {
	CPUsAllocated int              `json:"cpus_allocated"`
	CPUsIdle      int              `json:"cpus_idle"`
	CPUsOther     int              `json:"cpus_other"`
	CPUsTotal     int              `json:"cpus_total"`
	Partitions    []PartitionUsage `json:"partitions"`
	JobStates     map[string]int   `json:"job_states"`
}

// GetUsageInfo collects the current cluster usage from the login node
func GetUsageInfo(client sshutil.Client) (*ClusterUsage, error) {
	usage := &ClusterUsage{JobStates: make(map[string]int)}
	if err := getCPUInfo(usage, client); err != nil {
		return nil, errors.Wrap(err, "Unable to get cpu usage info")
	}
	if err := getPartitionsInfo(usage, client); err != nil {
		return nil, errors.Wrap(err, "Unable to get partitions info")
	}
	if err := getJobStatesInfo(usage, client); err != nil {
		return nil, errors.Wrap(err, "Unable to get job states info")
	}
	return usage, nil
}

// getCPUInfo parses the sinfo CPU summary "allocated/idle/other/total"
func getCPUInfo(usage *ClusterUsage, client sshutil.Client) error {
	output, err := client.RunCommand("sinfo --noheader -o \"%C\"")
	if err != nil {
		return errors.Wrap(err, output)
	}
	fields := strings.Split(strings.TrimSpace(output), "/")
	if len(fields) != 4 {
		return errors.Errorf("unexpected sinfo CPU summary:%q", output)
	}
	values := make([]int, 4)
	for i, field := range fields {
		if values[i], err = strconv.Atoi(strings.TrimSpace(field)); err != nil {
			return errors.Wrapf(err, "unexpected sinfo CPU summary:%q", output)
		}
	}
	usage.CPUsAllocated, usage.CPUsIdle, usage.CPUsOther, usage.CPUsTotal = values[0], values[1], values[2], values[3]
	return nil
}

func getPartitionsInfo(usage *ClusterUsage, client sshutil.Client) error {
	output, err := client.RunCommand("sinfo --noheader -o \"%P,%a,%l,%D,%T\"")
	if err != nil {
		return errors.Wrap(err, output)
	}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 5 {
			return errors.Errorf("unexpected sinfo partition line:%q", line)
		}
		nodeCount, err := strconv.Atoi(fields[3])
		if err != nil {
			return errors.Wrapf(err, "unexpected sinfo partition line:%q", line)
		}
		usage.Partitions = append(usage.Partitions, PartitionUsage{
			Name:         strings.TrimSuffix(fields[0], "*"),
			Availability: fields[1],
			TimeLimit:    fields[2],
			NodeCount:    nodeCount,
			State:        fields[4],
		})
	}
	return nil
}

func getJobStatesInfo(usage *ClusterUsage, client sshutil.Client) error {
	output, err := client.RunCommand("squeue --noheader -o \"%T\"")
	if err != nil {
		return errors.Wrap(err, output)
	}
	for _, line := range strings.Split(output, "\n") {
		state := strings.TrimSpace(line)
		if state == "" {
			continue
		}
		usage.JobStates[state]++
	}
	return nil
}
