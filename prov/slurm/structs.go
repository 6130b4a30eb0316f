package slurm

// jobInfoShort is the subset of job information returned by squeue
type jobInfoShort struct {
	ID    string
	name  string
	state string
}

// Job is a job as listed in the cluster queue
type Job struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	User      string `json:"user,omitempty"`
	State     string `json:"state"`
	Partition string `json:"partition,omitempty"`
	RunTime   string `json:"run_time,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// JobDetails is the full scontrol view of a job, as key/value pairs
type JobDetails map[string]string

// allocationResponse is the outcome of a salloc request
type allocationResponse struct {
	jobID   string
	granted bool
}

type noJobFound struct {
	msg string
}

func (jid *noJobFound) Error() string {
	return jid.msg
}

// IsNoJobFoundError checks if the given error means the job is not known by
// the cluster, typically because it has already been purged from the queue
func IsNoJobFoundError(err error) bool {
	_, ok := err.(*noJobFound)
	return ok
}
