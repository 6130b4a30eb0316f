package commands

import (
	"fmt"
	"io/ioutil"
	"strconv"

	"github.com/spf13/cobra"
	survey "gopkg.in/AlecAivazis/survey.v1"
	yaml "gopkg.in/yaml.v2"

	"github.com/hpcforge/hpcforge/commands/httputil"
	gen "github.com/hpcforge/hpcforge/gen/slurm"
)

func init() {
	RootCmd.AddCommand(scriptCmd)
	scriptCmd.AddCommand(scriptGenCmd)

	scriptGenCmd.Flags().StringVar(&scriptSpec.Name, "name", "", "Job name")
	scriptGenCmd.Flags().StringVar(&scriptSpec.Account, "account", "", "Account the job is charged to")
	scriptGenCmd.Flags().StringVar(&scriptSpec.Partition, "partition", "", "Partition to submit the job to")
	scriptGenCmd.Flags().StringVar(&scriptProfile, "profile", string(gen.ProfileSingleNode), "Job profile (distributed, single-node, low-memory or cpu)")
	scriptGenCmd.Flags().IntVar(&scriptSpec.Nodes, "nodes", 0, "Number of nodes")
	scriptGenCmd.Flags().IntVar(&scriptSpec.TasksPerNode, "tasks-per-node", 0, "Number of tasks per node")
	scriptGenCmd.Flags().IntVar(&scriptSpec.CPUsPerTask, "cpus-per-task", 0, "Number of CPUs per task")
	scriptGenCmd.Flags().IntVar(&scriptSpec.GPUsPerNode, "gpus-per-node", 0, "Number of GPUs per node")
	scriptGenCmd.Flags().StringVar(&scriptSpec.Memory, "memory", "", "Memory per node, as a human readable size (\"64G\")")
	scriptGenCmd.Flags().StringVar(&scriptSpec.WallTime, "time", "", "Wall time limit (MM:SS, HH:MM:SS or D-HH:MM:SS)")
	scriptGenCmd.Flags().StringVar(&scriptSpec.Output, "job-output", "", "Standard output file of the job")
	scriptGenCmd.Flags().StringVar(&scriptSpec.Error, "job-error", "", "Standard error file of the job")
	scriptGenCmd.Flags().StringSliceVar(&scriptSpec.Modules, "module", nil, "Environment module to load, may be specified several times")
	scriptGenCmd.Flags().StringToStringVar(&scriptSpec.Env, "env", nil, "Environment variable to export, as name=value")
	scriptGenCmd.Flags().StringSliceVar(&scriptSpec.ExtraOptions, "opt", nil, "Extra SBATCH option, may be specified several times")
	scriptGenCmd.Flags().StringVar(&scriptSpec.Image, "image", "", "Apptainer image the job runs in")
	scriptGenCmd.Flags().StringVar(&scriptSpec.BindPath, "bind", "", "Host path bound to /data inside the container")
	scriptGenCmd.Flags().StringVar(&scriptSpec.Script, "script", "", "Script or program the job runs")
	scriptGenCmd.Flags().StringSliceVar(&scriptSpec.Args, "arg", nil, "Argument passed to the script, may be specified several times")
	scriptGenCmd.Flags().BoolVarP(&scriptInteractive, "interactive", "i", false, "Build the job specification interactively")
	scriptGenCmd.Flags().StringVarP(&scriptSpecFile, "spec-file", "f", "", "Read the job specification from this YAML file, other specification flags are ignored")
	scriptGenCmd.Flags().StringVarP(&scriptOutputFile, "output", "o", "", "Write the generated script to this file instead of standard output")
}

var (
	scriptSpec        gen.JobSpec
	scriptProfile     string
	scriptInteractive bool
	scriptSpecFile    string
	scriptOutputFile  string
)

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Perform operations on batch scripts",
	Long:  `Perform operations on SLURM batch scripts`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var scriptGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a batch script",
	Long:  `Generate a SLURM batch script from a job specification given as flags or built interactively`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scriptSpec.Profile = gen.Profile(scriptProfile)
		if scriptSpecFile != "" {
			content, err := ioutil.ReadFile(scriptSpecFile)
			if err != nil {
				httputil.ErrExit(err)
			}
			scriptSpec = gen.JobSpec{}
			if err := yaml.Unmarshal(content, &scriptSpec); err != nil {
				httputil.ErrExit(err)
			}
		}
		if scriptInteractive {
			if !cmd.Flags().Changed("profile") {
				// leave the profile to the interactive prompt
				scriptSpec.Profile = ""
			}
			if err := askJobSpec(&scriptSpec); err != nil {
				return err
			}
		}
		script, err := gen.GenerateScript(&scriptSpec)
		if err != nil {
			httputil.ErrExit(err)
		}
		if scriptOutputFile != "" {
			if err := ioutil.WriteFile(scriptOutputFile, []byte(script), 0644); err != nil {
				httputil.ErrExit(err)
			}
			fmt.Println("Script written to", scriptOutputFile)
			return nil
		}
		fmt.Print(script)
		return nil
	},
}

// askJobSpec fills the job specification interactively, skipping fields
// already set through flags
func askJobSpec(spec *gen.JobSpec) error {
	if spec.Name == "" {
		if err := askString("Job name:", &spec.Name, survey.Required); err != nil {
			return err
		}
	}
	if spec.Profile == "" || !gen.IsValidProfile(string(spec.Profile)) {
		var selected string
		prompt := &survey.Select{
			Message: "Select a job profile:",
			Options: []string{string(gen.ProfileDistributed), string(gen.ProfileSingleNode), string(gen.ProfileLowMemory), string(gen.ProfileCPU)},
		}
		if err := survey.AskOne(prompt, &selected, nil); err != nil {
			return err
		}
		spec.Profile = gen.Profile(selected)
	}
	if spec.WallTime == "" {
		if err := askString("Wall time limit (HH:MM:SS):", &spec.WallTime, survey.Required); err != nil {
			return err
		}
	}
	if spec.Profile == gen.ProfileDistributed && spec.Nodes == 0 {
		if err := askInt("Number of nodes:", &spec.Nodes); err != nil {
			return err
		}
	}
	if (spec.Profile == gen.ProfileDistributed || spec.Profile == gen.ProfileSingleNode) && spec.GPUsPerNode == 0 {
		if err := askInt("Number of GPUs per node:", &spec.GPUsPerNode); err != nil {
			return err
		}
	}
	if spec.Profile == gen.ProfileCPU && spec.CPUsPerTask == 0 {
		if err := askInt("Number of CPUs per task:", &spec.CPUsPerTask); err != nil {
			return err
		}
	}
	if spec.Memory == "" {
		if err := askString("Memory per node (default: 64G):", &spec.Memory, nil); err != nil {
			return err
		}
	}
	if spec.Partition == "" {
		if err := askString("Partition to submit the job to (optional):", &spec.Partition, nil); err != nil {
			return err
		}
	}
	if spec.Account == "" {
		if err := askString("Account the job is charged to (optional):", &spec.Account, nil); err != nil {
			return err
		}
	}
	if spec.Script == "" {
		if err := askString("Script or program the job runs:", &spec.Script, survey.Required); err != nil {
			return err
		}
	}
	if spec.Image == "" {
		if err := askString("Apptainer image the job runs in (optional):", &spec.Image, nil); err != nil {
			return err
		}
	}
	if spec.Image != "" && spec.BindPath == "" {
		if err := askString("Host path bound to /data inside the container (optional):", &spec.BindPath, nil); err != nil {
			return err
		}
	}
	return nil
}

func askString(message string, value *string, validate survey.Validator) error {
	question := &survey.Question{
		Name:     "value",
		Prompt:   &survey.Input{Message: message},
		Validate: validate,
	}
	var answer struct {
		Value string
	}
	if err := survey.Ask([]*survey.Question{question}, &answer); err != nil {
		return err
	}
	if answer.Value != "" {
		*value = answer.Value
	}
	return nil
}

func askInt(message string, value *int) error {
	question := &survey.Question{
		Name:   "value",
		Prompt: &survey.Input{Message: message},
		Validate: func(val interface{}) error {
			str := val.(string)
			if str == "" {
				return nil
			}
			_, err := strconv.Atoi(str)
			return err
		},
	}
	var answer struct {
		Value string
	}
	if err := survey.Ask([]*survey.Question{question}, &answer); err != nil {
		return err
	}
	if answer.Value != "" {
		// validated above
		*value, _ = strconv.Atoi(answer.Value)
	}
	return nil
}
