package commands

import (
	"fmt"
	"io/ioutil"

	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v2"

	"github.com/hpcforge/hpcforge/commands/httputil"
	"github.com/hpcforge/hpcforge/gen/container"
)

func init() {
	RootCmd.AddCommand(containerCmd)
	containerCmd.AddCommand(containerDockerfileCmd)
	containerCmd.AddCommand(containerApptainerCmd)
	containerCmd.AddCommand(containerWorkflowCmd)

	containerCmd.PersistentFlags().StringVar(&containerSpec.Name, "name", "", "Name of the image, without registry or tag")
	containerCmd.PersistentFlags().StringVar(&containerSpec.Registry, "registry", "", "Registry prefix including namespace, as \"registry.example.org/team\"")
	containerCmd.PersistentFlags().StringVar(&containerSpec.Tag, "tag", "", "Tag of the image")
	containerCmd.PersistentFlags().StringVar(&containerSpec.BaseImage, "base-image", "", "Base image overriding the variant default")
	containerCmd.PersistentFlags().StringVar(&containerSpec.WorkDir, "workdir", "", "Working directory inside the image")
	containerCmd.PersistentFlags().StringSliceVar(&containerSpec.AptPackages, "apt", nil, "System package to install, may be specified several times")
	containerCmd.PersistentFlags().StringSliceVar(&containerSpec.PipPackages, "pip", nil, "Python package to install, may be specified several times")
	containerCmd.PersistentFlags().StringVar(&containerSpec.Requirements, "requirements", "", "Requirements file copied and installed into the image")
	containerCmd.PersistentFlags().StringVar(&containerSpec.Script, "script", "", "Application entry point copied into the image")
	containerCmd.PersistentFlags().StringVar(&containerSpec.SIFDirectory, "sif-directory", "", "Directory on the cluster where the built SIF image is stored")
	containerCmd.PersistentFlags().StringVarP(&containerSpecFile, "spec-file", "f", "", "Read the image specification from this YAML file, other specification flags are ignored")
	containerCmd.PersistentFlags().StringVarP(&containerOutputFile, "output", "o", "", "Write the generated content to this file instead of standard output")

	containerDockerfileCmd.Flags().StringVar(&containerVariant, "variant", string(container.VariantRegistry), "Dockerfile variant (plain or registry)")
}

var (
	containerSpec       container.ImageSpec
	containerVariant    string
	containerSpecFile   string
	containerOutputFile string
)

func loadContainerSpec() {
	if containerSpecFile == "" {
		return
	}
	content, err := ioutil.ReadFile(containerSpecFile)
	if err != nil {
		httputil.ErrExit(err)
	}
	containerSpec = container.ImageSpec{}
	if err := yaml.Unmarshal(content, &containerSpec); err != nil {
		httputil.ErrExit(err)
	}
}

var containerCmd = &cobra.Command{
	Use:   "container",
	Short: "Generate container build artifacts",
	Long:  `Generate Dockerfiles, Apptainer definitions and the workflow pushing an image from a workstation to the cluster`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var containerDockerfileCmd = &cobra.Command{
	Use:   "dockerfile",
	Short: "Generate a Dockerfile",
	Long:  `Generate a Dockerfile for the given image specification`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loadContainerSpec()
		content, err := container.GenerateDockerfile(&containerSpec, container.Variant(containerVariant))
		if err != nil {
			httputil.ErrExit(err)
		}
		return writeContent(content)
	},
}

var containerApptainerCmd = &cobra.Command{
	Use:   "apptainer",
	Short: "Generate an Apptainer definition",
	Long:  `Generate an Apptainer definition file building the image from its registry reference`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loadContainerSpec()
		content, err := container.GenerateDefinition(&containerSpec)
		if err != nil {
			httputil.ErrExit(err)
		}
		return writeContent(content)
	},
}

var containerWorkflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Generate the image push workflow",
	Long:  `Generate the commands building an image locally, pushing it to the registry and converting it to a SIF file on the cluster`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loadContainerSpec()
		workflow, err := container.PushWorkflow(&containerSpec)
		if err != nil {
			httputil.ErrExit(err)
		}
		return writeContent(workflow.Render())
	},
}

func writeContent(content string) error {
	if containerOutputFile != "" {
		if err := ioutil.WriteFile(containerOutputFile, []byte(content), 0644); err != nil {
			httputil.ErrExit(err)
		}
		fmt.Println("Content written to", containerOutputFile)
		return nil
	}
	fmt.Print(content)
	return nil
}
