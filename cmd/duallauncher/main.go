package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
}

// RemoteFlags selects the daemon a client command talks to.
type RemoteFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}

	root := &cobra.Command{
		Use:   "duallauncher",
		Short: "Profile supervision engine for launching and babysitting program sets",
		Long: `Duallauncher launches configured program profiles, gates each launch on
service connectivity, restarts crashed programs, and lets external Redis
flags drive whole groups up and down.

Examples:
  duallauncher serve --config=daemon.toml
  duallauncher status
  duallauncher start --name=gameserver
  duallauncher group-start --group=stack-a`,
	}
	root.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", "", "path to TOML daemon config (optional)")

	root.AddCommand(
		createServeCommand(globalFlags),
		createStatusCommand(),
		createEventsCommand(),
		createStartCommand(),
		createStopCommand(),
		createStartAllCommand(),
		createStopAllCommand(),
		createGroupStartCommand(),
		createGroupStopCommand(),
		createProfileCommand(),
	)
	return root
}

func addRemoteFlags(cmd *cobra.Command, flags *RemoteFlags) {
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", "", "daemon URL (default http://127.0.0.1:8088/duallauncher)")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", 10*time.Second, "request timeout")
}

func createStatusCommand() *cobra.Command {
	flags := &RemoteFlags{}
	var name string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show profile status",
		Long: `Show runtime status of profiles managed by the daemon.

Examples:
  duallauncher status
  duallauncher status --name=gameserver
  duallauncher status --api-url=http://remote:8088/duallauncher`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(*flags, name)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "profile name (optional)")
	addRemoteFlags(cmd, flags)
	return cmd
}

func createEventsCommand() *cobra.Command {
	flags := &RemoteFlags{}
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the daemon's recent activity feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(*flags)
		},
	}
	addRemoteFlags(cmd, flags)
	return cmd
}

func createStartCommand() *cobra.Command {
	flags := &RemoteFlags{}
	var name string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a profile",
		Long: `Initiate a profile's launch sequence on the daemon.

Examples:
  duallauncher start --name=gameserver`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(*flags, name)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "profile name (required)")
	addRemoteFlags(cmd, flags)
	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	return cmd
}

func createStopCommand() *cobra.Command {
	flags := &RemoteFlags{}
	var name string
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a profile",
		Long: `Stop a profile and keep it down until started again.

Examples:
  duallauncher stop --name=gameserver`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(*flags, name)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "profile name (required)")
	addRemoteFlags(cmd, flags)
	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	return cmd
}

func createStartAllCommand() *cobra.Command {
	flags := &RemoteFlags{}
	cmd := &cobra.Command{
		Use:   "start-all",
		Short: "Start every eligible profile in launch order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStartAll(*flags)
		},
	}
	addRemoteFlags(cmd, flags)
	return cmd
}

func createStopAllCommand() *cobra.Command {
	flags := &RemoteFlags{}
	cmd := &cobra.Command{
		Use:   "stop-all",
		Short: "Stop every profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStopAll(*flags)
		},
	}
	addRemoteFlags(cmd, flags)
	return cmd
}

func createGroupStartCommand() *cobra.Command {
	flags := &RemoteFlags{}
	var group string
	cmd := &cobra.Command{
		Use:   "group-start",
		Short: "Start a profile group",
		Long: `Start all profiles of a group in launch order, honoring post-launch
delays between members.

Examples:
  duallauncher group-start --group=stack-a`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGroupStart(*flags, group)
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "group name (required)")
	addRemoteFlags(cmd, flags)
	if err := cmd.MarkFlagRequired("group"); err != nil {
		panic(err)
	}
	return cmd
}

func createGroupStopCommand() *cobra.Command {
	flags := &RemoteFlags{}
	var group string
	cmd := &cobra.Command{
		Use:   "group-stop",
		Short: "Stop a profile group",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGroupStop(*flags, group)
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "group name (required)")
	addRemoteFlags(cmd, flags)
	if err := cmd.MarkFlagRequired("group"); err != nil {
		panic(err)
	}
	return cmd
}

func createProfileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage profile definitions on the daemon",
	}
	cmd.AddCommand(
		createProfileListCommand(),
		createProfileAddCommand(),
		createProfileRemoveCommand(),
	)
	return cmd
}

func createProfileListCommand() *cobra.Command {
	flags := &RemoteFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileList(*flags)
		},
	}
	addRemoteFlags(cmd, flags)
	return cmd
}

// ProfileAddFlags mirror the launch.conf profile fields settable from the CLI.
type ProfileAddFlags struct {
	Name            string
	Group           string
	Order           int
	Path            string
	Args            string
	AutoStart       bool
	AutoRestart     bool
	WaitTarget      string
	WaitTimeout     int
	WaitInterval    int
	PostLaunchDelay int
	URL             string
}

func createProfileAddCommand() *cobra.Command {
	remote := &RemoteFlags{}
	flags := &ProfileAddFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or replace a profile",
		Long: `Register a profile on the daemon and persist it to launch.conf.

Examples:
  duallauncher profile add --name=gameserver --path=/opt/game/server --auto-restart
  duallauncher profile add --name=webui --path=/opt/ui/ui --wait-target=redis://127.0.0.1 --wait-timeout=60`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileAdd(*remote, *flags)
		},
	}
	cmd.Flags().StringVar(&flags.Name, "name", "", "profile name (required)")
	cmd.Flags().StringVar(&flags.Group, "group", "", "group name")
	cmd.Flags().IntVar(&flags.Order, "order", 0, "launch order within group")
	cmd.Flags().StringVar(&flags.Path, "path", "", "program path (required)")
	cmd.Flags().StringVar(&flags.Args, "args", "", "program arguments")
	cmd.Flags().BoolVar(&flags.AutoStart, "auto-start", false, "launch at daemon startup")
	cmd.Flags().BoolVar(&flags.AutoRestart, "auto-restart", false, "restart after crash")
	cmd.Flags().StringVar(&flags.WaitTarget, "wait-target", "", "connectivity target gating the launch")
	cmd.Flags().IntVar(&flags.WaitTimeout, "wait-timeout", 0, "connectivity budget in seconds (0 disables gating)")
	cmd.Flags().IntVar(&flags.WaitInterval, "wait-interval", 2, "seconds between probes")
	cmd.Flags().IntVar(&flags.PostLaunchDelay, "post-launch-delay", 0, "seconds to pause after this profile in group sequences")
	cmd.Flags().StringVar(&flags.URL, "url", "", "URL to open once running")
	addRemoteFlags(cmd, remote)
	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	if err := cmd.MarkFlagRequired("path"); err != nil {
		panic(err)
	}
	return cmd
}

func createProfileRemoveCommand() *cobra.Command {
	remote := &RemoteFlags{}
	var name string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Stop and remove a profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileRemove(*remote, name)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "profile name (required)")
	addRemoteFlags(cmd, remote)
	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	return cmd
}
