package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ShenMinX/duallauncher/internal/profile"
	"github.com/ShenMinX/duallauncher/pkg/client"
)

func newClient(flags RemoteFlags) *client.Client {
	cfg := client.DefaultConfig()
	if flags.APIUrl != "" {
		cfg.BaseURL = flags.APIUrl
	}
	if flags.APITimeout > 0 {
		cfg.Timeout = flags.APITimeout
	}
	return client.New(cfg)
}

func requireDaemon(ctx context.Context, c *client.Client) error {
	if !c.IsReachable(ctx) {
		return fmt.Errorf("daemon not reachable; start it with 'duallauncher serve'")
	}
	return nil
}

func runStatus(flags RemoteFlags, name string) error {
	ctx := context.Background()
	c := newClient(flags)
	if err := requireDaemon(ctx, c); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer func() { _ = w.Flush() }()
	_, _ = fmt.Fprintln(w, "NAME\tGROUP\tSTATE\tCONN\tPID\tRESTARTS\tLAST EVENT")
	if name != "" {
		st, err := c.Status(ctx, name)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			st.Name, st.Group, st.State, st.Conn, st.PID, st.Restarts, st.LastEvent)
		return nil
	}
	sts, err := c.Statuses(ctx)
	if err != nil {
		return err
	}
	for _, st := range sts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			st.Name, st.Group, st.State, st.Conn, st.PID, st.Restarts, st.LastEvent)
	}
	return nil
}

func runEvents(flags RemoteFlags) error {
	ctx := context.Background()
	c := newClient(flags)
	if err := requireDaemon(ctx, c); err != nil {
		return err
	}
	events, err := c.Events(ctx)
	if err != nil {
		return err
	}
	for _, e := range events {
		fmt.Printf("%s  %s\n", e.Time.Format("2006-01-02 15:04:05"), e.Message)
	}
	return nil
}

func runStart(flags RemoteFlags, name string) error {
	ctx := context.Background()
	c := newClient(flags)
	if err := requireDaemon(ctx, c); err != nil {
		return err
	}
	if err := c.Start(ctx, name); err != nil {
		return err
	}
	fmt.Printf("start initiated: %s\n", name)
	return nil
}

func runStop(flags RemoteFlags, name string) error {
	ctx := context.Background()
	c := newClient(flags)
	if err := requireDaemon(ctx, c); err != nil {
		return err
	}
	if err := c.Stop(ctx, name); err != nil {
		return err
	}
	fmt.Printf("stopped: %s\n", name)
	return nil
}

func runStartAll(flags RemoteFlags) error {
	ctx := context.Background()
	c := newClient(flags)
	if err := requireDaemon(ctx, c); err != nil {
		return err
	}
	if err := c.StartAll(ctx); err != nil {
		return err
	}
	fmt.Println("start-all initiated")
	return nil
}

func runStopAll(flags RemoteFlags) error {
	ctx := context.Background()
	c := newClient(flags)
	if err := requireDaemon(ctx, c); err != nil {
		return err
	}
	if err := c.StopAll(ctx); err != nil {
		return err
	}
	fmt.Println("all profiles stopped")
	return nil
}

func runGroupStart(flags RemoteFlags, group string) error {
	ctx := context.Background()
	c := newClient(flags)
	if err := requireDaemon(ctx, c); err != nil {
		return err
	}
	if err := c.StartGroups(ctx, group); err != nil {
		return err
	}
	fmt.Printf("group start initiated: %s\n", group)
	return nil
}

func runGroupStop(flags RemoteFlags, group string) error {
	ctx := context.Background()
	c := newClient(flags)
	if err := requireDaemon(ctx, c); err != nil {
		return err
	}
	if err := c.StopGroup(ctx, group); err != nil {
		return err
	}
	fmt.Printf("group stopped: %s\n", group)
	return nil
}

func runProfileList(flags RemoteFlags) error {
	ctx := context.Background()
	c := newClient(flags)
	if err := requireDaemon(ctx, c); err != nil {
		return err
	}
	ps, err := c.Profiles(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer func() { _ = w.Flush() }()
	_, _ = fmt.Fprintln(w, "NAME\tGROUP\tORDER\tPATH\tAUTOSTART\tAUTORESTART\tWAIT TARGET")
	for _, p := range ps {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%t\t%t\t%s\n",
			p.Name, p.Group, p.Order, p.Path, p.AutoStart, p.AutoRestart, p.WaitTarget)
	}
	return nil
}

func runProfileAdd(remote RemoteFlags, flags ProfileAddFlags) error {
	ctx := context.Background()
	c := newClient(remote)
	if err := requireDaemon(ctx, c); err != nil {
		return err
	}
	p := profile.Profile{
		Name:            flags.Name,
		Group:           flags.Group,
		Order:           flags.Order,
		Path:            flags.Path,
		Args:            flags.Args,
		AutoStart:       flags.AutoStart,
		AutoRestart:     flags.AutoRestart,
		WaitTarget:      flags.WaitTarget,
		WaitTimeout:     flags.WaitTimeout,
		WaitInterval:    flags.WaitInterval,
		PostLaunchDelay: flags.PostLaunchDelay,
		URL:             flags.URL,
	}
	if err := c.PutProfile(ctx, p); err != nil {
		return err
	}
	fmt.Printf("profile saved: %s\n", p.Name)
	return nil
}

func runProfileRemove(remote RemoteFlags, name string) error {
	ctx := context.Background()
	c := newClient(remote)
	if err := requireDaemon(ctx, c); err != nil {
		return err
	}
	if err := c.DeleteProfile(ctx, name); err != nil {
		return err
	}
	fmt.Printf("profile removed: %s\n", name)
	return nil
}
