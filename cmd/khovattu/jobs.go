package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/khovattu/khovattu/cmd/khovattu/cli"
)

const jobsUsage = `usage:
  khovattu jobs trigger <inventory:integrity|inventory:low_stock>
  khovattu jobs stats`

// runJobs handles the "jobs" subcommand and returns the process exit code.
func runJobs(args []string) int {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}
	c := cli.NewJobsCLI(redisAddr)
	defer c.Close()
	return jobsCommand(c, args, os.Stdout, os.Stderr)
}

func jobsCommand(c *cli.JobsCLI, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, jobsUsage)
		return 2
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch args[0] {
	case "trigger":
		if len(args) != 2 {
			fmt.Fprintln(stderr, jobsUsage)
			return 2
		}
		info, err := c.Trigger(ctx, args[1])
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintf(stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := c.InspectQueue()
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintf(stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d failed=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Failed)
	default:
		fmt.Fprintln(stderr, jobsUsage)
		return 2
	}
	return 0
}
