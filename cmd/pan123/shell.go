package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pan123/pkg/client"
	"pan123/pkg/listing"
	"pan123/pkg/metrics"
	"pan123/pkg/transfer"
	"pan123/pkg/types"
)

const shellHelp = `Commands:
  ls                 show the current listing
  more               fetch the next pages
  all                fetch every remaining page
  cd <n|..|/|#id>    enter entry n, go up, go to root or jump to a folder id
  pwd                print the current path
  get <n> [-r] [-f]  download entry n in the background
  put <path> [mode]  upload a local file (mode: ask, overwrite, keep-both)
  link <n>           print the direct link of entry n
  mkdir <name>       create a folder
  rm <n>             move entry n to the recycle bin
  bin                list the recycle bin
  restore <n>        restore entry n of the recycle bin
  share <n>... [--password code]
  jobs               list transfers
  pause|resume|cancel|clear <job>
  help, exit`

func shellCmd() *cobra.Command {
	var (
		folder      int64
		metricsAddr string
		outDir      string
	)

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Browse interactively with background transfers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			m, registry := newMetrics()
			if metricsAddr != "" {
				srv := metrics.StartServer(metricsAddr, registry, logger)
				defer srv.Close()
			}

			prompt := newPrompter(os.Stdin, os.Stdout)
			s, err := openSession(ctx, logger, sessionOptions{metrics: m, prompt: prompt, folder: folder})
			if err != nil {
				return describeError(err)
			}
			defer s.Close()

			sh := &shell{session: s, prompt: prompt, logger: logger, outDir: outDir}
			printListing(s)
			return sh.run(ctx)
		},
	}

	cmd.Flags().Int64Var(&folder, "folder", 0, "folder id to start in (default root)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9123")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "download directory (default from config)")
	return cmd
}

type shell struct {
	session *client.Session
	prompt  *prompter
	logger  *zap.Logger
	outDir  string
}

var errExit = errors.New("exit")

func (sh *shell) run(ctx context.Context) error {
	stop := sh.prompt.serve()
	defer stop()

	for {
		line := sh.prompt.command(promptStyle.Render(sh.session.Navigator().Path() + " > "))
		if line == "" {
			if sh.prompt.eof() {
				return nil
			}
			continue
		}
		err := sh.exec(ctx, strings.Fields(line))
		if errors.Is(err, errExit) {
			return nil
		}
		if err != nil {
			fmt.Println(errorStyle.Render(describeError(err).Error()))
		}
	}
}

func (sh *shell) exec(ctx context.Context, args []string) error {
	s := sh.session
	nav := s.Navigator()

	switch cmd, rest := args[0], args[1:]; cmd {
	case "help", "?":
		fmt.Println(shellHelp)
	case "exit", "quit", "q":
		return errExit
	case "ls":
		printListing(s)
	case "pwd":
		fmt.Println(nav.Path())
	case "more":
		fresh, err := nav.More(ctx)
		if err != nil {
			return err
		}
		if len(fresh) == 0 {
			fmt.Println(mutedStyle.Render("Nothing more to fetch"))
		}
		printListing(s)
	case "all":
		if _, err := s.Cursor().Fetch(ctx, nav.Current().ID, listing.FetchOptions{ForceAll: true}); err != nil {
			return err
		}
		printListing(s)
	case "cd":
		if len(rest) != 1 {
			return types.InvalidOperation("usage: cd <n|..|/|#id>")
		}
		if err := sh.cd(ctx, rest[0]); err != nil {
			return err
		}
		printListing(s)
	case "get":
		return sh.get(ctx, rest)
	case "put":
		return sh.put(rest)
	case "link":
		i, err := sh.oneIndex(rest)
		if err != nil {
			return err
		}
		link, err := s.Link(ctx, i)
		if err != nil {
			return err
		}
		fmt.Println(link)
	case "mkdir":
		if len(rest) == 0 {
			return types.InvalidOperation("usage: mkdir <name>")
		}
		if _, err := s.Mkdir(ctx, strings.Join(rest, " "), false); err != nil {
			return err
		}
		printListing(s)
	case "rm":
		i, err := sh.oneIndex(rest)
		if err != nil {
			return err
		}
		e, err := s.Trash(ctx, i)
		if err != nil {
			return err
		}
		fmt.Printf("Moved %s to the recycle bin\n", e.Name)
	case "bin":
		entries, err := s.Recycle(ctx)
		if err != nil {
			return err
		}
		fmt.Println(renderEntries("Recycle bin", entries, int64(len(entries)), true))
	case "restore":
		i, err := sh.oneIndex(rest)
		if err != nil {
			return err
		}
		e, err := s.RestoreIndex(ctx, i)
		if err != nil {
			return err
		}
		fmt.Printf("Restored %s\n", e.Name)
	case "share":
		return sh.share(ctx, rest)
	case "jobs":
		fmt.Println(renderJobs(s.Pool().List()))
	case "pause", "resume", "cancel", "clear":
		return sh.job(cmd, rest)
	default:
		return types.InvalidOperation("unknown command %q, try help", cmd)
	}
	return nil
}

func (sh *shell) oneIndex(args []string) (int, error) {
	if len(args) != 1 {
		return 0, types.InvalidOperation("expected one entry number")
	}
	return parseIndex(args[0])
}

func (sh *shell) cd(ctx context.Context, target string) error {
	nav := sh.session.Navigator()
	switch {
	case target == "..":
		_, err := nav.Up(ctx)
		return err
	case target == "/":
		_, err := nav.ToRoot(ctx)
		return err
	case strings.HasPrefix(target, "#"):
		id, err := strconv.ParseInt(target[1:], 10, 64)
		if err != nil {
			return types.InvalidOperation("bad folder id %q", target)
		}
		_, err = nav.EnterByID(ctx, types.FileID(id))
		return err
	default:
		i, err := parseIndex(target)
		if err != nil {
			return err
		}
		_, err = nav.EnterIndex(ctx, i)
		return err
	}
}

func (sh *shell) get(ctx context.Context, args []string) error {
	opts := client.DownloadOptions{Dir: sh.outDir}
	var numbers []string
	for _, a := range args {
		switch a {
		case "-r":
			opts.Recursive = true
		case "-f":
			opts.Overwrite = true
		default:
			numbers = append(numbers, a)
		}
	}
	indices, err := parseIndices(numbers)
	if err != nil {
		return err
	}
	if len(indices) == 0 {
		return types.InvalidOperation("usage: get <n> [-r] [-f]")
	}
	for _, i := range indices {
		t, err := sh.session.Download(context.Background(), i, opts, sh.notify())
		if err != nil {
			return err
		}
		fmt.Printf("Queued %s as job %s\n", t.Name, shortID(t.ID))
	}
	return nil
}

func (sh *shell) put(args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return types.InvalidOperation("usage: put <path> [ask|overwrite|keep-both]")
	}
	mode := ""
	if len(args) == 2 {
		mode = args[1]
	}
	policy, err := parsePolicy(mode)
	if err != nil {
		return err
	}
	t := sh.session.Upload(context.Background(), args[0], policy, sh.notify())
	fmt.Printf("Queued %s as job %s\n", t.Name, shortID(t.ID))
	return nil
}

func (sh *shell) share(ctx context.Context, args []string) error {
	var (
		password string
		numbers  []string
	)
	for i := 0; i < len(args); i++ {
		if args[i] == "--password" && i+1 < len(args) {
			password = args[i+1]
			i++
			continue
		}
		numbers = append(numbers, args[i])
	}
	indices, err := parseIndices(numbers)
	if err != nil {
		return err
	}
	link, err := sh.session.Share(ctx, indices, password)
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render(link))
	return nil
}

// notify prints a line when a background transfer ends.
func (sh *shell) notify() transfer.Handlers {
	return transfer.Handlers{
		OnError: func(err error) {
			fmt.Println()
			fmt.Println(errorStyle.Render("Transfer failed: " + describeError(err).Error()))
		},
		OnFinished: func(state transfer.State) {
			if state == transfer.StateCompleted || state == transfer.StateCancelled {
				fmt.Println()
				fmt.Println(stateStyle(state).Render("Transfer " + state.String()))
			}
		},
	}
}

func (sh *shell) job(action string, args []string) error {
	if len(args) != 1 {
		return types.InvalidOperation("usage: %s <job>", action)
	}
	id, err := sh.findJob(args[0])
	if err != nil {
		return err
	}
	pool := sh.session.Pool()
	switch action {
	case "pause":
		return pool.Pause(id)
	case "resume":
		return pool.Resume(id)
	case "cancel":
		return pool.Cancel(id)
	default:
		return pool.Remove(id)
	}
}

// findJob accepts any unambiguous prefix of a job id.
func (sh *shell) findJob(prefix string) (string, error) {
	var match string
	for _, j := range sh.session.Pool().List() {
		if strings.HasPrefix(j.ID, prefix) {
			if match != "" {
				return "", types.InvalidOperation("job prefix %q is ambiguous", prefix)
			}
			match = j.ID
		}
	}
	if match == "" {
		return "", types.InvalidOperation("no job %q", prefix)
	}
	return match, nil
}
