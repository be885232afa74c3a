package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pan123/pkg/api"
	"pan123/pkg/client"
	"pan123/pkg/listing"
	"pan123/pkg/types"
)

// parseIndex turns a 1-based entry number into a listing index.
func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, types.InvalidOperation("entry number must be a positive integer, got %q", s)
	}
	return n - 1, nil
}

func parseIndices(args []string) ([]int, error) {
	out := make([]int, 0, len(args))
	for _, a := range args {
		i, err := parseIndex(a)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}

// describeError adds the vendor code to service errors.
func describeError(err error) error {
	if code := api.StatusCode(err); code > 0 {
		return fmt.Errorf("%w (code %d)", err, code)
	}
	return err
}

func loginCmd() *cobra.Command {
	var (
		user     string
		password string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			ctx, cancel := signalContext()
			defer cancel()

			prompt := newPrompter(os.Stdin, os.Stdout)
			if user == "" {
				user = prompt.ask("Phone or email: ")
			}
			if password == "" {
				fmt.Print("Password: ")
				raw, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Println()
				if err != nil {
					password = prompt.ask("")
				} else {
					password = string(raw)
				}
			}

			s, err := openSession(ctx, logger, sessionOptions{skipOpen: true})
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Login(ctx, user, password); err != nil {
				return describeError(err)
			}
			rec := s.Record()
			fmt.Println(successStyle.Render("Signed in as " + user))
			fmt.Println(mutedStyle.Render(fmt.Sprintf("Device %s, %s", rec.DeviceType, rec.OSVersion)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "account phone number or email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when empty)")
	return cmd
}

func lsCmd() *cobra.Command {
	var (
		folder int64
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List a folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			ctx, cancel := signalContext()
			defer cancel()

			s, err := openSession(ctx, logger, sessionOptions{folder: folder})
			if err != nil {
				return describeError(err)
			}
			defer s.Close()

			if all {
				if _, err := s.Cursor().Fetch(ctx, s.Navigator().Current().ID, listing.FetchOptions{ForceAll: true}); err != nil {
					return describeError(err)
				}
			}
			printListing(s)
			return nil
		},
	}

	cmd.Flags().Int64Var(&folder, "folder", 0, "folder id to list (default root)")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "fetch every page of large folders")
	return cmd
}

func printListing(s *client.Session) {
	c := s.Cursor()
	fmt.Println(renderEntries(s.Navigator().Path(), c.Entries(), c.Total(), c.IsComplete()))
}

func linkCmd() *cobra.Command {
	var folder int64

	cmd := &cobra.Command{
		Use:   "link <number>",
		Short: "Print the direct download link of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			s, err := openSession(ctx, logger, sessionOptions{folder: folder})
			if err != nil {
				return describeError(err)
			}
			defer s.Close()

			link, err := s.Link(ctx, i)
			if err != nil {
				return describeError(err)
			}
			fmt.Println(link)
			return nil
		},
	}

	cmd.Flags().Int64Var(&folder, "folder", 0, "folder id the number refers to (default root)")
	return cmd
}

func mkdirCmd() *cobra.Command {
	var (
		folder int64
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "mkdir <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			ctx, cancel := signalContext()
			defer cancel()

			s, err := openSession(ctx, logger, sessionOptions{folder: folder})
			if err != nil {
				return describeError(err)
			}
			defer s.Close()

			id, err := s.Mkdir(ctx, args[0], force)
			if err != nil {
				return describeError(err)
			}
			fmt.Printf("Folder %s: id %d\n", folderStyle.Render(args[0]), id)
			return nil
		},
	}

	cmd.Flags().Int64Var(&folder, "folder", 0, "parent folder id (default root)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "create even if a folder with that name exists")
	return cmd
}

func rmCmd() *cobra.Command {
	var folder int64

	cmd := &cobra.Command{
		Use:   "rm <number>",
		Short: "Move an entry to the recycle bin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			s, err := openSession(ctx, logger, sessionOptions{folder: folder})
			if err != nil {
				return describeError(err)
			}
			defer s.Close()

			e, err := s.Trash(ctx, i)
			if err != nil {
				return describeError(err)
			}
			fmt.Printf("Moved %s to the recycle bin\n", e.Name)
			return nil
		},
	}

	cmd.Flags().Int64Var(&folder, "folder", 0, "folder id the number refers to (default root)")
	return cmd
}

func trashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trash",
		Short: "List the recycle bin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			ctx, cancel := signalContext()
			defer cancel()

			s, err := openSession(ctx, logger, sessionOptions{})
			if err != nil {
				return describeError(err)
			}
			defer s.Close()

			entries, err := s.Recycle(ctx)
			if err != nil {
				return describeError(err)
			}
			fmt.Println(renderEntries("Recycle bin", entries, int64(len(entries)), true))
			return nil
		},
	}
}

func restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <number>",
		Short: "Restore an entry from the recycle bin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			s, err := openSession(ctx, logger, sessionOptions{})
			if err != nil {
				return describeError(err)
			}
			defer s.Close()

			if _, err := s.Recycle(ctx); err != nil {
				return describeError(err)
			}
			e, err := s.RestoreIndex(ctx, i)
			if err != nil {
				return describeError(err)
			}
			fmt.Printf("Restored %s\n", e.Name)
			return nil
		},
	}
}

func shareCmd() *cobra.Command {
	var (
		folder   int64
		password string
	)

	cmd := &cobra.Command{
		Use:   "share <number>...",
		Short: "Create a permanent share link",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			indices, err := parseIndices(args)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			s, err := openSession(ctx, logger, sessionOptions{folder: folder})
			if err != nil {
				return describeError(err)
			}
			defer s.Close()

			link, err := s.Share(ctx, indices, password)
			if err != nil {
				return describeError(err)
			}
			fmt.Println(successStyle.Render(link))
			if password != "" {
				fmt.Println(mutedStyle.Render("Extraction code: " + password))
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&folder, "folder", 0, "folder id the numbers refer to (default root)")
	cmd.Flags().StringVar(&password, "password", "", "extraction code")
	return cmd
}
