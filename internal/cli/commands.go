package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"acadrive/internal/model"
	"acadrive/internal/query"
	"acadrive/internal/service"
)

func whoamiCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print this installation's pseudo-identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app().Identity.ID(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func uploadCmd(app func() *App) *cobra.Command {
	var in service.UploadInput

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document to the shared catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open file: %w", err)
			}
			defer f.Close()

			in.FileName = filepath.Base(args[0])
			in.Content = f

			res, err := app().Catalog.Upload(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s (%s)\n%s\n", res.ID, res.SubjectName, res.FileURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.SubjectName, "subject", "", "subject name")
	cmd.Flags().StringVar(&in.SubjectCode, "code", "", "subject code")
	cmd.Flags().IntVar(&in.Semester, "semester", 0, "semester (1-8)")
	cmd.Flags().StringVar(&in.ResourceType, "type", "", `resource type: "Notes", "Module", "Question Paper" or "Question Set"`)
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("semester")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func browseCmd(app func() *App) *cobra.Command {
	var f query.Filters

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "List catalog resources, best ranked first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			res, err := a.Catalog.Browse(cmd.Context(), f)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if res.Total == 0 {
				fmt.Fprintln(w, "no resources found")
				return nil
			}

			voted, err := a.Ledger.All(cmd.Context())
			if err != nil {
				return err
			}
			printResources(w, res.Items, voted)
			fmt.Fprintf(w, "%d resource(s)\n", res.Total)
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.SearchText, "q", "q", "", "search subject name, subject code and file name")
	cmd.Flags().StringVar(&f.ResourceType, "type", "", `resource type or "All"`)
	cmd.Flags().IntVar(&f.Semester, "semester", 0, "semester (1-8), 0 for any")
	cmd.Flags().BoolVar(&f.OwnerOnly, "mine", false, "only my uploads")
	return cmd
}

func printResources(w io.Writer, items []model.Resource, voted map[string]model.VoteDirection) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCORE\tUP\tDOWN\tTYPE\tSEM\tSUBJECT\tFILE\tMY VOTE\t")
	for _, r := range items {
		subject := r.SubjectName
		if r.SubjectCode != "" {
			subject += " (" + r.SubjectCode + ")"
		}
		if r.Recommended() {
			subject += " [recommended]"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%d\t%s\t%s\t%s\t\n",
			r.ID, r.Score, r.Upvotes, r.Downvotes, r.ResourceType, r.Semester, subject, r.FileName, voted[r.ID])
	}
	_ = tw.Flush()
}

func voteCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "vote <id> up|down",
		Short: "Vote on a resource, once per resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := model.ParseVoteDirection(args[1])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			published := 0
			publish := func(r model.Resource) {
				state := "pending"
				if published > 0 {
					state = "reverted"
				}
				published++
				fmt.Fprintf(w, "score %d (%s)\n", r.Score, state)
			}

			out, err := app().Catalog.Vote(cmd.Context(), args[0], dir, publish)
			if err != nil {
				return err
			}
			if !out.Applied {
				if out.Previous != "" {
					fmt.Fprintf(w, "already voted %s on this resource\n", out.Previous)
				} else {
					fmt.Fprintln(w, "already voted on this resource")
				}
				return nil
			}

			r := out.Resource
			fmt.Fprintf(w, "voted %s: score %d (%d up, %d down)\n", dir, r.Score, r.Upvotes, r.Downvotes)
			return nil
		},
	}
}

func votesCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "votes",
		Short: "List the votes recorded by this installation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			voted, err := app().Ledger.All(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(voted) == 0 {
				fmt.Fprintln(w, "no votes recorded")
				return nil
			}

			ids := make([]string, 0, len(voted))
			for id := range voted {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Fprintf(w, "%s\t%s\n", id, voted[id])
			}
			return nil
		},
	}
}

func downloadCmd(app func() *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Save a resource's file locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, res, err := app().Catalog.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer rc.Close()

			if output == "-" {
				_, err = io.Copy(cmd.OutOrStdout(), rc)
				return err
			}
			if output == "" {
				output = filepath.Base(res.FileName)
			}
			f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			n, err := io.Copy(f, rc)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(output)
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%d bytes)\n", output, n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (default: the original file name)`)
	return cmd
}

func linkCmd(app func() *App) *cobra.Command {
	var expires time.Duration

	cmd := &cobra.Command{
		Use:   "link <id>",
		Short: "Print a temporary download link for a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			link, err := app().Catalog.DownloadURL(cmd.Context(), args[0], expires)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}

	cmd.Flags().DurationVar(&expires, "expires", service.DefaultLinkExpiry, "link lifetime")
	return cmd
}

func deleteCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of my uploads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.Catalog.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted "+args[0])
			// The row is gone; a leftover vote entry would only show up in "votes".
			if err := a.Ledger.Forget(cmd.Context(), args[0]); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: "+err.Error())
			}
			return nil
		},
	}
}
