package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dshills/designsync/internal/github"
	"github.com/dshills/designsync/internal/output"
	"github.com/dshills/designsync/internal/review"
)

// Shared review flags
var (
	flagDryRun       bool
	flagFormat       string
	flagOut          string
	flagModel        string
	flagFamily       string
	flagMaxDiffBytes int
	flagNoRedact     bool
)

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagModel, "model", "", "Model name")
	cmd.Flags().StringVar(&flagFamily, "family", "", "Model family (chat, responses, messages)")
}

func addReviewFlags(cmd *cobra.Command) {
	addModelFlags(cmd)
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Build the review comment without posting it")
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format (text, json, markdown)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().IntVar(&flagMaxDiffBytes, "max-diff-bytes", 0, "Maximum diff size sent to the model")
	cmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagFamily != "" {
		m["family"] = flagFamily
	}
	if flagMaxDiffBytes > 0 {
		m["maxDiffBytes"] = strconv.Itoa(flagMaxDiffBytes)
	}
	if flagNoRedact {
		m["redactSecrets"] = "false"
	}
	return m
}

// parsePRArgs accepts either a pull request URL or "owner/repo number".
func parsePRArgs(args []string) (github.PRRef, error) {
	switch len(args) {
	case 1:
		return github.ParsePRURL(args[0])
	case 2:
		owner, repo, err := github.ParseRepo(args[0])
		if err != nil {
			return github.PRRef{}, err
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return github.PRRef{}, fmt.Errorf("invalid pull request number %q", args[1])
		}
		return github.PRRef{Owner: owner, Repo: repo, Number: n}, nil
	default:
		return github.PRRef{}, fmt.Errorf("expected <owner>/<repo> <number> or a pull request URL")
	}
}

var reviewCmd = &cobra.Command{
	Use:   "review <owner>/<repo> <number> | review <pr-url>",
	Short: "Review a pull request against its design document",
	Long: "Fetch a pull request, find the design document linked in its description, " +
		"ask the model for a design review and post it as a comment.",
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := parsePRArgs(args)
		if err != nil {
			usageError(cmd, err)
			return nil
		}
		if _, err := output.GetWriter(flagFormat); err != nil {
			usageError(cmd, err)
			return nil
		}

		ctx, cfg, err := loadConfig(cmd, buildOverrides())
		if err != nil {
			return err
		}
		if flagNoRedact {
			fmt.Fprintln(cmd.ErrOrStderr(), "WARNING: secret redaction is disabled")
		}
		p, err := newReviewPipeline(cfg, flagDryRun)
		if err != nil {
			fail(cmd, err)
			return nil
		}

		res, err := p.Run(ctx, ref)
		if err != nil {
			fail(cmd, err)
			return nil
		}
		if err := output.WriteReview(res, flagFormat, flagOut); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error writing output: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		if !res.Success {
			exitCode = ExitUnsuccessful
		}
		return nil
	},
}

var reviewBatchCmd = &cobra.Command{
	Use:   "batch <owner>/<repo> <number>...",
	Short: "Review several pull requests of one repository in sequence",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, repo, err := github.ParseRepo(args[0])
		if err != nil {
			usageError(cmd, err)
			return nil
		}
		refs := make([]github.PRRef, 0, len(args)-1)
		for _, a := range args[1:] {
			n, err := strconv.Atoi(a)
			if err != nil || n <= 0 {
				usageError(cmd, fmt.Errorf("invalid pull request number %q", a))
				return nil
			}
			refs = append(refs, github.PRRef{Owner: owner, Repo: repo, Number: n})
		}

		ctx, cfg, err := loadConfig(cmd, buildOverrides())
		if err != nil {
			return err
		}
		p, err := newReviewPipeline(cfg, flagDryRun)
		if err != nil {
			fail(cmd, err)
			return nil
		}

		writer, err := output.GetWriter(flagFormat)
		if err != nil {
			usageError(cmd, err)
			return nil
		}
		exitCode = batchExitCode(p.RunBatch(ctx, refs), func(item review.BatchItem) {
			if item.Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s: %v\n", item.Ref, item.Err)
				return
			}
			if err := writer.WriteReview(cmd.OutOrStdout(), item.Result); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error writing output: %v\n", err)
			}
		})
		return nil
	},
}

// batchExitCode reports each item and returns the most severe exit code.
// Any failure outranks an unsuccessful review, which outranks success.
func batchExitCode(items []review.BatchItem, report func(review.BatchItem)) int {
	var errCode int
	unsuccessful := false
	for _, item := range items {
		report(item)
		switch {
		case item.Err != nil:
			errCode = max(errCode, exitCodeFor(item.Err))
		case !item.Result.Success:
			unsuccessful = true
		}
	}
	switch {
	case errCode != 0:
		return errCode
	case unsuccessful:
		return ExitUnsuccessful
	default:
		return ExitSuccess
	}
}

func init() {
	addReviewFlags(reviewCmd)
	reviewBatchCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Build the review comments without posting them")
	reviewBatchCmd.Flags().StringVar(&flagFormat, "format", "text", "Output format (text, json, markdown)")
	reviewBatchCmd.Flags().StringVar(&flagModel, "model", "", "Model name")
	reviewBatchCmd.Flags().StringVar(&flagFamily, "family", "", "Model family (chat, responses, messages)")
	reviewCmd.AddCommand(reviewBatchCmd)
}
