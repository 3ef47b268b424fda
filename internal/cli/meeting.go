package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/designsync/internal/meeting"
	"github.com/dshills/designsync/internal/output"
)

var (
	flagMeetingURL        string
	flagMeetingSummary    string
	flagMeetingTranscript string
	flagMeetingTitle      string
)

// readInput reads path, or stdin when path is "-". An empty path yields "".
func readInput(path string, stdin io.Reader) (string, error) {
	switch path {
	case "":
		return "", nil
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		return string(data), nil
	}
}

var meetingCmd = &cobra.Command{
	Use:   "meeting --url URL [--summary FILE|-] [--transcript FILE|-]",
	Short: "Fold meeting notes into a design document",
	Long: "Analyze a meeting summary or transcript against a Confluence design document " +
		"and append a timestamped update section when the design changed.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagMeetingSummary == "-" && flagMeetingTranscript == "-" {
			fmt.Fprintln(cmd.ErrOrStderr(), "Error: only one of --summary and --transcript can read stdin")
			exitCode = ExitUsageError
			return nil
		}
		summary, err := readInput(flagMeetingSummary, cmd.InOrStdin())
		if err != nil {
			fail(cmd, err)
			return nil
		}
		transcript, err := readInput(flagMeetingTranscript, cmd.InOrStdin())
		if err != nil {
			fail(cmd, err)
			return nil
		}

		in := meeting.Input{DocumentURL: flagMeetingURL, Summary: summary, Transcript: transcript}
		if err := in.Validate(); err != nil {
			usageError(cmd, err)
			return nil
		}
		if _, err := output.GetWriter(flagFormat); err != nil {
			usageError(cmd, err)
			return nil
		}

		overrides := map[string]string{}
		if flagModel != "" {
			overrides["model"] = flagModel
		}
		if flagFamily != "" {
			overrides["family"] = flagFamily
		}
		ctx, cfg, err := loadConfig(cmd, overrides)
		if err != nil {
			return err
		}
		p, err := newMeetingPipeline(cfg, flagDryRun, flagMeetingTitle)
		if err != nil {
			fail(cmd, err)
			return nil
		}

		res, err := p.Run(ctx, in)
		if err != nil {
			fail(cmd, err)
			return nil
		}
		if err := output.WriteMeeting(res, flagFormat, flagOut); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error writing output: %v\n", err)
			exitCode = ExitRuntimeError
		}
		return nil
	},
}

func init() {
	meetingCmd.Flags().StringVar(&flagMeetingURL, "url", "", "Confluence design document URL")
	meetingCmd.Flags().StringVar(&flagMeetingSummary, "summary", "", "Meeting summary file, or - for stdin")
	meetingCmd.Flags().StringVar(&flagMeetingTranscript, "transcript", "", "Meeting transcript file, or - for stdin")
	meetingCmd.Flags().StringVar(&flagMeetingTitle, "title", "", "Heading of the appended section (default \"Meeting Update\")")
	meetingCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Analyze without updating the document")
	meetingCmd.Flags().StringVar(&flagFormat, "format", "text", "Output format (text, json, markdown)")
	meetingCmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	addModelFlags(meetingCmd)
	_ = meetingCmd.MarkFlagRequired("url")
}
