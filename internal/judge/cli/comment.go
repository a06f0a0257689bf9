package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/build-flow-labs/judge/internal/judge/bundle"
	"github.com/build-flow-labs/judge/internal/judge/comment"
	"github.com/build-flow-labs/judge/internal/judge/github"
)

// CommentFile is the rendered comment written into the PR directory.
const CommentFile = "pr-comment.md"

var (
	commentStack string
	commentPost  bool
	commentWrite bool
)

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Render the pull-request comment and optionally post it",
	Long: `Renders the markdown summary of a pull request: score table, code-quality
findings and prioritised action items.

By default the comment is printed. --write stores it as pr-comment.md in the
PR directory; --post publishes it on the pull request of the configured
repository (GITHUB_REPOSITORY, GITHUB_TOKEN), replacing the previous judge
comment when one exists.`,
	Example: `  judge comment --team "Team Rocket" --pr 7 --stack node
  judge comment --team "Team Rocket" --pr 7 --post`,
	RunE: runComment,
}

func init() {
	addTargetFlags(commentCmd)
	addCommentFlags(commentCmd)
	commentCmd.Flags().BoolVar(&commentWrite, "write", false, "Write the comment to "+CommentFile+" in the PR directory")
}

func addCommentFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&commentStack, "stack", "", "Technology stack shown in the comment header")
	cmd.Flags().BoolVar(&commentPost, "post", false, "Post the comment on the pull request")
}

func runComment(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	b, err := e.loadBundle()
	if err != nil {
		return err
	}

	body, err := e.renderComment(b)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case commentPost:
		res, err := e.postComment(cmd.Context(), b, body)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.URL)
	case commentWrite:
		path, err := writeComment(b.Dir, body)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, path)
	default:
		fmt.Fprint(out, body)
	}
	return nil
}

func (e *env) renderComment(b *bundle.Bundle) (string, error) {
	return comment.Render(comment.Input{
		Team:   b.Team,
		Stack:  commentStack,
		PR:     b.PRNumber,
		Bundle: b,
		Links: comment.Links{
			Dashboard: e.cfg.DashboardURL,
			Sonar:     e.cfg.SonarURL,
			Workflow:  e.cfg.WorkflowURL,
		},
	})
}

func (e *env) postComment(ctx context.Context, b *bundle.Bundle, body string) (*github.Result, error) {
	owner, repo, err := github.SplitRepository(e.cfg.Repository)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := github.NewPublisher(ctx, e.cfg.GitHubToken, comment.Marker, e.logger)
	if err != nil {
		return nil, err
	}
	return p.Publish(ctx, owner, repo, b.PRNumber, body)
}

func writeComment(dir, body string) (string, error) {
	path := filepath.Join(dir, CommentFile)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("writing comment: %w", err)
	}
	return path, nil
}
