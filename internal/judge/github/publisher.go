// Package github posts the judge comment on a pull request, updating the
// previous judge comment when one exists.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gh "github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"
)

const commentsPerPage = 100

// Result describes the comment written by Publish.
type Result struct {
	CommentID int64
	URL       string
	Updated   bool
}

// Publisher writes pull-request comments through the GitHub API.
type Publisher struct {
	client *gh.Client
	logger *slog.Logger

	// Marker identifies comments owned by the publisher. When empty every
	// call creates a new comment.
	Marker string
}

// NewPublisher returns a Publisher authenticated with token.
func NewPublisher(ctx context.Context, token, marker string, logger *slog.Logger) (*Publisher, error) {
	if token == "" {
		return nil, errors.New("github token is required to publish comments")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	return NewPublisherWithClient(gh.NewClient(tc), marker, logger), nil
}

// NewPublisherWithClient wraps an existing client.
func NewPublisherWithClient(client *gh.Client, marker string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{client: client, logger: logger, Marker: marker}
}

// Publish writes body as a comment on pull request pr. An existing comment
// carrying the marker is edited instead of adding a new one.
func (p *Publisher) Publish(ctx context.Context, owner, repo string, pr int, body string) (*Result, error) {
	if pr <= 0 {
		return nil, fmt.Errorf("invalid pull request number %d", pr)
	}

	existing, err := p.findExisting(ctx, owner, repo, pr)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		c, _, err := p.client.Issues.EditComment(ctx, owner, repo, existing.GetID(), &gh.IssueComment{Body: gh.String(body)})
		if err != nil {
			return nil, fmt.Errorf("updating comment %d on %s/%s#%d: %w", existing.GetID(), owner, repo, pr, err)
		}
		p.logger.Info("updated judge comment", "repo", owner+"/"+repo, "pr", pr, "comment_id", c.GetID())
		return &Result{CommentID: c.GetID(), URL: c.GetHTMLURL(), Updated: true}, nil
	}

	c, _, err := p.client.Issues.CreateComment(ctx, owner, repo, pr, &gh.IssueComment{Body: gh.String(body)})
	if err != nil {
		return nil, fmt.Errorf("creating comment on %s/%s#%d: %w", owner, repo, pr, err)
	}
	p.logger.Info("created judge comment", "repo", owner+"/"+repo, "pr", pr, "comment_id", c.GetID())
	return &Result{CommentID: c.GetID(), URL: c.GetHTMLURL()}, nil
}

func (p *Publisher) findExisting(ctx context.Context, owner, repo string, pr int) (*gh.IssueComment, error) {
	if p.Marker == "" {
		return nil, nil
	}

	opts := &gh.IssueListCommentsOptions{ListOptions: gh.ListOptions{PerPage: commentsPerPage}}
	for {
		comments, resp, err := p.client.Issues.ListComments(ctx, owner, repo, pr, opts)
		if err != nil {
			return nil, fmt.Errorf("listing comments on %s/%s#%d: %w", owner, repo, pr, err)
		}
		for _, c := range comments {
			if strings.Contains(c.GetBody(), p.Marker) {
				return c, nil
			}
		}
		if resp == nil || resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}

// SplitRepository splits an "owner/name" repository reference.
func SplitRepository(full string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(full), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository %q: expected owner/name", full)
	}
	return owner, repo, nil
}
