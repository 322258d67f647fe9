package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	github "github.com/google/go-github/v66/github"

	"github.com/syncwise-ai/syncwise/pkg/domain"
)

func githubTools(creds domain.Credentials) ([]Tool, error) {
	owner, repo, ok := strings.Cut(creds.GitHubRepository, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("repository %q is not in owner/repo form", creds.GitHubRepository)
	}
	client := github.NewClient(nil)
	if creds.GitHubToken != "" {
		client = client.WithAuthToken(creds.GitHubToken)
	}
	return []Tool{
		listOpenIssues(client, owner, repo),
		getGitHubIssue(client, owner, repo),
		createGitHubIssue(client, owner, repo),
		commentOnIssue(client, owner, repo),
		listOpenPullRequests(client, owner, repo),
	}, nil
}

type githubIssueSummary struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state,omitempty"`
	Author string `json:"author,omitempty"`
	URL    string `json:"url,omitempty"`
}

func summarizeGitHubIssue(i *github.Issue) githubIssueSummary {
	s := githubIssueSummary{
		Number: i.GetNumber(),
		Title:  i.GetTitle(),
		State:  i.GetState(),
		URL:    i.GetHTMLURL(),
	}
	if u := i.GetUser(); u != nil {
		s.Author = u.GetLogin()
	}
	return s
}

func listOpenIssues(client *github.Client, owner, repo string) Tool {
	return Tool{
		Name:        "list_open_issues",
		Description: fmt.Sprintf("List open issues in the %s/%s repository.", owner, repo),
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			issues, _, err := client.Issues.ListByRepo(ctx, owner, repo, &github.IssueListByRepoOptions{
				State:       "open",
				ListOptions: github.ListOptions{PerPage: 25},
			})
			if err != nil {
				return "", fmt.Errorf("listing issues: %w", err)
			}
			out := make([]githubIssueSummary, 0, len(issues))
			for _, i := range issues {
				if i.IsPullRequest() {
					continue
				}
				out = append(out, summarizeGitHubIssue(i))
			}
			if len(out) == 0 {
				return "No open issues.", nil
			}
			b, err := json.Marshal(out)
			if err != nil {
				return "", fmt.Errorf("encoding issues: %w", err)
			}
			return string(b), nil
		},
	}
}

func getGitHubIssue(client *github.Client, owner, repo string) Tool {
	return Tool{
		Name:        "get_github_issue",
		Description: fmt.Sprintf("Fetch one issue from %s/%s by number, including its body.", owner, repo),
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"number": map[string]any{"type": "integer", "description": "Issue number."},
			},
			"required": []any{"number"},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			issue, _, err := client.Issues.Get(ctx, owner, repo, intArg(args, "number", 0))
			if err != nil {
				return "", fmt.Errorf("fetching issue: %w", err)
			}
			full := struct {
				githubIssueSummary
				Body string `json:"body,omitempty"`
			}{summarizeGitHubIssue(issue), issue.GetBody()}
			b, err := json.Marshal(full)
			if err != nil {
				return "", fmt.Errorf("encoding issue: %w", err)
			}
			return string(b), nil
		},
	}
}

func createGitHubIssue(client *github.Client, owner, repo string) Tool {
	return Tool{
		Name:        "create_github_issue",
		Description: fmt.Sprintf("Create a new issue in %s/%s.", owner, repo),
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{"type": "string"},
				"body":  map[string]any{"type": "string"},
			},
			"required": []any{"title"},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			req := &github.IssueRequest{
				Title: github.String(stringArg(args, "title")),
			}
			if body := stringArg(args, "body"); body != "" {
				req.Body = github.String(body)
			}
			issue, _, err := client.Issues.Create(ctx, owner, repo, req)
			if err != nil {
				return "", fmt.Errorf("creating issue: %w", err)
			}
			return fmt.Sprintf("Created issue #%d: %s", issue.GetNumber(), issue.GetHTMLURL()), nil
		},
	}
}

func commentOnIssue(client *github.Client, owner, repo string) Tool {
	return Tool{
		Name:        "comment_on_issue",
		Description: fmt.Sprintf("Add a comment to an issue or pull request in %s/%s.", owner, repo),
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"number": map[string]any{"type": "integer", "description": "Issue or pull request number."},
				"body":   map[string]any{"type": "string", "description": "Comment text."},
			},
			"required": []any{"number", "body"},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			comment := &github.IssueComment{Body: github.String(stringArg(args, "body"))}
			created, _, err := client.Issues.CreateComment(ctx, owner, repo, intArg(args, "number", 0), comment)
			if err != nil {
				return "", fmt.Errorf("creating comment: %w", err)
			}
			return fmt.Sprintf("Comment posted: %s", created.GetHTMLURL()), nil
		},
	}
}

func listOpenPullRequests(client *github.Client, owner, repo string) Tool {
	return Tool{
		Name:        "list_open_pull_requests",
		Description: fmt.Sprintf("List open pull requests in %s/%s.", owner, repo),
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			prs, _, err := client.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
				State:       "open",
				ListOptions: github.ListOptions{PerPage: 25},
			})
			if err != nil {
				return "", fmt.Errorf("listing pull requests: %w", err)
			}
			if len(prs) == 0 {
				return "No open pull requests.", nil
			}
			type prSummary struct {
				Number int    `json:"number"`
				Title  string `json:"title"`
				Author string `json:"author,omitempty"`
				URL    string `json:"url,omitempty"`
			}
			out := make([]prSummary, 0, len(prs))
			for _, pr := range prs {
				p := prSummary{Number: pr.GetNumber(), Title: pr.GetTitle(), URL: pr.GetHTMLURL()}
				if u := pr.GetUser(); u != nil {
					p.Author = u.GetLogin()
				}
				out = append(out, p)
			}
			b, err := json.Marshal(out)
			if err != nil {
				return "", fmt.Errorf("encoding pull requests: %w", err)
			}
			return string(b), nil
		},
	}
}
