package toolkit

import (
	"context"
	"encoding/json"
	"fmt"

	jira "github.com/andygrunwald/go-jira"

	"github.com/syncwise-ai/syncwise/pkg/domain"
)

func jiraTools(creds domain.Credentials) ([]Tool, error) {
	tp := jira.BasicAuthTransport{
		Username: creds.JiraUsername,
		Password: creds.JiraAPIToken,
	}
	client, err := jira.NewClient(tp.Client(), creds.JiraInstanceURL)
	if err != nil {
		return nil, fmt.Errorf("creating jira client: %w", err)
	}
	return []Tool{
		jqlSearch(client),
		listJiraProjects(client),
		createJiraIssue(client, creds.JiraProjectKey),
		getJiraIssue(client),
	}, nil
}

type jiraIssueSummary struct {
	Key      string `json:"key"`
	Summary  string `json:"summary"`
	Status   string `json:"status,omitempty"`
	Assignee string `json:"assignee,omitempty"`
	Type     string `json:"type,omitempty"`
}

func summarizeJiraIssue(i jira.Issue) jiraIssueSummary {
	s := jiraIssueSummary{Key: i.Key}
	if i.Fields != nil {
		s.Summary = i.Fields.Summary
		s.Type = i.Fields.Type.Name
		if i.Fields.Status != nil {
			s.Status = i.Fields.Status.Name
		}
		if i.Fields.Assignee != nil {
			s.Assignee = i.Fields.Assignee.DisplayName
		}
	}
	return s
}

func jqlSearch(client *jira.Client) Tool {
	return Tool{
		Name: "jql_search",
		Description: "Search Jira issues with a JQL query, e.g. " +
			`"project = PROJ AND status = 'In Progress' ORDER BY created DESC".`,
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"jql": map[string]any{"type": "string", "description": "JQL query string."},
			},
			"required": []any{"jql"},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			issues, _, err := client.Issue.SearchWithContext(ctx, stringArg(args, "jql"), &jira.SearchOptions{MaxResults: 25})
			if err != nil {
				return "", fmt.Errorf("searching issues: %w", err)
			}
			if len(issues) == 0 {
				return "No issues matched the query.", nil
			}
			out := make([]jiraIssueSummary, 0, len(issues))
			for _, i := range issues {
				out = append(out, summarizeJiraIssue(i))
			}
			b, err := json.Marshal(out)
			if err != nil {
				return "", fmt.Errorf("encoding issues: %w", err)
			}
			return string(b), nil
		},
	}
}

func listJiraProjects(client *jira.Client) Tool {
	return Tool{
		Name:        "list_jira_projects",
		Description: "List the Jira projects visible to the user.",
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			list, _, err := client.Project.GetListWithContext(ctx)
			if err != nil {
				return "", fmt.Errorf("listing projects: %w", err)
			}
			type proj struct {
				Key  string `json:"key"`
				Name string `json:"name"`
			}
			out := make([]proj, 0, len(*list))
			for _, p := range *list {
				out = append(out, proj{Key: p.Key, Name: p.Name})
			}
			b, err := json.Marshal(out)
			if err != nil {
				return "", fmt.Errorf("encoding projects: %w", err)
			}
			return string(b), nil
		},
	}
}

func createJiraIssue(client *jira.Client, defaultProjectKey string) Tool {
	return Tool{
		Name:        "create_jira_issue",
		Description: "Create a Jira issue. project_key defaults to the project configured for this workspace.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"summary":     map[string]any{"type": "string", "description": "One-line issue title."},
				"description": map[string]any{"type": "string"},
				"issue_type":  map[string]any{"type": "string", "description": "Issue type name, e.g. Task or Bug. Defaults to Task."},
				"project_key": map[string]any{"type": "string"},
			},
			"required": []any{"summary"},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			projectKey := stringArg(args, "project_key")
			if projectKey == "" {
				projectKey = defaultProjectKey
			}
			issueType := stringArg(args, "issue_type")
			if issueType == "" {
				issueType = "Task"
			}
			issue := &jira.Issue{
				Fields: &jira.IssueFields{
					Project:     jira.Project{Key: projectKey},
					Type:        jira.IssueType{Name: issueType},
					Summary:     stringArg(args, "summary"),
					Description: stringArg(args, "description"),
				},
			}
			created, _, err := client.Issue.CreateWithContext(ctx, issue)
			if err != nil {
				return "", fmt.Errorf("creating issue: %w", err)
			}
			return fmt.Sprintf("Created issue %s.", created.Key), nil
		},
	}
}

func getJiraIssue(client *jira.Client) Tool {
	return Tool{
		Name:        "get_jira_issue",
		Description: "Fetch a single Jira issue by key, e.g. PROJ-42.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"issue_key": map[string]any{"type": "string"},
			},
			"required": []any{"issue_key"},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			issue, _, err := client.Issue.GetWithContext(ctx, stringArg(args, "issue_key"), nil)
			if err != nil {
				return "", fmt.Errorf("fetching issue: %w", err)
			}
			summary := summarizeJiraIssue(*issue)
			full := struct {
				jiraIssueSummary
				Description string `json:"description,omitempty"`
			}{jiraIssueSummary: summary}
			if issue.Fields != nil {
				full.Description = issue.Fields.Description
			}
			b, err := json.Marshal(full)
			if err != nil {
				return "", fmt.Errorf("encoding issue: %w", err)
			}
			return string(b), nil
		},
	}
}
