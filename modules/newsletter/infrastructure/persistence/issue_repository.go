package persistence

import (
	"context"
	"errors"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/newsletter/modules/newsletter/domain/aggregates/issue"
	"github.com/iota-uz/newsletter/pkg/composables"
	"github.com/iota-uz/newsletter/pkg/delivery"
)

const (
	issueInsertQuery = `INSERT INTO newsletter_issues (newsletter_issue_id, title, text_content, html_content, published_at)
		VALUES ($1, $2, $3, $4, $5)`
	issueSelectQuery = `SELECT newsletter_issue_id, title, text_content, html_content, published_at
		FROM newsletter_issues
		WHERE newsletter_issue_id = $1`
)

type IssueRepository struct{}

func NewIssueRepository() *IssueRepository {
	return &IssueRepository{}
}

// Create writes the issue through the transaction bound to ctx.
func (r *IssueRepository) Create(ctx context.Context, iss issue.Issue) (issue.Issue, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return issue.Issue{}, err
	}
	if _, err := tx.Exec(ctx, issueInsertQuery,
		iss.ID(), iss.Title(), iss.TextContent(), iss.HTMLContent(), iss.PublishedAt(),
	); err != nil {
		return issue.Issue{}, gerrors.Wrap(err, "insert newsletter issue")
	}
	return iss, nil
}

func (r *IssueRepository) GetByID(ctx context.Context, id uuid.UUID) (issue.Issue, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return issue.Issue{}, err
	}

	var (
		issueID           uuid.UUID
		title, text, html string
		publishedAt       time.Time
	)
	err = tx.QueryRow(ctx, issueSelectQuery, id).Scan(&issueID, &title, &text, &html, &publishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return issue.Issue{}, issue.ErrNotFound
	}
	if err != nil {
		return issue.Issue{}, gerrors.Wrap(err, "select newsletter issue")
	}
	return issue.Hydrate(issueID, title, html, text, publishedAt), nil
}

// IssueContentSource serves issue content to delivery workers, which run outside any request.
type IssueContentSource struct {
	pool *pgxpool.Pool
	repo issue.Repository
}

func NewIssueContentSource(pool *pgxpool.Pool, repo issue.Repository) *IssueContentSource {
	return &IssueContentSource{pool: pool, repo: repo}
}

func (s *IssueContentSource) Content(ctx context.Context, id uuid.UUID) (delivery.Content, error) {
	iss, err := s.repo.GetByID(composables.WithPool(ctx, s.pool), id)
	if err != nil {
		return delivery.Content{}, err
	}
	return delivery.Content{
		Title:       iss.Title(),
		HTMLContent: iss.HTMLContent(),
		TextContent: iss.TextContent(),
	}, nil
}
