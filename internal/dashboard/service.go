package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// RepositoryPort defines the count queries the summary needs.
type RepositoryPort interface {
	CountActiveUsers(ctx context.Context) (int, error)
	CountRoles(ctx context.Context) (int, error)
	CountDocuments(ctx context.Context) (int, error)
	CountDocumentsExpiring(ctx context.Context, now, until time.Time) (int, error)
	CountDocumentsExpired(ctx context.Context, now time.Time) (int, error)
	CountPermitsPending(ctx context.Context) (int, error)
}

// Service assembles the landing-page summary.
type Service struct {
	repo       RepositoryPort
	warnWindow time.Duration
	now        func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, warnWindow time.Duration) *Service {
	return &Service{repo: repo, warnWindow: warnWindow, now: time.Now}
}

// Summary fans the count queries out concurrently; the first failure
// cancels the rest.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	now := s.now()
	var out Summary
	out.GeneratedAt = now

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.repo.CountActiveUsers(ctx)
		if err != nil {
			return err
		}
		out.ActiveUsers = n
		return nil
	})
	g.Go(func() error {
		n, err := s.repo.CountRoles(ctx)
		if err != nil {
			return err
		}
		out.Roles = n
		return nil
	})
	g.Go(func() error {
		n, err := s.repo.CountDocuments(ctx)
		if err != nil {
			return err
		}
		out.DocumentsTotal = n
		return nil
	})
	g.Go(func() error {
		n, err := s.repo.CountDocumentsExpiring(ctx, now, now.Add(s.warnWindow))
		if err != nil {
			return err
		}
		out.DocumentsExpiring = n
		return nil
	})
	g.Go(func() error {
		n, err := s.repo.CountDocumentsExpired(ctx, now)
		if err != nil {
			return err
		}
		out.DocumentsExpired = n
		return nil
	})
	g.Go(func() error {
		n, err := s.repo.CountPermitsPending(ctx)
		if err != nil {
			return err
		}
		out.PermitsPending = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return out, nil
}
