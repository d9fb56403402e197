package candidate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/candidate-intake-api/internal/domain"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldStatus = "status"
	fieldNotes  = "notes"
)

const photoURLTTL = 15 * time.Minute

// Service covers the admin review surface: listing, inspecting and
// progressing candidates through the pipeline.
type Service interface {
	List(ctx context.Context, limit int, cursor string) ([]domain.Candidate, string, error)
	Get(ctx context.Context, candidateID string) (*domain.Candidate, error)
	UpdateStatus(ctx context.Context, candidateID string, req domain.UpdateStatusRequest) (*domain.Candidate, error)
	Delete(ctx context.Context, candidateID string) error
}

type candidateStore interface {
	Get(ctx context.Context, candidateID string) (*domain.Candidate, error)
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Candidate, string, error)
	Update(ctx context.Context, candidateID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, candidateID string) error
}

type urlPresigner interface {
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type service struct {
	repo      candidateStore
	presigner urlPresigner
}

func NewService(repo candidateStore, presigner urlPresigner) Service {
	return &service{repo: repo, presigner: presigner}
}

func (s *service) List(ctx context.Context, limit int, cursor string) ([]domain.Candidate, string, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ScanPage(ctx, int32(limit), cursor)
}

func (s *service) Get(ctx context.Context, candidateID string) (*domain.Candidate, error) {
	c, err := s.repo.Get(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if c.PhotoKey != "" && s.presigner != nil {
		url, err := s.presigner.PresignedURL(ctx, c.PhotoKey, photoURLTTL)
		if err != nil {
			slog.Warn("could not presign photo URL", "candidate_id", candidateID, "err", err)
		} else {
			c.PhotoURL = url
		}
	}
	return c, nil
}

func (s *service) UpdateStatus(ctx context.Context, candidateID string, req domain.UpdateStatusRequest) (*domain.Candidate, error) {
	if !domain.ValidStatus(req.Status) {
		return nil, fmt.Errorf("unknown status %q: %w", req.Status, domain.ErrBadRequest)
	}
	updates := map[string]interface{}{fieldStatus: req.Status}
	if req.Notes != nil {
		updates[fieldNotes] = *req.Notes
	}
	if err := s.repo.Update(ctx, candidateID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, candidateID)
}

func (s *service) Delete(ctx context.Context, candidateID string) error {
	return s.repo.SoftDelete(ctx, candidateID)
}
