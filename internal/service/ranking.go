package service

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"hogwarts-game-core/internal/apperr"
	"hogwarts-game-core/internal/model"
	"hogwarts-game-core/internal/repository"
)

// DefaultRankingLimit is used when a caller asks for a non-positive limit.
const DefaultRankingLimit = 10

var (
	combatRoles = []model.Role{model.RoleStudent, model.RoleVillain, model.RoleMuggle}

	errNotFallen = apperr.Invariant(apperr.ReasonNotFallen, "principal still has heart")
)

// RankingService handles standings and the removal of fallen principals.
type RankingService struct {
	principals *repository.PrincipalRepository
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(principals *repository.PrincipalRepository) *RankingService {
	return &RankingService{principals: principals}
}

// VisibleRoles returns the roles whose standings viewer may see. Professors and
// admins see every combat role; a combat role sees only its own.
func VisibleRoles(viewer model.Role) []model.Role {
	switch {
	case viewer == model.RoleProfessor || viewer == model.RoleAdmin:
		return combatRoles
	case viewer.HasCombatStats():
		return []model.Role{viewer}
	}
	return nil
}

// Rankings returns the attack-power standings visible to viewerRole.
func (s *RankingService) Rankings(ctx context.Context, viewerRole model.Role, limit int) ([]model.RankEntry, error) {
	roles := VisibleRoles(viewerRole)
	if len(roles) == 0 {
		return nil, apperr.Newf(apperr.KindRoleNotEligible, apperr.ReasonRoleNotEligible,
			"role %s has no standings", viewerRole)
	}
	if limit <= 0 {
		limit = DefaultRankingLimit
	}
	return s.principals.Rankings(ctx, roles, limit)
}

// Standings is the full view an admin sees: per-role rankings and the fallen.
type Standings struct {
	ByRole map[model.Role][]model.RankEntry
	Fallen []model.RankEntry
}

// Snapshot loads each combat role's rankings and the fallen list concurrently.
func (s *RankingService) Snapshot(ctx context.Context, limit int) (*Standings, error) {
	if limit <= 0 {
		limit = DefaultRankingLimit
	}

	perRole := make([][]model.RankEntry, len(combatRoles))
	var fallen []model.RankEntry

	g, gctx := errgroup.WithContext(ctx)
	for i, role := range combatRoles {
		g.Go(func() error {
			entries, err := s.principals.Rankings(gctx, []model.Role{role}, limit)
			if err != nil {
				return err
			}
			perRole[i] = entries
			return nil
		})
	}
	g.Go(func() error {
		var err error
		fallen, err = s.principals.Fallen(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	standings := &Standings{ByRole: make(map[model.Role][]model.RankEntry, len(combatRoles)), Fallen: fallen}
	for i, role := range combatRoles {
		standings.ByRole[role] = perRole[i]
	}
	return standings, nil
}

// Fallen lists combat principals with no heart left.
func (s *RankingService) Fallen(ctx context.Context) ([]model.RankEntry, error) {
	return s.principals.Fallen(ctx)
}

// RemoveFallen deletes a principal whose heart is zero together with its
// dependent rows.
func (s *RankingService) RemoveFallen(ctx context.Context, id int64) error {
	deleted, err := s.principals.DeleteFallen(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		if _, err := s.principals.GetAccount(ctx, id); err != nil {
			return notFound(err, "get principal")
		}
		return errNotFallen
	}

	log.Info().Int64("principal_id", id).Msg("Fallen principal removed")
	return nil
}
