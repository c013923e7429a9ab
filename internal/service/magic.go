package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"hogwarts-game-core/internal/apperr"
	"hogwarts-game-core/internal/config"
	"hogwarts-game-core/internal/model"
	"hogwarts-game-core/internal/pkg/db"
	"hogwarts-game-core/internal/pkg/random"
	"hogwarts-game-core/internal/repository"
)

// Magic generation bounds.
const (
	MinResearchNameLength = 3
	MaxResearchNameLength = 8
	MinMagicPower         = 5
	MaxMagicPower         = 15
	MinMagicPrice         = 50
	MaxMagicPrice         = 200
	MaxMagicNameLength    = 50
)

var (
	errInvalidName     = apperr.Invariant(apperr.ReasonInvalidName, "magic name must be 1 to 50 characters")
	errInvalidCapacity = apperr.Invariant(apperr.ReasonInvalidCapacity, "course capacity must be at least 1")
)

// MagicService runs professor research and the magic shop.
type MagicService struct {
	runner     *db.Runner
	principals *repository.PrincipalRepository
	stats      *StatService
	magics     *repository.MagicRepository
	courses    *repository.CourseRepository
	cfg        config.MagicConfig
	rand       random.Rand
}

// NewMagicService creates a new MagicService instance.
func NewMagicService(
	runner *db.Runner,
	principals *repository.PrincipalRepository,
	stats *StatService,
	magics *repository.MagicRepository,
	courses *repository.CourseRepository,
	cfg config.MagicConfig,
	rnd random.Rand,
) *MagicService {
	return &MagicService{
		runner:     runner,
		principals: principals,
		stats:      stats,
		magics:     magics,
		courses:    courses,
		cfg:        cfg,
		rand:       rnd,
	}
}

// AttemptResearch succeeds half of the time. A success names the length the
// new magic's name must have.
func (s *MagicService) AttemptResearch(ctx context.Context, professorID int64) (model.ResearchResult, error) {
	if err := s.requireProfessor(ctx, professorID); err != nil {
		return model.ResearchResult{}, err
	}

	if s.rand.Intn(2) == 0 {
		return model.ResearchResult{}, nil
	}
	return model.ResearchResult{
		Success:    true,
		NameLength: random.Between(s.rand, MinResearchNameLength, MaxResearchNameLength),
	}, nil
}

// NormalizeMagicName trims name and checks its length.
func NormalizeMagicName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > MaxMagicNameLength {
		return "", errInvalidName
	}
	return name, nil
}

// CreateMagic registers a magic with a random power, opens a course for it and
// lists it in the shop, all in one transaction. A zero capacity uses the
// configured default.
func (s *MagicService) CreateMagic(ctx context.Context, professorID int64, name string, capacity int) (*model.CreatedMagic, error) {
	name, err := NormalizeMagicName(name)
	if err != nil {
		return nil, err
	}
	if capacity == 0 {
		capacity = s.cfg.DefaultCapacity
	}
	if capacity < 1 {
		return nil, errInvalidCapacity
	}

	power := random.Between(s.rand, MinMagicPower, MaxMagicPower)
	price := decimal.NewFromInt(int64(random.Between(s.rand, MinMagicPrice, MaxMagicPrice)))

	var created *model.CreatedMagic
	err = s.runner.InTx(ctx, func(tx pgx.Tx) error {
		acc, err := s.principals.WithTx(tx).GetAccount(ctx, professorID)
		if err != nil {
			return notFound(err, "get professor")
		}
		if err := requireRole(acc, model.RoleProfessor); err != nil {
			return err
		}

		magics := s.magics.WithTx(tx)
		magic, err := magics.Create(ctx, name, power, professorID)
		if err != nil {
			return err
		}
		course, err := s.courses.WithTx(tx).Create(ctx, magic.ID, professorID, capacity)
		if err != nil {
			return err
		}
		if err := magics.CreateListing(ctx, magic.ID, price); err != nil {
			return err
		}

		created = &model.CreatedMagic{Magic: *magic, Course: *course, Price: price}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("magic_id", created.Magic.ID).
		Int64("course_id", created.Course.ID).
		Int("power", power).
		Str("price", price.StringFixed(2)).
		Msg("Magic created")

	return created, nil
}

// ListMagicShop returns every listing, cheapest first.
func (s *MagicService) ListMagicShop(ctx context.Context) ([]model.MagicListing, error) {
	return s.magics.ListShop(ctx)
}

// BuyMagic spends a Muggle's money on a magic's power. The money debit and
// the attack gain are one guarded statement.
func (s *MagicService) BuyMagic(ctx context.Context, muggleID, magicID int64) (*model.MagicPurchase, error) {
	var purchase *model.MagicPurchase
	err := s.runner.InTx(ctx, func(tx pgx.Tx) error {
		principals := s.principals.WithTx(tx)

		acc, err := principals.GetAccount(ctx, muggleID)
		if err != nil {
			return notFound(err, "get buyer")
		}
		if err := requireRole(acc, model.RoleMuggle); err != nil {
			return err
		}

		listing, err := s.magics.WithTx(tx).GetListing(ctx, magicID)
		if err != nil {
			return notFound(err, "get magic listing")
		}

		stats, wallet, err := s.stats.WithTx(tx).SpendForPower(ctx, muggleID, listing.Price, listing.Power)
		if err != nil {
			return err
		}

		purchase = &model.MagicPurchase{
			MagicID: magicID,
			Price:   listing.Price,
			Power:   listing.Power,
			Stats:   stats,
			Wallet:  wallet,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("principal_id", muggleID).
		Int64("magic_id", magicID).
		Int("attack_power", purchase.Stats.AttackPower).
		Msg("Magic bought")

	return purchase, nil
}

func (s *MagicService) requireProfessor(ctx context.Context, id int64) error {
	acc, err := s.principals.GetAccount(ctx, id)
	if err != nil {
		return notFound(err, "get professor")
	}
	return requireRole(acc, model.RoleProfessor)
}
