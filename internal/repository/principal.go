package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hogwarts-game-core/internal/model"
)

// PrincipalRepository handles principal identity and role-record persistence.
// Stat changes are single guarded UPDATE statements so concurrent callers
// never lose an increment.
type PrincipalRepository struct {
	db DBTX
}

// NewPrincipalRepository creates a new PrincipalRepository instance.
func NewPrincipalRepository(db DBTX) *PrincipalRepository {
	return &PrincipalRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *PrincipalRepository) WithTx(tx pgx.Tx) *PrincipalRepository {
	return &PrincipalRepository{db: tx}
}

const accountColumns = `id, display_name, role, heart, attack_power, money, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var (
		acc    model.Account
		role   string
		heart  *int
		attack *int
		money  decimal.NullDecimal
	)
	err := row.Scan(
		&acc.ID,
		&acc.DisplayName,
		&role,
		&heart,
		&attack,
		&money,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	acc.Role = model.Role(role)

	var stats *model.CombatStats
	if heart != nil && attack != nil {
		stats = &model.CombatStats{Heart: *heart, AttackPower: *attack}
	}
	var wallet *model.Wallet
	if money.Valid {
		wallet = &model.Wallet{Money: money.Decimal}
	}

	acc.Profile, err = model.NewProfile(acc.Role, stats, wallet)
	if err != nil {
		return nil, fmt.Errorf("corrupt principal %d: %w", acc.ID, err)
	}
	return &acc, nil
}

// Create inserts a principal with the default role record for role.
func (r *PrincipalRepository) Create(ctx context.Context, displayName string, role model.Role) (*model.Account, error) {
	const query = `
		INSERT INTO principals (display_name, role, heart, attack_power, money, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING ` + accountColumns

	var heart, attack *int
	if stats, ok := role.DefaultStats(); ok {
		heart, attack = &stats.Heart, &stats.AttackPower
	}
	var money decimal.NullDecimal
	if role.HasWallet() {
		money = decimal.NullDecimal{Decimal: model.DefaultMoney, Valid: true}
	}

	acc, err := scanAccount(r.db.QueryRow(ctx, query, displayName, string(role), heart, attack, money))
	if err != nil {
		return nil, fmt.Errorf("failed to create principal: %w", err)
	}
	return acc, nil
}

// GetAccount retrieves a principal with its role profile.
// Returns ErrPrincipalNotFound if the principal does not exist.
func (r *PrincipalRepository) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM principals WHERE id = $1`
	return r.getAccount(ctx, query, id)
}

// GetAccountForUpdate retrieves a principal and locks its row until the
// surrounding transaction ends.
func (r *PrincipalRepository) GetAccountForUpdate(ctx context.Context, id int64) (*model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM principals WHERE id = $1 FOR UPDATE`
	return r.getAccount(ctx, query, id)
}

func (r *PrincipalRepository) getAccount(ctx context.Context, query string, id int64) (*model.Account, error) {
	acc, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to get principal: %w", err)
	}
	return acc, nil
}

// GetCombatStats returns the heart and attack power of a combat principal.
func (r *PrincipalRepository) GetCombatStats(ctx context.Context, id int64) (model.CombatStats, error) {
	acc, err := r.GetAccount(ctx, id)
	if err != nil {
		return model.CombatStats{}, err
	}
	c, ok := acc.Combatant()
	if !ok {
		return model.CombatStats{}, ErrNoCombatStats
	}
	return c.Combat(), nil
}

// GetWallet returns a Muggle's wallet.
func (r *PrincipalRepository) GetWallet(ctx context.Context, id int64) (model.Wallet, error) {
	acc, err := r.GetAccount(ctx, id)
	if err != nil {
		return model.Wallet{}, err
	}
	m, ok := acc.Profile.(model.MuggleProfile)
	if !ok {
		return model.Wallet{}, ErrNoWallet
	}
	return m.Wallet, nil
}

// AddAttackPower applies delta to attack power unless the result would be negative.
// Returns ErrConditionFailed when the guard rejects the change or the
// principal has no combat stats.
func (r *PrincipalRepository) AddAttackPower(ctx context.Context, id int64, delta int) (int, error) {
	const query = `
		UPDATE principals
		SET attack_power = attack_power + $2, updated_at = NOW()
		WHERE id = $1 AND attack_power IS NOT NULL AND attack_power + $2 >= 0
		RETURNING attack_power
	`

	var attack int
	err := r.db.QueryRow(ctx, query, id, delta).Scan(&attack)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrConditionFailed
		}
		return 0, fmt.Errorf("failed to update attack power: %w", err)
	}
	return attack, nil
}

// AdjustHeart applies delta to heart, clamped to [0, MaxHeart]. A negative
// delta is refused with ErrConditionFailed while heart is at or below floor,
// or when floor is positive and the result would fall below it.
func (r *PrincipalRepository) AdjustHeart(ctx context.Context, id int64, delta, floor int) (int, error) {
	const query = `
		UPDATE principals
		SET heart = LEAST($4, GREATEST(0, heart + $2)), updated_at = NOW()
		WHERE id = $1 AND heart IS NOT NULL
			AND ($2 >= 0 OR (heart > $3 AND ($3 <= 0 OR heart + $2 >= $3)))
		RETURNING heart
	`

	var heart int
	err := r.db.QueryRow(ctx, query, id, delta, floor, model.MaxHeart).Scan(&heart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrConditionFailed
		}
		return 0, fmt.Errorf("failed to update heart: %w", err)
	}
	return heart, nil
}

// TradeAttackForHeart converts cost attack power into one heart for a Student or Villain.
func (r *PrincipalRepository) TradeAttackForHeart(ctx context.Context, id int64, cost int) (model.CombatStats, error) {
	const query = `
		UPDATE principals
		SET heart = heart + 1, attack_power = attack_power - $2, updated_at = NOW()
		WHERE id = $1 AND role IN ('Student', 'Villain') AND heart < $3 AND attack_power >= $2
		RETURNING heart, attack_power
	`

	var stats model.CombatStats
	err := r.db.QueryRow(ctx, query, id, cost, model.MaxHeart).Scan(&stats.Heart, &stats.AttackPower)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.CombatStats{}, ErrConditionFailed
		}
		return model.CombatStats{}, fmt.Errorf("failed to purchase heart: %w", err)
	}
	return stats, nil
}

// TradeMoneyForHeart converts cost money into one heart for a Muggle.
func (r *PrincipalRepository) TradeMoneyForHeart(ctx context.Context, id int64, cost decimal.Decimal) (model.CombatStats, model.Wallet, error) {
	const query = `
		UPDATE principals
		SET heart = heart + 1, money = money - $2, updated_at = NOW()
		WHERE id = $1 AND role = 'Muggle' AND heart < $3 AND money >= $2
		RETURNING heart, attack_power, money
	`

	var (
		stats  model.CombatStats
		wallet model.Wallet
	)
	err := r.db.QueryRow(ctx, query, id, cost, model.MaxHeart).Scan(&stats.Heart, &stats.AttackPower, &wallet.Money)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.CombatStats{}, model.Wallet{}, ErrConditionFailed
		}
		return model.CombatStats{}, model.Wallet{}, fmt.Errorf("failed to purchase heart: %w", err)
	}
	return stats, wallet, nil
}

// DebitMoney subtracts amount from a wallet unless that would make it negative.
func (r *PrincipalRepository) DebitMoney(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	const query = `
		UPDATE principals
		SET money = money - $2, updated_at = NOW()
		WHERE id = $1 AND money IS NOT NULL AND money >= $2
		RETURNING money
	`
	return r.updateMoney(ctx, query, id, amount)
}

// CreditMoney adds amount to a wallet.
func (r *PrincipalRepository) CreditMoney(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	const query = `
		UPDATE principals
		SET money = money + $2, updated_at = NOW()
		WHERE id = $1 AND money IS NOT NULL
		RETURNING money
	`
	return r.updateMoney(ctx, query, id, amount)
}

func (r *PrincipalRepository) updateMoney(ctx context.Context, query string, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var money decimal.Decimal
	err := r.db.QueryRow(ctx, query, id, amount).Scan(&money)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrConditionFailed
		}
		return decimal.Zero, fmt.Errorf("failed to update money: %w", err)
	}
	return money, nil
}

// SpendForPower debits price from a Muggle and adds power to its attack in one statement.
func (r *PrincipalRepository) SpendForPower(ctx context.Context, id int64, price decimal.Decimal, power int) (model.CombatStats, model.Wallet, error) {
	const query = `
		UPDATE principals
		SET money = money - $2, attack_power = attack_power + $3, updated_at = NOW()
		WHERE id = $1 AND role = 'Muggle' AND money >= $2
		RETURNING heart, attack_power, money
	`

	var (
		stats  model.CombatStats
		wallet model.Wallet
	)
	err := r.db.QueryRow(ctx, query, id, price, power).Scan(&stats.Heart, &stats.AttackPower, &wallet.Money)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.CombatStats{}, model.Wallet{}, ErrConditionFailed
		}
		return model.CombatStats{}, model.Wallet{}, fmt.Errorf("failed to spend money for power: %w", err)
	}
	return stats, wallet, nil
}

// Rankings returns combat principals of the given roles ordered by attack power.
func (r *PrincipalRepository) Rankings(ctx context.Context, roles []model.Role, limit int) ([]model.RankEntry, error) {
	const query = `
		SELECT id, display_name, role, attack_power, heart
		FROM principals
		WHERE attack_power IS NOT NULL AND role = ANY($1)
		ORDER BY attack_power DESC, display_name, id
		LIMIT $2
	`

	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}

	rows, err := r.db.Query(ctx, query, names, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get rankings: %w", err)
	}
	defer rows.Close()

	var entries []model.RankEntry
	for rows.Next() {
		var (
			e    model.RankEntry
			role string
		)
		if err := rows.Scan(&e.PrincipalID, &e.DisplayName, &role, &e.AttackPower, &e.Heart); err != nil {
			return nil, fmt.Errorf("failed to scan ranking: %w", err)
		}
		e.Role = model.Role(role)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rankings: %w", err)
	}
	return entries, nil
}

// Opponents lists combat principals whose role differs from excludeRole,
// other than excludeID. A non-empty only narrows the list to that role.
func (r *PrincipalRepository) Opponents(ctx context.Context, excludeID int64, excludeRole, only model.Role) ([]model.Opponent, error) {
	const query = `
		SELECT id, display_name, role
		FROM principals
		WHERE heart IS NOT NULL
		  AND id <> $1
		  AND role <> $2
		  AND ($3::text = '' OR role = $3::text)
		ORDER BY display_name, id
	`

	rows, err := r.db.Query(ctx, query, excludeID, string(excludeRole), string(only))
	if err != nil {
		return nil, fmt.Errorf("failed to list opponents: %w", err)
	}
	defer rows.Close()

	var opponents []model.Opponent
	for rows.Next() {
		var (
			o    model.Opponent
			role string
		)
		if err := rows.Scan(&o.PrincipalID, &o.DisplayName, &role); err != nil {
			return nil, fmt.Errorf("failed to scan opponent: %w", err)
		}
		o.Role = model.Role(role)
		opponents = append(opponents, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating opponents: %w", err)
	}
	return opponents, nil
}

// Fallen lists combat principals whose heart has reached zero.
func (r *PrincipalRepository) Fallen(ctx context.Context) ([]model.RankEntry, error) {
	const query = `
		SELECT id, display_name, role, attack_power, heart
		FROM principals
		WHERE heart = 0
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list fallen principals: %w", err)
	}
	defer rows.Close()

	var fallen []model.RankEntry
	for rows.Next() {
		var (
			e    model.RankEntry
			role string
		)
		if err := rows.Scan(&e.PrincipalID, &e.DisplayName, &role, &e.AttackPower, &e.Heart); err != nil {
			return nil, fmt.Errorf("failed to scan fallen principal: %w", err)
		}
		e.Role = model.Role(role)
		fallen = append(fallen, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fallen principals: %w", err)
	}
	return fallen, nil
}

// DeleteFallen removes a principal only if its heart is zero. Dependent rows
// go with it through ON DELETE CASCADE.
func (r *PrincipalRepository) DeleteFallen(ctx context.Context, id int64) (bool, error) {
	const query = `DELETE FROM principals WHERE id = $1 AND heart = 0`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete principal: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
