package store

import (
	"context"
	"encoding/json"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/openmargin/rover/core"
)

// Amounts persist as strings; sqlite has no 128-bit integer and floats would
// lose precision.

type depositRow struct {
	AccountID string `gorm:"primaryKey;size:128"`
	Denom     string `gorm:"primaryKey;size:128"`
	Amount    string `gorm:"not null"`
}

type debtShareRow struct {
	AccountID string `gorm:"primaryKey;size:128"`
	Denom     string `gorm:"primaryKey;size:128"`
	Shares    string `gorm:"not null"`
}

type lendShareRow struct {
	AccountID string `gorm:"primaryKey;size:128"`
	Denom     string `gorm:"primaryKey;size:128"`
	Shares    string `gorm:"not null"`
}

type stakedLpRow struct {
	AccountID string `gorm:"primaryKey;size:128"`
	Denom     string `gorm:"primaryKey;size:128"`
	Amount    string `gorm:"not null"`
}

type shareTotalRow struct {
	Kind   string `gorm:"primaryKey;size:16"`
	Denom  string `gorm:"primaryKey;size:128"`
	Shares string `gorm:"not null"`
}

const (
	shareKindDebt = "debt"
	shareKindLend = "lend"
)

type vaultPositionRow struct {
	AccountID string `gorm:"primaryKey;size:128"`
	Position  string `gorm:"not null"`
}

type accountKindRow struct {
	AccountID string `gorm:"primaryKey;size:128"`
	Kind      string `gorm:"size:64;not null"`
}

type guardRow struct {
	ID     int `gorm:"primaryKey"`
	Locked bool
}

// DB is the sqlite-backed StateStore.
type DB struct {
	db *gorm.DB
}

func OpenDB(path string) (*DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	if err := db.AutoMigrate(
		&depositRow{},
		&debtShareRow{},
		&lendShareRow{},
		&stakedLpRow{},
		&shareTotalRow{},
		&vaultPositionRow{},
		&accountKindRow{},
		&guardRow{},
	); err != nil {
		return nil, errors.Wrap(err, "migrate")
	}
	return &DB{db: db}, nil
}

func (s *DB) InTransaction(ctx context.Context, fn func(core.State) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DB{db: tx})
	})
}

func parseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "corrupt amount %q", raw)
	}
	return d, nil
}

func (s *DB) upsert(ctx context.Context, row any) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
}

func (s *DB) GetDeposit(ctx context.Context, accountID, denom string) (decimal.Decimal, error) {
	var row depositRow
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND denom = ?", accountID, denom).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return parseAmount(row.Amount)
}

func (s *DB) SetDeposit(ctx context.Context, accountID, denom string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return s.db.WithContext(ctx).
			Delete(&depositRow{AccountID: accountID, Denom: denom}).Error
	}
	return s.upsert(ctx, &depositRow{AccountID: accountID, Denom: denom, Amount: amount.String()})
}

func (s *DB) ListDeposits(ctx context.Context, accountID string) ([]core.Coin, error) {
	var rows []depositRow
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("denom asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	coins := make([]core.Coin, 0, len(rows))
	for _, row := range rows {
		amount, err := parseAmount(row.Amount)
		if err != nil {
			return nil, err
		}
		coins = append(coins, core.NewCoin(row.Denom, amount))
	}
	return coins, nil
}

func (s *DB) GetDebtShares(ctx context.Context, accountID, denom string) (decimal.Decimal, error) {
	var row debtShareRow
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND denom = ?", accountID, denom).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return parseAmount(row.Shares)
}

func (s *DB) SetDebtShares(ctx context.Context, accountID, denom string, shares decimal.Decimal) error {
	if shares.IsZero() {
		return s.db.WithContext(ctx).
			Delete(&debtShareRow{AccountID: accountID, Denom: denom}).Error
	}
	return s.upsert(ctx, &debtShareRow{AccountID: accountID, Denom: denom, Shares: shares.String()})
}

func (s *DB) ListDebtShares(ctx context.Context, accountID string) ([]core.Coin, error) {
	var rows []debtShareRow
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("denom asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	coins := make([]core.Coin, 0, len(rows))
	for _, row := range rows {
		shares, err := parseAmount(row.Shares)
		if err != nil {
			return nil, err
		}
		coins = append(coins, core.NewCoin(row.Denom, shares))
	}
	return coins, nil
}

func (s *DB) shareTotal(ctx context.Context, kind, denom string) (decimal.Decimal, error) {
	var row shareTotalRow
	err := s.db.WithContext(ctx).
		Where("kind = ? AND denom = ?", kind, denom).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return parseAmount(row.Shares)
}

func (s *DB) setShareTotal(ctx context.Context, kind, denom string, shares decimal.Decimal) error {
	if shares.IsZero() {
		return s.db.WithContext(ctx).
			Delete(&shareTotalRow{Kind: kind, Denom: denom}).Error
	}
	return s.upsert(ctx, &shareTotalRow{Kind: kind, Denom: denom, Shares: shares.String()})
}

func (s *DB) TotalDebtShares(ctx context.Context, denom string) (decimal.Decimal, error) {
	return s.shareTotal(ctx, shareKindDebt, denom)
}

func (s *DB) SetTotalDebtShares(ctx context.Context, denom string, shares decimal.Decimal) error {
	return s.setShareTotal(ctx, shareKindDebt, denom, shares)
}

func (s *DB) GetLendShares(ctx context.Context, accountID, denom string) (decimal.Decimal, error) {
	var row lendShareRow
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND denom = ?", accountID, denom).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return parseAmount(row.Shares)
}

func (s *DB) SetLendShares(ctx context.Context, accountID, denom string, shares decimal.Decimal) error {
	if shares.IsZero() {
		return s.db.WithContext(ctx).
			Delete(&lendShareRow{AccountID: accountID, Denom: denom}).Error
	}
	return s.upsert(ctx, &lendShareRow{AccountID: accountID, Denom: denom, Shares: shares.String()})
}

func (s *DB) ListLendShares(ctx context.Context, accountID string) ([]core.Coin, error) {
	var rows []lendShareRow
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("denom asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	coins := make([]core.Coin, 0, len(rows))
	for _, row := range rows {
		shares, err := parseAmount(row.Shares)
		if err != nil {
			return nil, err
		}
		coins = append(coins, core.NewCoin(row.Denom, shares))
	}
	return coins, nil
}

func (s *DB) TotalLendShares(ctx context.Context, denom string) (decimal.Decimal, error) {
	return s.shareTotal(ctx, shareKindLend, denom)
}

func (s *DB) SetTotalLendShares(ctx context.Context, denom string, shares decimal.Decimal) error {
	return s.setShareTotal(ctx, shareKindLend, denom, shares)
}

func (s *DB) GetStakedLp(ctx context.Context, accountID, denom string) (decimal.Decimal, error) {
	var row stakedLpRow
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND denom = ?", accountID, denom).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return parseAmount(row.Amount)
}

func (s *DB) SetStakedLp(ctx context.Context, accountID, denom string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return s.db.WithContext(ctx).
			Delete(&stakedLpRow{AccountID: accountID, Denom: denom}).Error
	}
	return s.upsert(ctx, &stakedLpRow{AccountID: accountID, Denom: denom, Amount: amount.String()})
}

func (s *DB) ListStakedLps(ctx context.Context, accountID string) ([]core.Coin, error) {
	var rows []stakedLpRow
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("denom asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	coins := make([]core.Coin, 0, len(rows))
	for _, row := range rows {
		amount, err := parseAmount(row.Amount)
		if err != nil {
			return nil, err
		}
		coins = append(coins, core.NewCoin(row.Denom, amount))
	}
	return coins, nil
}

func (s *DB) GetVaultPosition(ctx context.Context, accountID string) (*core.VaultPosition, error) {
	var row vaultPositionRow
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var pos core.VaultPosition
	if err := json.Unmarshal([]byte(row.Position), &pos); err != nil {
		return nil, errors.Wrap(err, "corrupt vault position")
	}
	return &pos, nil
}

func (s *DB) SetVaultPosition(ctx context.Context, accountID string, position *core.VaultPosition) error {
	if position == nil || position.IsEmpty() {
		return s.db.WithContext(ctx).
			Delete(&vaultPositionRow{AccountID: accountID}).Error
	}
	raw, err := json.Marshal(position)
	if err != nil {
		return err
	}
	return s.upsert(ctx, &vaultPositionRow{AccountID: accountID, Position: string(raw)})
}

func (s *DB) GetAccountKind(ctx context.Context, accountID string) (core.AccountKind, error) {
	var row accountKindRow
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.AccountKindDefault, nil
	}
	if err != nil {
		return "", err
	}
	return core.AccountKind(row.Kind), nil
}

func (s *DB) SetAccountKind(ctx context.Context, accountID string, kind core.AccountKind) error {
	return s.upsert(ctx, &accountKindRow{AccountID: accountID, Kind: kind.String()})
}

func (s *DB) GuardLocked(ctx context.Context) (bool, error) {
	var row guardRow
	err := s.db.WithContext(ctx).Where("id = ?", 1).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return row.Locked, nil
}

func (s *DB) SetGuardLocked(ctx context.Context, locked bool) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&guardRow{ID: 1, Locked: locked}).Error
}
