package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jask/orcamento/internal/database/repository"
	"github.com/jask/orcamento/internal/logger"
	"github.com/jask/orcamento/internal/ofx"
)

// ImporterService drives statement ingestion. Transactions are created once,
// keyed by the issuer-assigned external id; re-importing a statement is a
// no-op for records already seen.
type ImporterService struct {
	Transactions *repository.TransactionRepo
	Accounts     *repository.AccountRepo
	Parser       *ofx.Parser

	// DebitsOnly skips positive (credit) amounts at import time. The policy
	// must stay fixed per deployment; switching it breaks existing data.
	DebitsOnly bool
}

// ImportResult counts the outcome of one import run.
type ImportResult struct {
	Created int
	Skipped int
}

// ImportFile parses the statement at path and persists its transactions into
// the given account. Duplicate external ids are counted as skipped, never
// re-created and never updated.
func (s *ImporterService) ImportFile(ctx context.Context, path, accountID string, referenceDate *time.Time) (ImportResult, error) {
	log := logger.FromContext(ctx)
	res := ImportResult{}

	acct, err := s.Accounts.Get(ctx, accountID)
	if err != nil {
		return res, err
	}
	if acct == nil {
		return res, fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
	}

	records, err := s.Parser.ParseFile(path)
	if err != nil {
		return res, err
	}

	for _, rec := range records {
		if s.DebitsOnly && rec.Amount.Sign() >= 0 {
			log.Debug().Str("external_id", rec.ExternalID).Str("amount", rec.Amount.String()).
				Msg("skipping non-debit record per import policy")
			continue
		}
		t := repository.Transaction{
			ID:            uuid.NewString(),
			ExternalID:    rec.ExternalID,
			AccountID:     acct.ID,
			Amount:        rec.Amount,
			Date:          rec.Date,
			ReferenceDate: referenceDate,
			Memo:          rec.Memo,
		}
		if err := s.Transactions.Insert(ctx, t); err != nil {
			if isUniqueViolation(err) {
				res.Skipped++
				log.Debug().Str("external_id", rec.ExternalID).Msg("duplicate record skipped")
				continue
			}
			return res, fmt.Errorf("insert transaction %s: %w", rec.ExternalID, err)
		}
		res.Created++
	}

	log.Info().Str("path", path).Str("account", acct.Name).
		Int("created", res.Created).Int("skipped", res.Skipped).
		Msg("import finished")
	return res, nil
}
