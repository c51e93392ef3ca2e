// Package ofx wraps the ofxgo parser and normalizes heterogeneous OFX/QFX
// statement records into one canonical shape for the importer.
package ofx

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

// Record is a normalized statement transaction.
type Record struct {
	ExternalID string
	Amount     decimal.Decimal
	Date       time.Time
	Memo       string
}

// ParseError reports a malformed statement file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse statement %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parser is stateless; OFX parsing needs no configuration.
type Parser struct{}

func NewParser() *Parser { return &Parser{} }

// ParseFile reads and parses an OFX/QFX statement. A missing file surfaces the
// underlying *os.PathError; malformed content yields a ParseError.
func (p *Parser) ParseFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	resp, err := ofxgo.ParseResponse(f)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	var out []Record

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		out = append(out, convert(stmt.BankTranList.Transactions)...)
	}
	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		out = append(out, convert(stmt.BankTranList.Transactions)...)
	}

	if len(out) == 0 && len(resp.Bank) == 0 && len(resp.CreditCard) == 0 {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("no bank or credit card statement found")}
	}
	return out, nil
}

func convert(txs []ofxgo.Transaction) []Record {
	out := make([]Record, 0, len(txs))
	for _, trx := range txs {
		memo := strings.TrimSpace(string(trx.Memo))
		if memo == "" {
			memo = strings.TrimSpace(string(trx.Name))
		}
		out = append(out, Record{
			ExternalID: string(trx.FiTID),
			Amount:     decimal.NewFromBigRat(&trx.TrnAmt.Rat, 2),
			Date:       trx.DtPosted.Time.UTC(),
			Memo:       memo,
		})
	}
	return out
}
