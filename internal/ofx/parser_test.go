package ofx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const ccStatement = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20260115120000
<LANGUAGE>POR
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>BRL
<CCACCTFROM>
<ACCTID>2011
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20260101000000
<DTEND>20260131235959
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20260105120000
<TRNAMT>-125.50
<FITID>TXN001
<NAME>Supermercado Carrefour
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20260110120000
<TRNAMT>-45.99
<FITID>TXN002
<NAME>Uber Trip
<MEMO>Uber *Trip Help
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20260120120000
<TRNAMT>500.00
<FITID>TXN003
<NAME>Payment
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>328.51
<DTASOF>20260131000000
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func writeStatement(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statement.ofx")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFileCreditCard(t *testing.T) {
	t.Parallel()

	p := NewParser()
	records, err := p.ParseFile(writeStatement(t, ccStatement))
	require.NoError(t, err)
	require.Len(t, records, 3)

	require.Equal(t, "TXN001", records[0].ExternalID)
	require.True(t, records[0].Amount.Equal(decimal.RequireFromString("-125.50")),
		"got %s", records[0].Amount)
	require.Equal(t, "Supermercado Carrefour", records[0].Memo)
	require.Equal(t, 2026, records[0].Date.Year())
	require.Equal(t, "UTC", records[0].Date.Location().String())

	// MEMO wins over NAME when present
	require.Equal(t, "Uber *Trip Help", records[1].Memo)

	require.Equal(t, "TXN003", records[2].ExternalID)
	require.True(t, records[2].Amount.Equal(decimal.RequireFromString("500.00")))
}

func TestParseFileMissing(t *testing.T) {
	t.Parallel()

	p := NewParser()
	_, err := p.ParseFile(filepath.Join(t.TempDir(), "nope.ofx"))
	require.Error(t, err)
	require.True(t, os.IsNotExist(err))
}

func TestParseFileMalformed(t *testing.T) {
	t.Parallel()

	p := NewParser()
	_, err := p.ParseFile(writeStatement(t, "this is not a statement"))
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}
