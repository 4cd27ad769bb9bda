package chainhash_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/pkg/chainhash"
)

// ──────────────────────────────────────────────────────────────────────────────
// Vectores de prueba del formato canónico v1.
//
// Si alguien cambia el orden de los campos, el formato de cantidades o de fechas,
// estos tests fallan: las cadenas ya persistidas dejarían de verificarse.
//
//	Cadena 1 = "stock-ledger/v1" + "64:<genesis>;" + "11:prod-harina;" + "1:1;" +
//	           "5:5.000;" + "5:5.000;" + "2:IN;" + "27:2024-03-01T10:00:00.000000Z;" +
//	           "19:recepcion pedido 42;" + "6:user-7;" + "0:;"
// ──────────────────────────────────────────────────────────────────────────────

const (
	testHash1 = "98b43e917f977965d1b40dd2726ef287f48acad1928f3ccf1c8fb085fe02b8f7"
	testHash2 = "902127e03e6dcaba6bc99baa51d521e8bc237971d6acbdd594572648e4788d7c"
)

func firstFields() chainhash.Fields {
	return chainhash.Fields{
		PreviousHash:   chainhash.Genesis,
		ProductID:      "prod-harina",
		SequenceNumber: 1,
		QuantityDelta:  decimal.RequireFromString("5"),
		ResultingStock: decimal.RequireFromString("5.000"),
		MovementType:   "IN",
		Timestamp:      time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Description:    "recepcion pedido 42",
		UserID:         "user-7",
	}
}

func TestDigest_VectorExacto(t *testing.T) {
	assert.Equal(t, testHash1, chainhash.Digest(firstFields()))
}

func TestDigest_VectorEncadenado(t *testing.T) {
	f := chainhash.Fields{
		PreviousHash:   testHash1,
		ProductID:      "prod-harina",
		SequenceNumber: 2,
		QuantityDelta:  decimal.RequireFromString("-1.25"),
		ResultingStock: decimal.RequireFromString("3.75"),
		MovementType:   "OUT",
		// La zona horaria no altera el hash: se normaliza a UTC.
		Timestamp:   time.Date(2024, 3, 1, 7, 30, 15, 123456789, time.FixedZone("COT", -5*3600)),
		Description: "receta pan",
		UserID:      "user-7",
		OrderID:     "order-9",
	}
	assert.Equal(t, testHash2, chainhash.Digest(f))
}

func TestDigest_Determinista(t *testing.T) {
	h1 := chainhash.Digest(firstFields())
	h2 := chainhash.Digest(firstFields())
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

// Cualquier campo alterado debe producir un hash distinto.
func TestDigest_SensibleACadaCampo(t *testing.T) {
	base := chainhash.Digest(firstFields())
	cases := map[string]func(*chainhash.Fields){
		"previous_hash":   func(f *chainhash.Fields) { f.PreviousHash = testHash2 },
		"product_id":      func(f *chainhash.Fields) { f.ProductID = "prod-azucar" },
		"sequence_number": func(f *chainhash.Fields) { f.SequenceNumber = 2 },
		"quantity_delta":  func(f *chainhash.Fields) { f.QuantityDelta = decimal.RequireFromString("5.001") },
		"resulting_stock": func(f *chainhash.Fields) { f.ResultingStock = decimal.RequireFromString("6") },
		"movement_type":   func(f *chainhash.Fields) { f.MovementType = "ADJUSTMENT" },
		"timestamp":       func(f *chainhash.Fields) { f.Timestamp = f.Timestamp.Add(time.Microsecond) },
		"description":     func(f *chainhash.Fields) { f.Description = "recepcion pedido 43" },
		"user_id":         func(f *chainhash.Fields) { f.UserID = "" },
		"order_id":        func(f *chainhash.Fields) { f.OrderID = "order-1" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := firstFields()
			mutate(&f)
			assert.NotEqual(t, base, chainhash.Digest(f))
		})
	}
}

// El prefijo de longitud impide mover texto entre campos contiguos.
func TestDigest_LimitesDeCampo(t *testing.T) {
	a := firstFields()
	a.Description = "pan;6:user-8"
	a.UserID = ""
	b := firstFields()
	b.Description = "pan"
	b.UserID = "user-8"
	assert.NotEqual(t, chainhash.Digest(a), chainhash.Digest(b))
}

func TestDigestVersion(t *testing.T) {
	h, err := chainhash.DigestVersion(chainhash.Version, firstFields())
	require.NoError(t, err)
	assert.Equal(t, testHash1, h)

	_, err = chainhash.DigestVersion(99, firstFields())
	assert.ErrorIs(t, err, chainhash.ErrUnsupportedVersion)
}

func TestGenesis(t *testing.T) {
	assert.Len(t, chainhash.Genesis, 64)
	assert.Equal(t, "0000000000000000000000000000000000000000000000000000000000000000", chainhash.Genesis)
}
