// Package chainhash: digest encadenado de los movimientos del libro de stock.
// Algoritmo: SHA-256 sobre la cadena canónica v1, salida en hexadecimal (minúsculas).
//
// El formato canónico no puede cambiar sin subir Version: cualquier cambio invalida
// la verificación de las cadenas ya escritas.
package chainhash

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Version es la versión del formato canónico que usan los movimientos nuevos.
const Version = 1

// Genesis es el previousHash del primer movimiento de cada cadena (64 ceros).
var Genesis = strings.Repeat("0", sha256.Size*2)

// Prefijo de dominio del formato v1.
const prefixV1 = "stock-ledger/v1"

// TimestampLayout: UTC con microsegundos (misma precisión que timestamptz en PostgreSQL).
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// ErrUnsupportedVersion se devuelve para versiones de formato desconocidas.
var ErrUnsupportedVersion = errors.New("chainhash: versión de formato no soportada")

// Fields contiene los campos canónicos de un movimiento, en el orden estricto del hash.
type Fields struct {
	PreviousHash   string
	ProductID      string
	SequenceNumber int64
	QuantityDelta  decimal.Decimal
	ResultingStock decimal.Decimal
	MovementType   string
	Timestamp      time.Time
	Description    string
	UserID         string // vacío = sin usuario
	OrderID        string // vacío = sin pedido
}

// Digest calcula el hash v1 de los campos. Puro y determinista.
func Digest(f Fields) string {
	var b strings.Builder
	b.WriteString(prefixV1)
	writeField(&b, f.PreviousHash)
	writeField(&b, f.ProductID)
	writeField(&b, strconv.FormatInt(f.SequenceNumber, 10))
	writeField(&b, FormatQuantity(f.QuantityDelta))
	writeField(&b, FormatQuantity(f.ResultingStock))
	writeField(&b, f.MovementType)
	writeField(&b, FormatTimestamp(f.Timestamp))
	writeField(&b, f.Description)
	writeField(&b, f.UserID)
	writeField(&b, f.OrderID)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// DigestVersion calcula el hash con el formato indicado (el guardado en cada movimiento).
func DigestVersion(version int, f Fields) (string, error) {
	switch version {
	case 1:
		return Digest(f), nil
	default:
		return "", ErrUnsupportedVersion
	}
}

// FormatQuantity formatea cantidades con exactamente 3 decimales, sin separador de miles.
func FormatQuantity(d decimal.Decimal) string {
	return d.StringFixed(3)
}

// FormatTimestamp formatea el instante en UTC truncado a microsegundos.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Microsecond).Format(TimestampLayout)
}

// writeField escribe <longitud>:<valor>; para que el texto libre no pueda falsear los límites de campo.
func writeField(b *strings.Builder, v string) {
	b.WriteString(strconv.Itoa(len(v)))
	b.WriteByte(':')
	b.WriteString(v)
	b.WriteByte(';')
}
