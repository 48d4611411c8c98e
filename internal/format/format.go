package format

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	units "github.com/docker/go-units"
)

var compactUnits = []string{"", "K", "M", "B", "T"}

// FormatMoney floors amount and groups thousands with '.', e.g. 1234567.9
// becomes "1.234.567". Zero, NaN and infinities render as "0".
func FormatMoney(amount float64) string {
	if amount == 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "0"
	}

	floored := math.Floor(amount)
	if floored == 0 {
		return "0"
	}
	digits := strconv.FormatFloat(math.Abs(floored), 'f', 0, 64)

	var b strings.Builder
	if floored < 0 {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatNumberCompact renders n with a K/M/B/T suffix and at most fraction
// fraction digits, e.g. 1500 becomes "1.5K" and 2000000 becomes "2M".
func FormatNumberCompact(n float64, fraction int) string {
	if fraction < 0 {
		fraction = 0
	}
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}

	out := units.CustomSize("%."+strconv.Itoa(fraction)+"f|%s", n, 1000.0, compactUnits)
	number, suffix, _ := strings.Cut(out, "|")
	if strings.Contains(number, ".") {
		number = strings.TrimRight(number, "0")
		number = strings.TrimSuffix(number, ".")
	}
	return sign + number + suffix
}

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// RandomID returns an element id of the form "re<uint32><two letters>",
// for example "re3735928559Xq".
func RandomID() (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	suffix, err := randomString(2)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("re%d%s", binary.BigEndian.Uint32(buf[:]), suffix), nil
}

func randomString(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(idAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		out[i] = idAlphabet[n.Int64()]
	}
	return string(out), nil
}
