package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderID -> TRX-<unix millis>-<9 karakter>, dipakai juga sebagai order_id Midtrans
func NewOrderID(now time.Time) string {
	return fmt.Sprintf("TRX-%d-%s", now.UnixMilli(), randomCode(9))
}

// NewSerialNumber -> SN-<unix millis>-<8 karakter>
func NewSerialNumber(now time.Time) string {
	return fmt.Sprintf("SN-%d-%s", now.UnixMilli(), randomCode(8))
}

func randomCode(n int) string {
	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return code[:n]
}
