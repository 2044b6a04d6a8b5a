package paymethod

import (
	"database/sql/driver"
	"errors"
)

// Method is the payment method chosen at checkout or top-up.
type Method string

const (
	MethodWallet      Method = "wallet"
	MethodMTNMoMo     Method = "mtn_momo"
	MethodOrangeMoney Method = "orange_money"
)

var ErrInvalidMethod = errors.New("invalid payment method")

func (m Method) String() string {
	return string(m)
}

func (m Method) Value() (driver.Value, error) {
	return m.String(), nil
}

// IsMobileMoney reports whether settlement happens asynchronously at an
// external provider.
func (m Method) IsMobileMoney() bool {
	return m == MethodMTNMoMo || m == MethodOrangeMoney
}

func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodWallet, MethodMTNMoMo, MethodOrangeMoney:
		return Method(s), nil
	default:
		return "", ErrInvalidMethod
	}
}
